package transport

import (
	"regexp"
	"strings"
)

// altSeparators lists the separator variants LLMs tend to substitute for
// ItemBreak when asked to preserve an unusual token (spec §4.3 fallback
// step 1): markdown horizontal rules and a couple of translated
// equivalents sometimes emitted instead of the literal token.
var altSeparators = []string{
	"\n---\n",
	"\n***\n",
	"\n___\n",
	ItemBreak,
}

var sentenceBoundary = regexp.MustCompile(`(?s)([.!?。！？])\s+`)

// Split parses a translated transport payload back into exactly want
// items, using the fallback chain from spec §4.3: direct split by
// ItemBreak, then alternate separators, then ParagraphBreak-aware
// paragraph boundaries, then sentence regrouping by proportional length,
// and finally assigning the whole payload to item 0 with the rest marked
// failed.
//
// The returned bool slice reports, per item, whether the split produced
// a distinct segment (false means the item was not separable and should
// be treated as a failed split, not silently translated text).
func Split(translated string, want int) ([]string, []bool) {
	if want <= 0 {
		return nil, nil
	}
	if want == 1 {
		return []string{translated}, []bool{true}
	}

	if parts := strings.Split(translated, ItemBreak); len(parts) == want {
		return trimAll(parts), allTrue(want)
	}

	for _, sep := range altSeparators {
		if parts := strings.Split(translated, sep); len(parts) == want {
			return trimAll(parts), allTrue(want)
		}
	}

	if parts := splitByParagraphBreaks(translated, want); parts != nil {
		return parts, allTrue(want)
	}

	if parts := splitBySentenceProportional(translated, want); parts != nil {
		return parts, allTrue(want)
	}

	out := make([]string, want)
	ok := make([]bool, want)
	out[0] = translated
	ok[0] = true
	for i := 1; i < want; i++ {
		out[i] = ""
		ok[i] = false
	}
	return out, ok
}

func splitByParagraphBreaks(text string, want int) []string {
	parts := strings.Split(text, ParagraphBreak)
	if len(parts) != want {
		return nil
	}
	return trimAll(parts)
}

// splitBySentenceProportional splits text into sentences, then regroups
// those sentences into want buckets so each bucket's character length is
// proportionate to 1/want of the total, without ever breaking a sentence
// across two buckets.
func splitBySentenceProportional(text string, want int) []string {
	sentences := splitSentences(text)
	if len(sentences) < want {
		return nil
	}

	total := len(text)
	target := float64(total) / float64(want)

	out := make([]string, 0, want)
	var cur strings.Builder
	curLen := 0
	remaining := want

	for i, s := range sentences {
		cur.WriteString(s)
		curLen += len(s)
		sentencesLeft := len(sentences) - i - 1

		// Flush the current bucket once it reaches its proportional
		// share, but never flush so early that a later bucket would
		// starve for sentences, and never flush the final bucket early.
		if remaining > 1 && float64(curLen) >= target && sentencesLeft >= remaining-1 {
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
			curLen = 0
			remaining--
		}
	}
	out = append(out, strings.TrimSpace(cur.String()))

	if len(out) != want {
		return nil
	}
	return out
}

func splitSentences(text string) []string {
	marked := sentenceBoundary.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")
	var out []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

func trimAll(parts []string) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

func allTrue(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}
