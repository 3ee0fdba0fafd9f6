package reconcile

import (
	"strings"
	"unicode"

	"github.com/pdfxlate/pdfxlate/internal/document"
)

// headingContinuationWords are the prepositions, conjunctions, and
// articles spec §4.1 step 7 names as signaling that a heading's second
// half continues a split heading rather than starting a new one.
var headingContinuationWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"and": true, "or": true, "but": true, "nor": true, "so": true, "yet": true,
	"of": true, "in": true, "on": true, "for": true, "with": true, "to": true,
	"at": true, "by": true, "from": true, "as": true, "into": true, "over": true,
}

// headingHasTerminalPunctuation reports whether text ends a sentence, the
// condition spec §4.1 step 7 requires the first half of a split heading to
// lack before it is eligible for merging.
func headingHasTerminalPunctuation(text string) bool {
	text = strings.TrimRight(strings.TrimSpace(text), "\"')]")
	if text == "" {
		return false
	}
	switch text[len(text)-1] {
	case '.', '!', '?', ':', ';':
		return true
	}
	return false
}

// headingContinues reports whether text reads as the tail half of a
// heading split across a page or line break: its first word starts
// lowercase, or is a preposition, conjunction, or article (spec §4.1
// step 7).
func headingContinues(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	first, _, _ := strings.Cut(text, " ")
	first = strings.TrimFunc(first, func(r rune) bool { return !unicode.IsLetter(r) })
	if first == "" {
		return false
	}
	if headingContinuationWords[strings.ToLower(first)] {
		return true
	}
	return unicode.IsLower([]rune(first)[0])
}

// mergeAdjacentHeadings implements spec §4.1 step 7: two consecutive
// Heading blocks of the same level, with nothing classified between them
// (so they sit on the same page, or split across a page break with no
// intervening content), are joined into one when the first lacks terminal
// punctuation and the second reads as a continuation. Grounded on
// headerfooter.go's findRepeatingMarginText: a single forward pass over
// every page's blocks in document order, mutating in place, the same
// shape that cross-page heuristic uses.
//
// Run before reading order is finalized and bookmark ids are assigned, so
// the merged heading gets exactly one bookmark.
func mergeAdjacentHeadings(doc *document.Document) {
	var prevHeading *document.Heading

	for _, p := range doc.Pages {
		kept := make([]document.Block, 0, len(p.Blocks))
		for _, b := range p.Blocks {
			h, isHeading := b.(*document.Heading)
			if isHeading && prevHeading != nil &&
				h.Level == prevHeading.Level &&
				!headingHasTerminalPunctuation(prevHeading.Base().OriginalText) &&
				headingContinues(h.Base().OriginalText) {
				merged := strings.TrimSpace(prevHeading.Base().OriginalText) + " " + strings.TrimSpace(h.Base().OriginalText)
				prevHeading.Base().OriginalText = merged
				if h.PageNumber == prevHeading.PageNumber {
					prevHeading.Base().BoundingBox = unionBBox(prevHeading.Base().BoundingBox, h.Base().BoundingBox)
				}
				continue
			}
			kept = append(kept, b)
			if isHeading {
				prevHeading = h
			} else {
				prevHeading = nil
			}
		}
		p.Blocks = kept
	}
}
