// Package transport serializes grouped ContentBlocks to the stable
// "transport form" sent to the translation endpoint, and parses the
// translated response back into per-block text (spec §4.3). It is
// grounded on the placeholder-marker protect/restore pairing of
// valpere-peretran's internal/placeholder package, generalized from that
// package's code/HTML protection scheme to paragraph- and item-level
// structural tokens.
package transport

import "strings"

const (
	// ParagraphBreak marks a paragraph boundary within a single block's
	// text. It is atomic: the translator is instructed to preserve it
	// verbatim rather than translate or drop it.
	ParagraphBreak = "[[PARAGRAPH_BREAK]]"
	// ItemBreak separates distinct blocks grouped into one transport
	// payload.
	ItemBreak = "%%%%ITEM_BREAK%%%%"
)

// Form is a serialized transport payload for a group of blocks, plus the
// information needed to split the translated response back apart.
type Form struct {
	Payload    string
	ItemCount  int
	Markers    [][]string // Protect() markers per item, same order as items
}

// Encode joins items with ItemBreak, after protecting embedded Markdown
// structural spans (fenced code, inline code, HTML tags) in each item
// with numbered placeholders so the translator cannot mangle them.
// Paragraph breaks inside an item's own text are expected to already use
// ParagraphBreak (callers normalize text before calling Encode).
func Encode(items []string) Form {
	protected := make([]string, len(items))
	markers := make([][]string, len(items))
	for i, item := range items {
		protected[i], markers[i] = Protect(item)
	}
	return Form{
		Payload:   strings.Join(protected, "\n"+ItemBreak+"\n"),
		ItemCount: len(items),
		Markers:   markers,
	}
}

// InstructionHint returns the prompt fragment instructing the translator
// to preserve transport tokens and Markdown structural characters
// verbatim.
func InstructionHint() string {
	return "Preserve the tokens " + ParagraphBreak + " and " + ItemBreak +
		" exactly as they appear, in the same positions, and do not translate, " +
		"reorder, or remove them. Preserve Markdown structural characters " +
		"(#, *, -, |) and [PHn] placeholder markers verbatim. " + protectHint()
}
