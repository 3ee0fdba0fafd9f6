package document

import (
	"fmt"
	"regexp"
	"strings"
)

// footnoteMarker matches an inline footnote reference marker such as
// "[1]" appearing in running text.
var footnoteMarker = regexp.MustCompile(`\[(\d+)\]`)

// Validate checks invariants 1-6 of spec §3 and returns the first
// violation found, or nil if the Document is well-formed. Invariants 7
// and 8 are checked separately by ValidateImagePreservation and
// ValidateReadingOrder. The Reconciler runs Validate after reconciliation.
func (d *Document) Validate() error {
	if err := d.validateUniqueIDs(); err != nil {
		return err
	}
	if err := d.validateFootnoteReferences(); err != nil {
		return err
	}
	if err := d.validateCaptionTargets(); err != nil {
		return err
	}
	if err := d.validateImageAssets(); err != nil {
		return err
	}
	if err := d.validatePreserveBlocks(); err != nil {
		return err
	}
	if err := d.validateBookmarkUniqueness(); err != nil {
		return err
	}
	return nil
}

// validateUniqueIDs enforces invariant 1: every id is unique within the
// Document.
func (d *Document) validateUniqueIDs() error {
	seen := map[string]bool{}
	check := func(id string) error {
		if seen[id] {
			return fmt.Errorf("document: duplicate block id %q", id)
		}
		seen[id] = true
		return nil
	}
	for _, b := range d.AllBlocks() {
		if err := check(b.Base().ID); err != nil {
			return err
		}
	}
	for _, f := range d.Footnotes {
		if err := check(f.ID); err != nil {
			return err
		}
	}
	return nil
}

// validateFootnoteReferences enforces invariant 2: every Footnote.ReferenceID
// has exactly one matching inline marker in some Paragraph, and every inline
// marker resolves to exactly one Footnote.
func (d *Document) validateFootnoteReferences() error {
	markerCounts := map[string]int{}
	for _, b := range d.AllBlocks() {
		p, ok := b.(*Paragraph)
		if !ok {
			continue
		}
		for _, m := range footnoteMarker.FindAllStringSubmatch(p.OriginalText, -1) {
			markerCounts[m[1]]++
		}
	}

	footnoteIDs := map[string]bool{}
	for _, f := range d.Footnotes {
		if footnoteIDs[f.ReferenceID] {
			return fmt.Errorf("document: duplicate footnote reference id %q", f.ReferenceID)
		}
		footnoteIDs[f.ReferenceID] = true

		if markerCounts[f.ReferenceID] == 0 {
			return fmt.Errorf("document: footnote %q has no matching inline marker", f.ReferenceID)
		}
		if markerCounts[f.ReferenceID] > 1 {
			return fmt.Errorf("document: footnote marker [%s] appears %d times, expected exactly once", f.ReferenceID, markerCounts[f.ReferenceID])
		}
	}

	for ref := range markerCounts {
		if !footnoteIDs[ref] {
			return fmt.Errorf("document: inline marker [%s] has no matching footnote", ref)
		}
	}
	return nil
}

// validateCaptionTargets enforces invariant 3: every Caption.TargetID
// resolves to an existing Table or ImagePlaceholder in the same Document.
func (d *Document) validateCaptionTargets() error {
	for _, b := range d.AllBlocks() {
		c, ok := b.(*Caption)
		if !ok {
			continue
		}
		target := d.FindBlock(c.TargetID)
		if target == nil {
			return fmt.Errorf("document: caption %q targets missing block %q", c.ID, c.TargetID)
		}
		if target.Kind() != KindTable && target.Kind() != KindImagePlaceholder {
			return fmt.Errorf("document: caption %q targets block %q of kind %s, expected Table or ImagePlaceholder", c.ID, c.TargetID, target.Kind())
		}
	}
	return nil
}

// validateImageAssets enforces invariant 4: every ImagePlaceholder.ImageAssetID
// resolves to a binary asset present in the asset store.
func (d *Document) validateImageAssets() error {
	for _, img := range d.ImagePlaceholders() {
		if !d.AssetIDs[img.ImageAssetID] {
			return fmt.Errorf("document: image placeholder %q references missing asset %q", img.ID, img.ImageAssetID)
		}
	}
	return nil
}

// validatePreserveBlocks enforces invariant 5: MathFormula and CodeBlock
// blocks never have TranslatedText set independently of OriginalText — they
// carry OriginalText verbatim. A populated TranslatedText is only valid if
// it is an exact copy (the pipeline's verbatim copy for preserve-strategy
// blocks).
func (d *Document) validatePreserveBlocks() error {
	for _, b := range d.AllBlocks() {
		base := b.Base()
		if !b.Kind().Preserve() {
			continue
		}
		if b.Kind() == KindImagePlaceholder {
			continue // no text to preserve
		}
		if base.TranslatedText != "" && base.TranslatedText != base.OriginalText {
			return fmt.Errorf("document: %s block %q has translated text that diverges from original", b.Kind(), base.ID)
		}
	}
	return nil
}

// validateBookmarkUniqueness enforces invariant 6: heading bookmark ids are
// unique and non-empty once assigned.
func (d *Document) validateBookmarkUniqueness() error {
	seen := map[string]bool{}
	for _, h := range d.Headings() {
		if h.BookmarkID == "" {
			continue
		}
		if seen[h.BookmarkID] {
			return fmt.Errorf("document: duplicate bookmark id %q", h.BookmarkID)
		}
		seen[h.BookmarkID] = true
	}
	return nil
}

// ValidateImagePreservation enforces invariant 7 across a reconciliation or
// translation stage transition: the multiset of images must never shrink.
// Reordering is permitted; dropping is not.
func ValidateImagePreservation(before, after *Document) error {
	beforeIDs := map[string]int{}
	for _, img := range before.ImagePlaceholders() {
		beforeIDs[img.ImageAssetID]++
	}
	afterIDs := map[string]int{}
	for _, img := range after.ImagePlaceholders() {
		afterIDs[img.ImageAssetID]++
	}
	for id, count := range beforeIDs {
		if afterIDs[id] < count {
			return fmt.Errorf("document: image preservation violated for asset %q (had %d, now %d)", id, count, afterIDs[id])
		}
	}
	return nil
}

// ValidateReadingOrder enforces invariant 8: reading order within a page is
// a total order — every block must have a distinct position in Page.Blocks
// (the slice index itself is the order, so this just checks there are no
// structural gaps introduced by faulty reconciliation, e.g. nil entries).
func ValidateReadingOrder(p *Page) error {
	for i, b := range p.Blocks {
		if b == nil {
			return fmt.Errorf("document: page %d has a nil block at reading-order position %d", p.Number, i)
		}
	}
	return nil
}

// footnoteMarkerText returns the marker text (e.g. "[1]") for a reference id.
func footnoteMarkerText(referenceID string) string {
	return "[" + strings.TrimSpace(referenceID) + "]"
}
