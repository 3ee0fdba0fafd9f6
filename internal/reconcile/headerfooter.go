package reconcile

import (
	"regexp"
	"strings"

	"github.com/pdfxlate/pdfxlate/internal/document"
)

// repeatedMarginTextMinRatio is the minimum fraction of pages a normalized
// margin-zone text must appear on before it is treated as a running header
// or footer rather than page content, grounded on
// extract/layout/header_footer.go's HeaderFooterConfig.MinOccurrenceRatio
// (there defaulted to 0.5).
const repeatedMarginTextMinRatio = 0.5

// repeatedMarginTextMinPages is the minimum page count findRepeatingHeaderFooterText
// requires before it looks for repetition at all, grounded on
// extract/layout/header_footer.go's HeaderFooterConfig.MinPages (2): a
// single- or two-page document has no reliable notion of "repeated".
const repeatedMarginTextMinPages = 3

var pageNumberDigits = regexp.MustCompile(`\d+`)

// normalizeMarginText collapses whitespace and masks digit runs so that
// "Page 3 of 42" and "Page 4 of 42" are recognized as the same running
// footer, the way extract/layout/header_footer.go's normalizeForComparison
// and isPageNumberPattern helpers treat page numbers as a wildcard rather
// than a literal mismatch.
func normalizeMarginText(text string) string {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	trimmed = pageNumberDigits.ReplaceAllString(trimmed, "#")
	return strings.Join(strings.Fields(trimmed), " ")
}

// findRepeatingMarginText scans every page's margin-zone blocks (the same
// top/bottom 10% band filterArtifacts uses) and returns the set of
// normalized texts that recur on at least repeatedMarginTextMinRatio of
// pages — running headers and footers that a single-page regex pass
// (filterArtifacts's artifactPatterns) can't catch because their content
// varies only in an embedded page number. Adapted from
// extract/layout/header_footer.go's HeaderFooterDetector.findRepeatingPatterns,
// simplified because internal/extract's fragments are already line-level
// (never the character-per-fragment PDFs that detector's preprocessPages
// step exists to assemble).
func findRepeatingMarginText(pages []*document.Page) map[string]bool {
	if len(pages) < repeatedMarginTextMinPages {
		return nil
	}

	pagesSeen := map[string]map[int]bool{}
	for i, p := range pages {
		if p.Height <= 0 {
			continue
		}
		margin := p.Height * 0.1
		for _, b := range p.Blocks {
			base := b.Base()
			inMargin := base.BoundingBox.Y < margin || base.BoundingBox.Y > p.Height-margin
			if !inMargin {
				continue
			}
			norm := normalizeMarginText(base.OriginalText)
			if norm == "" {
				continue
			}
			if pagesSeen[norm] == nil {
				pagesSeen[norm] = map[int]bool{}
			}
			pagesSeen[norm][i] = true
		}
	}

	repeated := map[string]bool{}
	for norm, seen := range pagesSeen {
		ratio := float64(len(seen)) / float64(len(pages))
		if ratio >= repeatedMarginTextMinRatio {
			repeated[norm] = true
		}
	}
	return repeated
}

// filterRepeatingMarginText drops margin-zone blocks whose normalized text
// is in repeated, the document-wide companion to filterArtifacts's
// single-page regex filter.
func filterRepeatingMarginText(blocks []document.Block, pageHeight float64, repeated map[string]bool) []document.Block {
	if len(repeated) == 0 || pageHeight <= 0 {
		return blocks
	}
	margin := pageHeight * 0.1
	kept := make([]document.Block, 0, len(blocks))
	for _, b := range blocks {
		base := b.Base()
		inMargin := base.BoundingBox.Y < margin || base.BoundingBox.Y > pageHeight-margin
		if inMargin && repeated[normalizeMarginText(base.OriginalText)] {
			continue
		}
		kept = append(kept, b)
	}
	return kept
}
