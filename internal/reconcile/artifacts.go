package reconcile

import (
	"regexp"
	"strings"

	"github.com/pdfxlate/pdfxlate/internal/document"
)

// artifactPatterns flags lines that are page furniture rather than content:
// bare page numbers, "Page N of M", and bare roman numerals, grounded on
// the strategy router's own boilerplate-skip list (internal/router/router.go)
// but applied here at the structural level instead of the translation level.
var artifactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*\d+\s*$`),
	regexp.MustCompile(`(?i)^\s*page\s+\d+(\s+of\s+\d+)?\s*$`),
	regexp.MustCompile(`(?i)^\s*[ivxlcdm]+\s*$`),
}

// filterArtifacts drops Paragraph/Heading blocks whose entire text is page
// furniture (spec §4.1 step 9), in the top or bottom 10% of the page.
func filterArtifacts(blocks []document.Block, pageHeight float64) []document.Block {
	if pageHeight <= 0 {
		return blocks
	}
	margin := pageHeight * 0.1
	kept := make([]document.Block, 0, len(blocks))
	for _, b := range blocks {
		switch b.(type) {
		case *document.Paragraph, *document.Heading:
		default:
			kept = append(kept, b)
			continue
		}
		base := b.Base()
		inMargin := base.BoundingBox.Y < margin || base.BoundingBox.Y > pageHeight-margin
		if inMargin && isArtifactText(base.OriginalText) {
			continue
		}
		kept = append(kept, b)
	}
	return kept
}

func isArtifactText(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}
	for _, pat := range artifactPatterns {
		if pat.MatchString(trimmed) {
			return true
		}
	}
	return false
}
