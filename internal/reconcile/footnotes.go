package reconcile

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdfxlate/pdfxlate/internal/document"
)

// footnoteLead matches a leading numeric reference marker in a relocated
// footnote's own text, e.g. "1. See also..." or "[2] Ibid.".
var footnoteLead = regexp.MustCompile(`^\[?(\d{1,3})\]?[.)]?\s+`)

// extractFootnotes implements spec §4.1 step 6: a Paragraph sitting in the
// bottom FootnoteZoneFraction of the page, whose text opens with a numeric
// reference marker, is relocated out of page flow into the document's
// trailing Footnote section. A numbered ListItem in the same zone (a line
// such as "1. Source..." is classified as a list item first) is relocated
// the same way, its marker giving the reference id.
func (r *Reconciler) extractFootnotes(doc *document.Document, blocks []document.Block, pageNum int, pageHeight float64) []document.Block {
	if pageHeight <= 0 {
		return blocks
	}
	zone := pageHeight * r.Options.FootnoteZoneFraction

	kept := make([]document.Block, 0, len(blocks))
	for _, b := range blocks {
		if li, ok := b.(*document.ListItem); ok && li.MarkerKind == document.MarkerNumber && li.BoundingBox.Y <= zone {
			refID := strings.Trim(li.Marker, ".)")
			id := fmt.Sprintf("fn_%s_%s", refID, li.ID)
			doc.Footnotes = append(doc.Footnotes, document.NewFootnote(id, pageNum, li.BoundingBox, strings.TrimSpace(li.OriginalText), refID, pageNum))
			continue
		}
		p, ok := b.(*document.Paragraph)
		if !ok {
			kept = append(kept, b)
			continue
		}
		if p.BoundingBox.Y > zone {
			kept = append(kept, b)
			continue
		}
		m := footnoteLead.FindStringSubmatch(p.OriginalText)
		if m == nil {
			kept = append(kept, b)
			continue
		}
		refID := m[1]
		text := strings.TrimSpace(p.OriginalText[len(m[0]):])
		id := fmt.Sprintf("fn_%s_%s", refID, p.ID)
		doc.Footnotes = append(doc.Footnotes, document.NewFootnote(id, pageNum, p.BoundingBox, text, refID, pageNum))
	}
	return kept
}
