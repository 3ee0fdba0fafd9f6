package reconcile

import (
	"sort"

	"github.com/pdfxlate/pdfxlate/internal/document"
)

// reorderPage implements spec §4.1 step 8: detect whether the page reads as
// one or two columns (k in {1,2}), then sort blocks left-column-first,
// top-to-bottom within each column. Tables and full-width images are left
// at the position sorting already gives them — they naturally sort as
// "whichever column their center falls in", which degrades gracefully for
// wide blocks straddling the gutter.
func (r *Reconciler) reorderPage(p *document.Page) {
	if len(p.Blocks) < 2 || p.Width <= 0 {
		return
	}
	mid := p.Width / 2
	var left, right int
	for _, b := range p.Blocks {
		c := b.Base().BoundingBox.Center()
		if c.X < mid {
			left++
		} else {
			right++
		}
	}
	twoColumn := left > 0 && right > 0 && isColumnGapPresent(p.Blocks, mid)

	column := func(b document.Block) int {
		if !twoColumn {
			return 0
		}
		if b.Base().BoundingBox.Center().X < mid {
			return 0
		}
		return 1
	}

	sort.SliceStable(p.Blocks, func(i, j int) bool {
		ci, cj := column(p.Blocks[i]), column(p.Blocks[j])
		if ci != cj {
			return ci < cj
		}
		yi := p.Blocks[i].Base().BoundingBox.Y
		yj := p.Blocks[j].Base().BoundingBox.Y
		return yi > yj
	})

	for i, b := range p.Blocks {
		if img, ok := b.(*document.ImagePlaceholder); ok {
			img.ReadingOrderPosition = i
		}
	}
}

// isColumnGapPresent reports whether there is a horizontal band around the
// page midpoint that no block's bounding box crosses, which is the
// structural signature of a two-column layout rather than a single column
// of varying-width blocks.
func isColumnGapPresent(blocks []document.Block, mid float64) bool {
	const bandHalfWidth = 5.0
	for _, b := range blocks {
		bbox := b.Base().BoundingBox
		if bbox.X < mid+bandHalfWidth && bbox.X+bbox.Width > mid-bandHalfWidth {
			return false
		}
	}
	return true
}
