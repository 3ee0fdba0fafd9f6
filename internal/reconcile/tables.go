package reconcile

import (
	"github.com/pdfxlate/pdfxlate/internal/document"
	"github.com/pdfxlate/pdfxlate/internal/extract"
)

// markTableFragments returns the set of fragment indices that fall inside
// one of the extractor's detected table regions for this page, so the line
// merger skips them: table cells are rendered from the hint's own Rows,
// not re-derived from line grouping.
func markTableFragments(frags []extract.Fragment, hints extract.BlockHints, pageIndex int) map[int]bool {
	consumed := map[int]bool{}
	for i, f := range frags {
		for _, t := range hints.TableRegions {
			if t.PageIndex != pageIndex {
				continue
			}
			if bboxContains(t.BBox, f.BBox) {
				consumed[i] = true
				break
			}
		}
	}
	return consumed
}

func bboxContains(outer, inner extract.BBox) bool {
	const pad = 1.0
	return inner.X+inner.Width/2 >= outer.X-pad &&
		inner.X+inner.Width/2 <= outer.X+outer.Width+pad &&
		inner.Y+inner.Height/2 >= outer.Y-pad &&
		inner.Y+inner.Height/2 <= outer.Y+outer.Height+pad
}

// tableBlocksForPage converts every table region hint on a page into a
// document.Table block. Tables are appended after line-derived blocks;
// reorderPage later places them by bounding box like everything else.
func tableBlocksForPage(hints extract.BlockHints, pageIndex, pageNum int, nextID func() string) []document.Block {
	var out []document.Block
	for _, t := range hints.TableRegions {
		if t.PageIndex != pageIndex || len(t.Rows) == 0 {
			continue
		}
		cols := 0
		for _, row := range t.Rows {
			if len(row) > cols {
				cols = len(row)
			}
		}
		tbl := document.NewTable(nextID(), pageNum, toDocBBox(t.BBox), len(t.Rows), cols)
		for r, row := range t.Rows {
			for c, text := range row {
				tbl.Rows[r][c] = document.Cell{Text: text}
			}
		}
		if len(t.Rows) > 0 {
			tbl.HeaderRows = 1
		}
		out = append(out, tbl)
	}
	return out
}
