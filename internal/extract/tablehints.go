package extract

import "sort"

// tableRowYTolerance groups fragments into the same row band when their Y
// centers fall within this many points of each other, the same kind of
// fixed-point line-banding tolerance internal/reconcile's mergeLines uses
// for text lines.
const tableRowYTolerance = 3.0

// tableColumnXTolerance is how many points apart two rows' cell starts may
// be and still count as the same aligned column.
const tableColumnXTolerance = 8.0

// minTableRows is the fewest aligned-column rows detectTableHints requires
// before calling a region a table rather than two short, coincidentally
// aligned lines.
const minTableRows = 3

// tableRow is one row band: the fragments it contains, already sorted
// left to right, plus the band's Y center for sorting top to bottom.
type tableRow struct {
	y     float64
	cells []Fragment
}

// detectTableHints replaces a full grid/ruling-line table detector with a
// column-alignment heuristic over the page's own Fragments: group
// fragments into row bands by Y proximity, then record every run of at
// least minTableRows consecutive rows that each split into the same number
// of cells (>=2) whose X starts line up within tableColumnXTolerance. Grounded on
// tables/geometric.go's own two-phase "cluster by Y, then check alignment
// within the cluster" shape, reduced to the single signal
// (internal/reconcile/tables.go) actually consumes: pre-split row/column
// text, not cell geometry.
func detectTableHints(hints *BlockHints, lp LayoutPage, pageIndex int) {
	rows := bandRows(lp.Fragments)
	if len(rows) < minTableRows {
		return
	}

	i := 0
	for i < len(rows) {
		run := []tableRow{rows[i]}
		j := i + 1
		for j < len(rows) && rowsAlign(run[len(run)-1], rows[j]) {
			run = append(run, rows[j])
			j++
		}
		if len(run) >= minTableRows {
			hints.TableRegions = append(hints.TableRegions, buildTableRegion(run, pageIndex))
		}
		if j == i {
			j = i + 1
		}
		i = j
	}
}

// bandRows groups fragments into Y-proximity bands (rows), each band's
// cells sorted left to right, bands sorted top to bottom (PDF space: Y
// descending).
func bandRows(frags []Fragment) []tableRow {
	if len(frags) == 0 {
		return nil
	}
	sorted := append([]Fragment(nil), frags...)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].BBox.Y != sorted[b].BBox.Y {
			return sorted[a].BBox.Y > sorted[b].BBox.Y
		}
		return sorted[a].BBox.X < sorted[b].BBox.X
	})

	var rows []tableRow
	for _, f := range sorted {
		center := f.BBox.Y + f.BBox.Height/2
		if len(rows) > 0 && abs(rows[len(rows)-1].y-center) <= tableRowYTolerance {
			rows[len(rows)-1].cells = append(rows[len(rows)-1].cells, f)
			continue
		}
		rows = append(rows, tableRow{y: center, cells: []Fragment{f}})
	}
	for i := range rows {
		sort.Slice(rows[i].cells, func(a, b int) bool { return rows[i].cells[a].BBox.X < rows[i].cells[b].BBox.X })
	}
	return rows
}

// rowsAlign reports whether b has the same cell count as a (at least 2)
// and each cell's X start lines up with a's corresponding cell, the
// column-alignment signal that distinguishes a table row from an
// unrelated line that happens to sit nearby.
func rowsAlign(a, b tableRow) bool {
	if len(a.cells) < 2 || len(a.cells) != len(b.cells) {
		return false
	}
	for i := range a.cells {
		if abs(a.cells[i].BBox.X-b.cells[i].BBox.X) > tableColumnXTolerance {
			return false
		}
	}
	return true
}

func buildTableRegion(rows []tableRow, pageIndex int) TableRegion {
	minX, minY := rows[0].cells[0].BBox.X, rows[len(rows)-1].y
	maxX, maxY := minX, rows[0].y
	var out [][]string
	for _, r := range rows {
		var line []string
		for _, c := range r.cells {
			line = append(line, c.Text)
			minX = min(minX, c.BBox.X)
			maxX = max(maxX, c.BBox.X+c.BBox.Width)
		}
		minY = min(minY, r.y)
		maxY = max(maxY, r.y)
		out = append(out, line)
	}
	return TableRegion{
		PageIndex: pageIndex,
		BBox:      BBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY},
		Rows:      out,
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
