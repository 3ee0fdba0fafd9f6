package document

import "math"

// Point is a 2D point in page space (PDF coordinate system: Y increases upward).
type Point struct {
	X, Y float64
}

// BBox is an axis-aligned bounding box, grounded on the extractor's own
// extract.BBox but kept independent so the document model has no
// compile-time dependency on the extraction backend.
type BBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Center returns the bounding box's center point.
func (b BBox) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Distance returns the Euclidean distance between two points.
func (p Point) Distance(other Point) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}
