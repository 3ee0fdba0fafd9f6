package assemble

import (
	"math"

	"github.com/pdfxlate/pdfxlate/internal/document"
)

// EstimatorOptions tunes the Pass 1 line-count estimator (spec §4.7).
type EstimatorOptions struct {
	CharsPerLine      int
	LinesPerPageBreak int
}

// DefaultEstimatorOptions returns the spec §4.7 defaults.
func DefaultEstimatorOptions() EstimatorOptions {
	return EstimatorOptions{CharsPerLine: 80, LinesPerPageBreak: 25}
}

// LineEstimator tracks a running output line count and the page number
// it currently maps to. The spec requires only that the mapping be
// internally consistent within a run (same heading always maps to the
// same page), not that it match any particular rendering engine's
// actual pagination — see spec §9's note on the page estimator.
type LineEstimator struct {
	opts    EstimatorOptions
	lines   int
	page    int
}

// NewLineEstimator starts the estimator at page 1.
func NewLineEstimator(opts EstimatorOptions) *LineEstimator {
	return &LineEstimator{opts: opts, page: 1}
}

// Page returns the current page number.
func (e *LineEstimator) Page() int { return e.page }

// Advance adds a block's estimated line weight to the running count and
// crosses a page boundary if the per-page threshold is exceeded.
// Returns the page the block itself lands on (before any resulting
// boundary crossing), matching the spec's "record page_number as each
// Heading is emitted" ordering.
func (e *LineEstimator) Advance(b document.Block) int {
	landedOn := e.page
	e.lines += lineWeight(b, e.opts.CharsPerLine)
	for e.lines > e.opts.LinesPerPageBreak {
		e.lines -= e.opts.LinesPerPageBreak
		e.page++
	}
	return landedOn
}

// lineWeight implements the spec §4.7 content-type weight table.
func lineWeight(b document.Block, charsPerLine int) int {
	switch v := b.(type) {
	case *document.Heading:
		return 4
	case *document.Paragraph:
		return ceilDiv(len(v.OriginalText), charsPerLine)
	case *document.ListItem:
		return listItemWeight(v, charsPerLine)
	case *document.ImagePlaceholder:
		return 12
	case *document.Table:
		return 2 + v.RowCount()
	case *document.Caption:
		return ceilDiv(len(v.OriginalText), charsPerLine)
	case *document.MathFormula:
		return 1
	case *document.CodeBlock:
		return countLines(v.OriginalText)
	case *document.Footnote:
		return ceilDiv(len(v.OriginalText), charsPerLine)
	default:
		return 1
	}
}

// listItemWeight grows with nesting depth, the same "weighted by
// nesting" rule the spec names without a fixed formula: each nesting
// level adds one more line of indentation overhead on top of the
// wrapped-text line count.
func listItemWeight(l *document.ListItem, charsPerLine int) int {
	base := ceilDiv(len(l.OriginalText), charsPerLine)
	return base + l.NestingLevel
}

func ceilDiv(n, d int) int {
	if n <= 0 {
		return 1
	}
	return int(math.Ceil(float64(n) / float64(d)))
}

func countLines(s string) int {
	if s == "" {
		return 1
	}
	n := 1
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}
