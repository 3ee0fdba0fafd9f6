package reconcile

import (
	"math"
	"sort"

	"github.com/pdfxlate/pdfxlate/internal/document"
	"github.com/pdfxlate/pdfxlate/internal/extract"
)

// headingSizeRatios mirrors the layout analyzer's heading font-size ratio
// table (internal/extract/layout/heading.go): entry i is the size-to-body
// ratio of heading level i+1, from H1 (1.8) down to H6 (1.05), and a font
// size maps to the level whose ratio is closest to its own.
var headingSizeRatios = []float64{1.8, 1.6, 1.4, 1.25, 1.125, 1.05}

// analyzeFonts performs the global font analysis of spec §4.1 step 2: the
// most frequent font size across the whole document (weighted by the
// number of characters set in it) is taken as the body size, and every
// size above it by at least minRatio (spec §6.4
// reconciliation.heading_min_font_ratio) is mapped to a heading level.
func analyzeFonts(pages []extract.LayoutPage, minRatio float64) document.FontProfile {
	sizeWeight := map[float64]int{}
	nameWeight := map[string]int{}
	for _, p := range pages {
		for _, f := range p.Fragments {
			n := len([]rune(f.Text))
			if n == 0 {
				continue
			}
			size := roundHalf(f.FontSize)
			sizeWeight[size] += n
			nameWeight[f.FontName] += n
		}
	}

	body := 12.0
	bestWeight := -1
	for size, w := range sizeWeight {
		if w > bestWeight {
			bestWeight = w
			body = size
		}
	}

	bodyName := ""
	bestNameWeight := -1
	for name, w := range nameWeight {
		if w > bestNameWeight {
			bestNameWeight = w
			bodyName = name
		}
	}

	var distinctSizes []float64
	for size := range sizeWeight {
		if size > body {
			distinctSizes = append(distinctSizes, size)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(distinctSizes)))

	levels := map[float64]int{}
	for _, size := range distinctSizes {
		ratio := size / body
		if ratio < minRatio {
			continue
		}
		level := classifyHeadingLevel(ratio)
		if level > 0 {
			levels[size] = level
		}
	}

	return document.FontProfile{
		BodyFontName:  bodyName,
		BodyFontSize:  body,
		HeadingLevels: levels,
	}
}

// classifyHeadingLevel maps a font-size-to-body ratio onto the closest
// heading level in headingSizeRatios, or 0 if the ratio is too close to
// body size to be a heading.
func classifyHeadingLevel(ratio float64) int {
	if ratio < headingSizeRatios[len(headingSizeRatios)-1] {
		return 0
	}
	best := 0
	bestDiff := math.MaxFloat64
	for i, r := range headingSizeRatios {
		diff := math.Abs(ratio - r)
		if diff < bestDiff {
			bestDiff = diff
			best = i + 1
		}
	}
	return best
}

func roundHalf(v float64) float64 {
	return math.Round(v*2) / 2
}
