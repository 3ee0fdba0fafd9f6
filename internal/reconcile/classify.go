package reconcile

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdfxlate/pdfxlate/internal/document"
	"github.com/pdfxlate/pdfxlate/internal/extract"
)

// line is one merged row of fragments sharing a Y band, built ahead of
// block classification.
type line struct {
	text     string
	bbox     extract.BBox
	fontSize float64
	fontName string
	bold     bool
}

// classifyPage runs spec §4.1 steps 3-5 for a single page: merge fragments
// into lines, carve out tables and LaTeX spans using the extractor's block
// hints, then classify each remaining line into a Heading, ListItem, or
// Paragraph (merging paragraph continuations).
func (r *Reconciler) classifyPage(lp extract.LayoutPage, hints extract.BlockHints, profile document.FontProfile) []document.Block {
	pageNum := lp.PageIndex + 1
	seq := 0
	nextID := func() string {
		seq++
		return fmt.Sprintf("p%d_b%04d", pageNum, seq)
	}

	frags := append([]extract.Fragment(nil), lp.Fragments...)
	sortFragmentsReadingOrder(frags)

	consumed := markTableFragments(frags, hints, lp.PageIndex)

	var blocks []document.Block
	lines := mergeLines(frags, consumed, r.Options.LineMergeYTolerance)

	var pendingParagraph *document.Paragraph
	flushParagraph := func() {
		if pendingParagraph != nil {
			blocks = append(blocks, pendingParagraph)
			pendingParagraph = nil
		}
	}

	var prevLine *line
	for i := range lines {
		ln := &lines[i]
		text := strings.TrimSpace(ln.text)
		if text == "" {
			continue
		}

		if latex, display, ok := matchLatex(text, hints, lp.PageIndex); ok {
			flushParagraph()
			blocks = append(blocks, document.NewMathFormula(nextID(), pageNum, toDocBBox(ln.bbox), latex, display))
			prevLine = ln
			continue
		}

		if looksLikeCode(text, ln.fontName) {
			flushParagraph()
			blocks = append(blocks, document.NewCodeBlock(nextID(), pageNum, toDocBBox(ln.bbox), text, ""))
			prevLine = ln
			continue
		}

		if level := headingLevel(ln.fontSize, profile); level > 0 && wordCount(text) <= r.Options.HeadingMaxWords && len(text) <= r.Options.HeadingMaxChars {
			flushParagraph()
			blocks = append(blocks, document.NewHeading(nextID(), pageNum, toDocBBox(ln.bbox), text, level, ""))
			prevLine = ln
			continue
		}

		if level := elementRegionHeadingLevel(ln.bbox, hints.ElementRegions, lp.PageIndex); level > 0 {
			flushParagraph()
			blocks = append(blocks, document.NewHeading(nextID(), pageNum, toDocBBox(ln.bbox), text, level, ""))
			prevLine = ln
			continue
		}

		if marker, kind, nesting, ordered, rest := matchListMarker(text); marker != "" {
			flushParagraph()
			item := document.NewListItem(nextID(), pageNum, toDocBBox(ln.bbox), rest, marker, nesting, ordered)
			item.MarkerKind = kind
			blocks = append(blocks, item)
			prevLine = ln
			continue
		}

		// Paragraph continuation: merge into the pending paragraph when the
		// vertical gap from the previous line is small relative to line
		// height (spec §4.1 step 5).
		if pendingParagraph != nil && prevLine != nil && sameParagraphFlow(prevLine, ln, r.Options.ParagraphLineGapFactor) {
			pendingParagraph.OriginalText = strings.TrimSpace(pendingParagraph.OriginalText + " " + text)
			pendingParagraph.BoundingBox = unionBBox(pendingParagraph.BoundingBox, toDocBBox(ln.bbox))
			pendingParagraph.IsContinuation = true
			prevLine = ln
			continue
		}

		flushParagraph()
		pendingParagraph = document.NewParagraph(nextID(), pageNum, toDocBBox(ln.bbox), text)
		prevLine = ln
	}
	flushParagraph()

	blocks = append(blocks, tableBlocksForPage(hints, lp.PageIndex, pageNum, nextID)...)
	return blocks
}

// headingLevel looks up the FontProfile's heading-level map for a line's
// font size, tolerating the same 0.5pt rounding used to build it.
func headingLevel(fontSize float64, profile document.FontProfile) int {
	return profile.HeadingLevels[roundHalf(fontSize)]
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// elementRegionHeadingLevel reports the heading level an object-detection
// region implies for a line, ahead of the font-ratio heuristic
// headingLevel uses: level 1 for a detected "title" region, level 2 for
// "section_header", 0 if no region on this page overlaps the line (the
// common case — ElementRegions is only populated for scanned pages with a
// configured extract/yolo.Client, spec §6.1's optional binding).
func elementRegionHeadingLevel(bbox extract.BBox, regions []extract.ElementRegion, pageIndex int) int {
	for _, r := range regions {
		if r.PageIndex != pageIndex || !bboxesOverlap(bbox, r.BBox) {
			continue
		}
		switch r.Label {
		case "title":
			return 1
		case "section_header":
			return 2
		}
	}
	return 0
}

// bboxesOverlap reports whether two extractor-space boxes share any area.
func bboxesOverlap(a, b extract.BBox) bool {
	return a.X < b.X+b.Width && a.X+a.Width > b.X &&
		a.Y < b.Y+b.Height && a.Y+a.Height > b.Y
}

var listMarkerPattern = regexp.MustCompile(`^(\s*)([•▪◦·‣∙-]|(\d+)[.)]|([a-zA-Z])[.)]|([ivxlcdm]+)[.)])\s+(.*)$`)

// matchListMarker reports whether text opens with a bullet, numeric,
// lettered, or roman list marker, returning the marker, nesting level
// (derived from leading indentation), orderedness, and remaining text.
func matchListMarker(text string) (marker string, kind document.ListMarkerKind, nesting int, ordered bool, rest string) {
	m := listMarkerPattern.FindStringSubmatch(text)
	if m == nil {
		return "", 0, 0, false, text
	}
	indent := len(m[1])
	markerTok := m[2]
	rest = m[6]
	switch {
	case m[3] != "":
		return markerTok, document.MarkerNumber, indent / 2, true, rest
	case m[4] != "":
		return markerTok, document.MarkerLetter, indent / 2, true, rest
	case m[5] != "":
		return markerTok, document.MarkerRoman, indent / 2, true, rest
	default:
		return markerTok, document.MarkerBullet, indent / 2, false, rest
	}
}

var monospaceFontPattern = regexp.MustCompile(`(?i)courier|mono|consolas|menlo|firacode`)

func looksLikeCode(text, fontName string) bool {
	return monospaceFontPattern.MatchString(fontName)
}

func matchLatex(text string, hints extract.BlockHints, pageIndex int) (latex string, display document.DisplayMode, ok bool) {
	for _, span := range hints.LatexSpans {
		if span.PageIndex != pageIndex {
			continue
		}
		if strings.Contains(text, span.Text) || strings.Contains(span.Text, text) {
			mode := document.DisplayInline
			if span.Display {
				mode = document.DisplayBlock
			}
			return span.Text, mode, true
		}
	}
	return "", document.DisplayInline, false
}

// mergeLines groups fragments whose Y centers fall within tolerance into a
// single line, skipping any fragment already consumed by table detection.
func mergeLines(frags []extract.Fragment, consumed map[int]bool, tolerance float64) []line {
	var lines []line
	var cur *line
	var curY float64
	for i, f := range frags {
		if consumed[i] {
			continue
		}
		fy := f.BBox.Y + f.BBox.Height/2
		if cur != nil && f.FontSize > 0 && abs(fy-curY) <= f.FontSize*tolerance {
			cur.text = strings.TrimRight(cur.text, " ") + " " + strings.TrimSpace(f.Text)
			cur.bbox = unionFragBBox(cur.bbox, f.BBox)
			if f.FontSize > cur.fontSize {
				cur.fontSize = f.FontSize
				cur.fontName = f.FontName
			}
			cur.bold = cur.bold || f.Bold
			continue
		}
		lines = append(lines, line{
			text:     strings.TrimSpace(f.Text),
			bbox:     f.BBox,
			fontSize: f.FontSize,
			fontName: f.FontName,
			bold:     f.Bold,
		})
		cur = &lines[len(lines)-1]
		curY = fy
	}
	return lines
}

// sameParagraphFlow reports whether two consecutive lines belong to the
// same paragraph: no heading/list classification intervened and the
// vertical gap between them is small relative to line height.
func sameParagraphFlow(prev, cur *line, gapFactor float64) bool {
	gap := prev.bbox.Y - (cur.bbox.Y + cur.bbox.Height)
	lineHeight := cur.fontSize
	if lineHeight <= 0 {
		lineHeight = prev.fontSize
	}
	if lineHeight <= 0 {
		lineHeight = 12
	}
	return gap >= -lineHeight && gap <= lineHeight*gapFactor
}

func unionFragBBox(a, b extract.BBox) extract.BBox {
	x0 := min2(a.X, b.X)
	y0 := min2(a.Y, b.Y)
	x1 := max2(a.X+a.Width, b.X+b.Width)
	y1 := max2(a.Y+a.Height, b.Y+b.Height)
	return extract.BBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func unionBBox(a, b document.BBox) document.BBox {
	x0 := min2(a.X, b.X)
	y0 := min2(a.Y, b.Y)
	x1 := max2(a.X+a.Width, b.X+b.Width)
	y1 := max2(a.Y+a.Height, b.Y+b.Height)
	return document.BBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
