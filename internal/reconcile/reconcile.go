// Package reconcile implements the Hybrid Content Reconciler (spec §4.1):
// it fuses a LayoutExtractor's positioned text fragments with a
// VisualExtractor's binary image assets into one ordered document.Document,
// classifying every fragment into a ContentBlock variant and resolving
// images, footnotes, captions, and reading order along the way.
//
// The reconciler depends only on the narrow extract.LayoutExtractor /
// extract.VisualExtractor contracts (internal/extract/extract.go) — never on
// the concrete PDF parsing sub-packages — so any extractor implementation
// that satisfies those interfaces can drive it.
package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/pdfxlate/pdfxlate/internal/document"
	"github.com/pdfxlate/pdfxlate/internal/extract"
)

// Options tunes the reconciliation heuristics (spec §6.4 "reconciliation"
// config section).
type Options struct {
	// HeadingMaxWords demotes a heading candidate back to a Paragraph when
	// its text exceeds this many words (spec §4.1 step 4 length filter).
	HeadingMaxWords int
	// HeadingMaxChars demotes a heading candidate back to a Paragraph when
	// its text exceeds this many characters, independent of word count
	// (spec §4.1 step 4's "or 100 characters" half of the same filter).
	HeadingMaxChars int
	// FootnoteFontRatio is not consulted by the reconciler: footnote
	// candidates are chosen by position (the bottom FootnoteZoneFraction
	// of the page) and a leading numeric marker, not by font size.
	FootnoteFontRatio    float64
	FootnoteZoneFraction float64
	// LineMergeYTolerance groups fragments into the same line when their Y
	// centers differ by less than this fraction of the line's font size.
	LineMergeYTolerance float64
	// ParagraphLineGapFactor continues a paragraph across lines separated
	// by less than this multiple of the line height; a larger gap starts a
	// new block.
	ParagraphLineGapFactor float64
	// MaxCaptionDistance caps how far (in page-height fractions) a caption
	// candidate may sit from its image/table to be attached.
	MaxCaptionDistance float64
	// MinHeadingFontRatio is the smallest font-size-to-body ratio that can
	// ever be classified as a heading, regardless of how it scores against
	// headingSizeRatios (spec §6.4 "heading_min_font_ratio").
	MinHeadingFontRatio float64
}

// DefaultOptions returns the spec §6.4 reconciliation defaults.
func DefaultOptions() Options {
	return Options{
		HeadingMaxWords:        15,
		HeadingMaxChars:        100,
		FootnoteFontRatio:      0.85,
		FootnoteZoneFraction:   0.15,
		LineMergeYTolerance:    0.3,
		ParagraphLineGapFactor: 1.8,
		MaxCaptionDistance:     0.08,
		MinHeadingFontRatio:    1.4,
	}
}

// Reconciler runs the fusion pipeline once per PDF.
type Reconciler struct {
	Layout  extract.LayoutExtractor
	Visual  extract.VisualExtractor
	Options Options

	// Images holds the VisualExtractor's output from the most recent
	// Reconcile call, keyed by the same asset ids placed into
	// ImagePlaceholders. The pipeline controller reads this after
	// Reconcile returns to persist each asset's binary under
	// <document_dir>/assets/ (spec §6.6) — the Document itself never
	// carries image bytes past reconciliation.
	Images []extract.ImageAsset
}

// New constructs a Reconciler with default options.
func New(layout extract.LayoutExtractor, visual extract.VisualExtractor) *Reconciler {
	return &Reconciler{Layout: layout, Visual: visual, Options: DefaultOptions()}
}

// Reconcile runs the full spec §4.1 pipeline for one PDF and returns a
// validated document.Document, or an error if layout extraction fails or the
// result violates a structural invariant. A visual extraction failure is not
// returned: the document is built without images.
func (r *Reconciler) Reconcile(ctx context.Context, pdfPath, docID, targetLang string) (*document.Document, error) {
	layoutOut, err := r.Layout.ExtractLayout(ctx, pdfPath, extract.PageRange{})
	if err != nil {
		return nil, fmt.Errorf("reconcile: layout extraction: %w", err)
	}

	var visualOut extract.VisualOutput
	if r.Visual != nil {
		visualOut, err = r.Visual.ExtractVisuals(ctx, pdfPath)
		if err != nil {
			// A visual-extractor failure is recoverable per spec §4.1: the
			// document proceeds with no images rather than failing the PDF.
			visualOut = extract.VisualOutput{}
		}
	}

	r.Images = visualOut.Images

	doc := document.NewDocument(docID, targetLang)
	doc.FontProfile = analyzeFonts(layoutOut.Pages, r.Options.MinHeadingFontRatio)

	for _, lp := range layoutOut.Pages {
		page := &document.Page{Width: lp.Width, Height: lp.Height}
		blocks := r.classifyPage(lp, layoutOut.Hints, doc.FontProfile)
		blocks = filterArtifacts(blocks, lp.Height)
		page.Blocks = blocks
		doc.AddPage(page)
	}

	repeated := findRepeatingMarginText(doc.Pages)
	for _, p := range doc.Pages {
		p.Blocks = filterRepeatingMarginText(p.Blocks, p.Height, repeated)
		p.Blocks = r.extractFootnotes(doc, p.Blocks, p.Number, p.Height)
	}
	mergeAdjacentHeadings(doc)

	r.placeImages(doc, visualOut)

	for _, p := range doc.Pages {
		r.reorderPage(p)
		if err := document.ValidateReadingOrder(p); err != nil {
			return nil, fmt.Errorf("reconcile: %w", err)
		}
	}
	assignBookmarkIDs(doc)

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	return doc, nil
}

// assignBookmarkIDs gives every Heading a unique bookmark id, grounded on
// the assembler's two-pass TOC design (spec §4.7) which looks them up by id.
func assignBookmarkIDs(doc *document.Document) {
	for i, h := range doc.Headings() {
		h.BookmarkID = fmt.Sprintf("bm_%03d", i+1)
	}
}

// sortFragmentsReadingOrder sorts fragments top-to-bottom, left-to-right in
// PDF space (Y grows upward, so descending Y is "down the page").
func sortFragmentsReadingOrder(frags []extract.Fragment) {
	sort.SliceStable(frags, func(i, j int) bool {
		if frags[i].BBox.Y != frags[j].BBox.Y {
			return frags[i].BBox.Y > frags[j].BBox.Y
		}
		return frags[i].BBox.X < frags[j].BBox.X
	})
}

func toDocBBox(b extract.BBox) document.BBox {
	return document.BBox{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}
