// Package extract defines the two external extraction contracts consumed
// by the Hybrid Content Reconciler (spec §6.1, §6.2): a LayoutExtractor
// that yields positioned text fragments plus structural hints, and a
// VisualExtractor that yields binary image assets plus their page
// positions. backend.go provides the default, in-process implementation,
// built on ledongthuc/pdf for text/position and pdfcpu for image bytes;
// tablehints.go carves table regions out of the text layer directly, no
// separate parsing sub-package required. internal/extract/ocr and
// internal/extract/yolo are optional scanned-page fallbacks PDFBackend
// consults, contributing text and ElementRegion hints respectively
// rather than standing in as their own LayoutExtractor.
//
// Callers depend only on these two narrow interfaces (spec §9 "narrow
// interfaces" design note) — the reconciler never imports backend.go's
// PDF-library dependencies directly.
package extract

import (
	"context"
	"errors"
)

// ErrExtractorUnavailable is returned by an extractor implementation that
// cannot currently serve requests (e.g. no backend process reachable, or
// a required native library/binary missing). Per spec §6.1 this triggers
// a retry with an alternative extractor.
var ErrExtractorUnavailable = errors.New("extract: extractor unavailable")

// ErrExtractorTimeout is returned when an extraction call exceeds its
// configured timeout.
var ErrExtractorTimeout = errors.New("extract: extractor timed out")

// ErrExtractorCorruptInput is returned when the input PDF cannot be
// parsed at all. Per spec §6.1 this is fatal for that PDF (quarantine).
var ErrExtractorCorruptInput = errors.New("extract: corrupt or unreadable PDF input")

// PageRange restricts extraction to a subset of pages. A zero value
// (Start == End == 0) means "all pages".
type PageRange struct {
	Start int // 1-indexed, inclusive
	End   int // 1-indexed, inclusive
}

// BBox is the extractor's page-space bounding box, independent of the
// document model's BBox so this package has no compile-time dependency
// on internal/document (spec §9 "narrow interfaces").
type BBox struct {
	X, Y, Width, Height float64
}

// Fragment is one positioned text run with the structural hints the
// layout extractor contract promises (spec §6.1): font identity, weight,
// and slant, plus the page it was found on.
type Fragment struct {
	Text      string
	BBox      BBox
	FontName  string
	FontSize  float64
	Bold      bool
	Italic    bool
	PageIndex int // 0-indexed
}

// LatexSpan is a detected inline or block LaTeX span within a page's text.
type LatexSpan struct {
	PageIndex int
	Text      string
	Display   bool // true for $$...$$ / \begin{equation}, false for $...$
}

// TableRegion is a detected table region (markdown pipes or grid lines)
// prior to cell-level parsing.
type TableRegion struct {
	PageIndex int
	BBox      BBox
	Rows      [][]string
}

// FigurePlaceholder is an inline token in the text stream marking where a
// figure belongs in reading order, independent of the visual extractor's
// own image bounding boxes.
type FigurePlaceholder struct {
	PageIndex int
	BBox      BBox
	Token     string
}

// HeadingCandidate flags a fragment index (within a page's Fragments
// slice) as a structural heading candidate, e.g. from a detected
// "^\d+(\.\d+)*\s" section-number prefix or explicit style markup, ahead
// of the reconciler's own font-size-driven classification (spec §4.1
// step 3).
type HeadingCandidate struct {
	PageIndex     int
	FragmentIndex int
	Reason        string
}

// ElementRegion flags a detected page region's structural role ahead of
// the reconciler's own font-ratio/position heuristics (spec §6.1
// "optional object-detection layout extractor" binding). Unlike
// HeadingCandidate, which flags a specific fragment, an ElementRegion is
// a bounding box: any block whose own bbox falls inside it inherits the
// labeled role. Populated only when a yolo.Client is configured and
// healthy; absent otherwise, in which case the reconciler's own
// heuristics are authoritative.
type ElementRegion struct {
	PageIndex int
	BBox      BBox
	Label     string // "title", "section_header", "footnote", "page_header", "page_footer", ...
}

// BlockHints carries the layout extractor's structural hints for a whole
// document (spec §6.1 "block hints"), used by the reconciler alongside
// raw Fragments.
type BlockHints struct {
	LatexSpans         []LatexSpan
	TableRegions       []TableRegion
	FigurePlaceholders []FigurePlaceholder
	HeadingCandidates  []HeadingCandidate
	ElementRegions     []ElementRegion
}

// LayoutPage is one page's worth of layout-extractor output.
type LayoutPage struct {
	PageIndex int
	Width     float64
	Height    float64
	Fragments []Fragment
}

// LayoutOutput is the complete output of one LayoutExtractor call.
type LayoutOutput struct {
	Pages []LayoutPage
	Hints BlockHints
}

// LayoutExtractor yields positioned text with structural hints for a PDF
// (spec §6.1). Implementations must return ErrExtractorCorruptInput for
// unparseable input and ErrExtractorUnavailable/ErrExtractorTimeout for
// transient failures the caller may retry with an alternative extractor.
type LayoutExtractor interface {
	ExtractLayout(ctx context.Context, pdfPath string, pages PageRange) (LayoutOutput, error)
}

// ImageAsset is one binary image yielded by the visual extractor (spec
// §6.2), already filtered by the caller's min-dimension/aspect-ratio
// decorative-image rule.
type ImageAsset struct {
	AssetID     string
	Binary      []byte
	MimeType    string
	BBox        BBox
	PageIndex   int
	MinDimPx    int
	AspectRatio float64
}

// VisualOutput is the complete output of one VisualExtractor call.
type VisualOutput struct {
	Images []ImageAsset
}

// VisualExtractor yields binary images and their page positions for a PDF
// (spec §6.2). A VisualExtractor failure is always recoverable: callers
// proceed with a Document that has no images (spec §4.1 failure
// semantics).
type VisualExtractor interface {
	ExtractVisuals(ctx context.Context, pdfPath string) (VisualOutput, error)
}

// HealthChecker is implemented by extractors that require a
// health-check-before-use contract (spec §9 design note: "process-
// spawning is an implementation option, not a design element" — the
// spec mandates a deterministic health check ahead of first use instead
// of ad-hoc subprocess patching). Extractors with no external dependency
// need not implement it; PDFBackend implements it to check its optional
// OCR and layout-detection fallbacks.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// FilterDecorative reports whether an image should be dropped as
// decorative per spec §4.1 step 9 / §6.2: very thin/wide images or images
// below the configured minimum dimension.
func FilterDecorative(minDimPx int, maxAspectRatio float64, widthPx, heightPx int) bool {
	minDim := widthPx
	if heightPx < minDim {
		minDim = heightPx
	}
	if minDim < minDimPx {
		return true
	}
	aspect := aspectRatio(widthPx, heightPx)
	return aspect > maxAspectRatio
}

func aspectRatio(w, h int) float64 {
	if h == 0 {
		return 0
	}
	ratio := float64(w) / float64(h)
	if ratio < 1 {
		ratio = 1 / ratio
	}
	return ratio
}
