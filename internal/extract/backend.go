package extract

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/pdfxlate/pdfxlate/internal/extract/ocr"
	"github.com/pdfxlate/pdfxlate/internal/extract/yolo"
)

// PDFBackend is the default, in-process LayoutExtractor and
// VisualExtractor implementation (spec §6.1/§6.2, SPEC_FULL §4.1b): text
// and position data come from ledongthuc/pdf's row-grouped text layer,
// image bytes come from pdfcpu's image-extraction mode. A page whose
// direct text yield is empty (a scanned page) falls back to OCR, gated
// by HealthCheck per the spec's health-check-before-use extractor
// contract.
type PDFBackend struct {
	// MinImageWidthPx/MinImageHeightPx/MaxAspectRatio mirror the
	// reconciliation config of spec §6.4 used to filter decorative
	// images at the source.
	MinImageWidthPx  int
	MinImageHeightPx int
	MaxAspectRatio   float64

	// OCR, if non-nil, is used as a fallback text source for pages with
	// no extractable text. HealthCheck is called once before first use.
	OCR        *ocr.Client
	ocrHealthy bool
	ocrChecked bool

	// Layout, if non-nil, classifies scanned pages' structural regions
	// (title, footnote, page header/footer, ...) from the same rendered
	// page image OCR falls back to, ahead of the reconciler's font-ratio
	// heuristics (spec §6.1's optional object-detection extractor).
	Layout        *yolo.Client
	layoutHealthy bool
	layoutChecked bool
}

// NewPDFBackend returns a PDFBackend with the spec §6.4 reconciliation
// defaults.
func NewPDFBackend() *PDFBackend {
	return &PDFBackend{
		MinImageWidthPx:  50,
		MinImageHeightPx: 50,
		MaxAspectRatio:   20,
	}
}

var _ LayoutExtractor = (*PDFBackend)(nil)
var _ VisualExtractor = (*PDFBackend)(nil)

// ExtractLayout implements LayoutExtractor: it opens pdfPath with
// ledongthuc/pdf, walks every selected page's rows via GetTextByRow,
// clusters each row into cell-granularity Fragments by horizontal gap
// (internal/extract/tablehints.go's table detector needs that finer
// granularity; internal/reconcile's own line merging reassembles normal
// reading lines from it), and folds in table/LaTeX hints.
func (b *PDFBackend) ExtractLayout(ctx context.Context, pdfPath string, rng PageRange) (LayoutOutput, error) {
	f, rdr, err := pdf.Open(pdfPath)
	if err != nil {
		return LayoutOutput{}, fmt.Errorf("%w: %v", ErrExtractorCorruptInput, err)
	}
	defer f.Close()

	count := rdr.NumPage()
	start, end := resolveRange(rng, count)
	out := LayoutOutput{}

	for i := start; i <= end; i++ {
		if err := ctx.Err(); err != nil {
			return LayoutOutput{}, err
		}
		page := rdr.Page(i)
		if page.V.IsNull() {
			continue
		}
		width, height := pageDimensions(page)

		rows, err := page.GetTextByRow()
		if err != nil {
			rows = nil
		}
		var fragments []Fragment
		for _, row := range rows {
			fragments = append(fragments, rowToFragments(row, i-1)...)
		}

		if len(fragments) == 0 && b.OCR != nil {
			fragments = b.ocrFallback(pdfPath, i-1, width, height)
		}
		if len(fragments) == 0 && b.Layout != nil {
			out.Hints.ElementRegions = append(out.Hints.ElementRegions, b.layoutFallback(ctx, pdfPath, i-1)...)
		}

		lp := LayoutPage{PageIndex: i - 1, Width: width, Height: height, Fragments: fragments}
		out.Pages = append(out.Pages, lp)

		detectTableHints(&out.Hints, lp, i-1)
		b.detectLatexHints(&out.Hints, lp, i-1)
	}

	return out, nil
}

// ExtractVisuals implements VisualExtractor: for every page it shells out
// to pdfcpu's in-process image-extraction mode (api.ExtractImagesFile),
// decodes each extracted file's dimensions with the standard image
// package, and filters decorative images per spec §4.1 step 9 / §6.2.
func (b *PDFBackend) ExtractVisuals(ctx context.Context, pdfPath string) (VisualOutput, error) {
	f, rdr, err := pdf.Open(pdfPath)
	if err != nil {
		return VisualOutput{}, fmt.Errorf("%w: %v", ErrExtractorUnavailable, err)
	}
	defer f.Close()
	count := rdr.NumPage()

	var out VisualOutput
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return VisualOutput{}, err
		}
		pageWidth, pageHeight := pageDimensions(rdr.Page(i + 1))

		images, err := extractPageImages(pdfPath, i)
		if err != nil || len(images) == 0 {
			continue
		}
		for idx, img := range images {
			if FilterDecorative(min(b.MinImageWidthPx, b.MinImageHeightPx), b.MaxAspectRatio, img.Width, img.Height) {
				continue
			}
			out.Images = append(out.Images, ImageAsset{
				AssetID:     assetID(pdfPath, i, idx, img.Name),
				Binary:      img.Data,
				MimeType:    img.MimeType,
				BBox:        estimatedImageBBox(pageWidth, pageHeight, idx, len(images)),
				PageIndex:   i,
				MinDimPx:    min(img.Width, img.Height),
				AspectRatio: aspectRatio(img.Width, img.Height),
			})
		}
	}
	return out, nil
}

// HealthCheck satisfies HealthChecker: it verifies the OCR backend is
// usable (when configured) before the pipeline relies on it for a
// scanned-page fallback, per spec §9's health-check-before-use contract.
func (b *PDFBackend) HealthCheck(ctx context.Context) error {
	if b.OCR != nil {
		if err := b.OCR.HealthCheck(); err != nil {
			return fmt.Errorf("%w: ocr backend: %v", ErrExtractorUnavailable, err)
		}
	}
	if b.Layout != nil {
		if err := b.Layout.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%w: layout detection backend: %v", ErrExtractorUnavailable, err)
		}
	}
	return nil
}

func (b *PDFBackend) ocrFallback(pdfPath string, pageIndex int, width, height float64) []Fragment {
	if !b.ocrChecked {
		b.ocrHealthy = b.OCR.HealthCheck() == nil
		b.ocrChecked = true
	}
	if !b.ocrHealthy {
		return nil
	}
	images, err := extractPageImages(pdfPath, pageIndex)
	if err != nil || len(images) == 0 {
		return nil
	}
	var frags []Fragment
	for _, img := range images {
		recognized, err := b.OCR.RecognizeImage(img.Data)
		if err != nil || strings.TrimSpace(recognized) == "" {
			continue
		}
		frags = append(frags, Fragment{
			Text:      recognized,
			BBox:      BBox{X: 0, Y: 0, Width: width, Height: height},
			FontSize:  11,
			PageIndex: pageIndex,
		})
	}
	return frags
}

// layoutFallback classifies a scanned page's structural regions via the
// configured object-detection service, using the same pdfcpu-extracted
// page images ocrFallback recognizes text from. A detection failure or
// an unreachable service degrades to no hints, never to a fatal error:
// the reconciler's own font-ratio heuristics remain authoritative either
// way.
func (b *PDFBackend) layoutFallback(ctx context.Context, pdfPath string, pageIndex int) []ElementRegion {
	if !b.layoutChecked {
		b.layoutHealthy = b.Layout.HealthCheck(ctx) == nil
		b.layoutChecked = true
	}
	if !b.layoutHealthy {
		return nil
	}
	images, err := extractPageImages(pdfPath, pageIndex)
	if err != nil || len(images) == 0 {
		return nil
	}
	var regions []ElementRegion
	for _, img := range images {
		elements, err := b.Layout.DetectLayout(ctx, img.Data)
		if err != nil {
			continue
		}
		for _, el := range elements {
			regions = append(regions, ElementRegion{
				PageIndex: pageIndex,
				BBox:      BBox{X: el.BBox.X, Y: el.BBox.Y, Width: el.BBox.Width, Height: el.BBox.Height},
				Label:     string(el.Type),
			})
		}
	}
	return regions
}

var latexSpanPattern = regexp.MustCompile(`\$\$[^$]+\$\$|\$[^$]+\$|\\begin\{[a-zA-Z*]+\}`)

func (b *PDFBackend) detectLatexHints(hints *BlockHints, lp LayoutPage, pageIndex int) {
	for _, f := range lp.Fragments {
		if !latexSpanPattern.MatchString(f.Text) {
			continue
		}
		hints.LatexSpans = append(hints.LatexSpans, LatexSpan{
			PageIndex: pageIndex,
			Text:      f.Text,
			Display:   strings.Contains(f.Text, "$$") || strings.Contains(f.Text, `\begin{`),
		})
	}
}

// pageDimensions reads a page's MediaBox via ledongthuc/pdf's low-level
// Value API, grounded on babeldoc_translator.go's
// extractBlocksFromPageContent, which reads the same array the same way
// as a position-estimation fallback. Letter size is the fallback when a
// page has no MediaBox of its own and none is inherited.
func pageDimensions(page pdf.Page) (width, height float64) {
	width, height = 612, 792
	mb := page.V.Key("MediaBox")
	if mb.Kind() == pdf.Array && mb.Len() >= 4 {
		w := mb.Index(2).Float64() - mb.Index(0).Float64()
		h := mb.Index(3).Float64() - mb.Index(1).Float64()
		if w > 0 && h > 0 {
			width, height = w, h
		}
	}
	return width, height
}

// cellGapFactor is how many multiples of a row's average font size must
// separate two text runs before rowToFragments treats them as distinct
// cells rather than words in the same run: normal word spacing is a
// fraction of the font size, a table column gutter is several times it.
const cellGapFactor = 2.5

// rowToFragments turns one ledongthuc/pdf GetTextByRow row into one or
// more Fragments, splitting on horizontal gaps wide enough to be a table
// column gutter rather than word spacing. Adapted from parser.go's
// per-row merge loop (same bounds tracking, same isPostScriptCode/
// bold-italic-by-font-name detection), generalized from "one Fragment per
// row" to "one Fragment per contiguous run" so tablehints.go's column
// alignment check has cell-level data to work with.
func rowToFragments(row *pdf.Row, pageIndex int) []Fragment {
	if len(row.Content) == 0 {
		return nil
	}
	var frags []Fragment
	var b strings.Builder
	var minX, maxX, y, fontSizeSum float64
	var fontName string
	var n int
	lastEndX := 0.0

	flush := func() {
		defer func() { b.Reset(); n, fontSizeSum = 0, 0 }()
		if n == 0 {
			return
		}
		text := strings.TrimSpace(b.String())
		if text == "" || isPostScriptCode(text) || hasExcessiveNonPrintable(text) {
			return
		}
		avgFontSize := fontSizeSum / float64(n)
		if avgFontSize <= 0 {
			avgFontSize = 10
		}
		frags = append(frags, Fragment{
			Text:      text,
			BBox:      BBox{X: minX, Y: y, Width: maxX - minX, Height: avgFontSize * 1.2},
			FontName:  fontName,
			FontSize:  avgFontSize,
			Bold:      strings.Contains(strings.ToLower(fontName), "bold"),
			Italic:    strings.Contains(strings.ToLower(fontName), "italic") || strings.Contains(strings.ToLower(fontName), "oblique"),
			PageIndex: pageIndex,
		})
	}

	for _, t := range row.Content {
		if t.S == "" {
			continue
		}
		gap := t.X - lastEndX
		if n > 0 && gap > fontSizeSum/float64(n)*cellGapFactor {
			flush()
		}
		end := t.X + float64(len(t.S))*t.FontSize*0.5
		if n == 0 {
			minX, maxX, y = t.X, end, t.Y
			fontName = t.Font
		} else {
			minX = min(minX, t.X)
			maxX = max(maxX, end)
		}
		b.WriteString(t.S)
		fontSizeSum += t.FontSize
		n++
		lastEndX = maxX
	}
	flush()
	return frags
}

// isPostScriptCode reports whether text looks like a raw PDF content
// operator leaked through extraction rather than document text, grounded
// on parser.go's isPostScriptCode: the distinctive operator names are a
// far more reliable signal than trying to recognize real prose.
func isPostScriptCode(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	if (strings.Contains(text, " def ") || strings.HasSuffix(text, " def")) && strings.Contains(text, "/") {
		return true
	}
	operators := []string{
		"currentpoint", "gsave", "grestore", "newpath", "closepath",
		"setrgbcolor", "setgray", "setlinewidth", "showpage",
		"moveto", "lineto", "curveto", "stroke", "fill",
	}
	for _, op := range operators {
		if strings.Contains(lower, op) {
			return true
		}
	}
	return false
}

// hasExcessiveNonPrintable reports whether more than 10% of text's runes
// are control characters, the same ratio parser.go's helper of the same
// name uses to drop garbage extraction output.
func hasExcessiveNonPrintable(text string) bool {
	if text == "" {
		return false
	}
	bad := 0
	for _, r := range text {
		if (r < 32 && r != '\n' && r != '\r' && r != '\t') || (r >= 0x7F && r <= 0x9F) {
			bad++
		}
	}
	return float64(bad)/float64(len([]rune(text))) > 0.1
}

// extractedImage is one image pdfcpu wrote to a scratch directory during
// one extractPageImages call.
type extractedImage struct {
	Name     string
	Data     []byte
	Width    int
	Height   int
	MimeType string
}

// extractPageImages extracts every image on one 1-indexed PDF page using
// pdfcpu's in-process ExtractImagesFile (the same api package
// pdfcpu_overlay.go uses for merge/split/watermark), into a scratch
// directory removed before returning. Restricting selectedPages to the
// single page being asked about means the caller never has to parse
// pdfcpu's output filenames to recover which page an image came from.
func extractPageImages(pdfPath string, pageIndex int) ([]extractedImage, error) {
	dir, err := os.MkdirTemp("", "pdfxlate-extract-*")
	if err != nil {
		return nil, fmt.Errorf("extract: scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := api.ExtractImagesFile(pdfPath, dir, []string{strconv.Itoa(pageIndex + 1)}, nil); err != nil {
		return nil, fmt.Errorf("extract: pdfcpu image extraction: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("extract: read scratch dir: %w", err)
	}
	var out []extractedImage
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			continue
		}
		out = append(out, extractedImage{
			Name:     e.Name(),
			Data:     data,
			Width:    cfg.Width,
			Height:   cfg.Height,
			MimeType: mimeTypeFromExt(e.Name()),
		})
	}
	return out, nil
}

func mimeTypeFromExt(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

func resolveRange(rng PageRange, count int) (start, end int) {
	start, end = 1, count
	if rng.Start > 0 {
		start = rng.Start
	}
	if rng.End > 0 && rng.End < end {
		end = rng.End
	}
	return
}

// estimatedImageBBox places images evenly down the page in the absence of
// placement-matrix data from pdfcpu's image-extraction mode, which yields
// decoded pixels but not the XObject's position on the page. The
// reconciler's spatial association degrades gracefully to document order
// when bboxes coincide (see DESIGN.md).
func estimatedImageBBox(pageWidth, pageHeight float64, index, total int) BBox {
	if total == 0 {
		total = 1
	}
	slice := pageHeight / float64(total)
	return BBox{X: 0, Y: pageHeight - slice*float64(index+1), Width: pageWidth, Height: slice}
}

func assetID(pdfPath string, pageIndex, imgIndex int, name string) string {
	h := sha1.Sum([]byte(fmt.Sprintf("%s|%d|%d|%s", pdfPath, pageIndex, imgIndex, name)))
	return fmt.Sprintf("img_%x", h[:8])
}
