// Package pipeline implements the per-document Pipeline Controller (spec
// §5): it owns one Document end to end, coordinating the Hybrid Content
// Reconciler, the Translation Strategy Router, the Async Batch Executor,
// the Semantic Cache, the Quarantine Store, and the Two-Pass Assembler,
// and persists the spec §6.6 output tree once assembly completes.
//
// Grounded on valpere-peretran/internal/orchestrator/orchestrator.go's
// shape — a struct holding the collaborators a run needs plus one
// entrypoint method that fans work out and folds results back in — but
// generalized from "race N services, keep the first success" to "run one
// document through an ordered stage pipeline, folding partial failures
// into quarantine and trace rather than aborting."
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pdfxlate/pdfxlate/internal/assemble"
	"github.com/pdfxlate/pdfxlate/internal/batch"
	"github.com/pdfxlate/pdfxlate/internal/cache"
	"github.com/pdfxlate/pdfxlate/internal/document"
	"github.com/pdfxlate/pdfxlate/internal/extract"
	"github.com/pdfxlate/pdfxlate/internal/perr"
	"github.com/pdfxlate/pdfxlate/internal/quarantine"
	"github.com/pdfxlate/pdfxlate/internal/reconcile"
	"github.com/pdfxlate/pdfxlate/internal/retry"
	"github.com/pdfxlate/pdfxlate/internal/router"
	"github.com/pdfxlate/pdfxlate/internal/trace"
)

// Deps collects one controller's collaborators. Layouts lists the layout
// extractors to try in order (spec §6.1: "retry with alternative
// extractor"); Visual, Cache, and Quarantine may be nil to degrade that
// tier gracefully rather than fail the document.
type Deps struct {
	Layouts          []extract.LayoutExtractor
	Visual           extract.VisualExtractor
	ReconcileOptions reconcile.Options

	Router   *router.Router
	Grouping batch.GroupingOptions
	Executor *batch.Executor

	Assembler *assemble.Assembler
	Writer    assemble.FileWriter

	Cache      *cache.Cache
	Quarantine *quarantine.Store
}

// Controller runs Deps's stages over one Document at a time. A Controller
// is not shared state across Documents beyond its Deps: spec §5's
// "Document owned by its controller" is satisfied by constructing one
// Controller (or at least one call to ProcessDocument) per PDF.
type Controller struct {
	Deps Deps
}

// New constructs a Controller.
func New(deps Deps) *Controller {
	return &Controller{Deps: deps}
}

// ProcessDocument runs the full per-document pipeline: reconcile, route,
// group, translate, assemble, and persist. It returns a non-nil error
// only for document-fatal conditions (spec §7's "document" and "per-PDF"
// localities); block- and batch-scoped failures are absorbed into the
// returned Outcome's quarantine count and the trace instead.
func (c *Controller) ProcessDocument(ctx context.Context, pdfPath, docID, targetLang string, out OutputLayout) (*Outcome, error) {
	tr := trace.New(docID)
	outcome := &Outcome{DocumentID: docID, Trace: tr}

	doc, images, err := c.reconcileDocument(ctx, pdfPath, docID, targetLang, tr)
	if err != nil {
		return outcome, err
	}

	originalImageCount := len(doc.ImagePlaceholders())

	if err := persistAssets(out, images); err != nil {
		tr.Warnf("assets", "%v", err)
	}

	blocks := doc.AllBlocks()
	decisions := make([]router.Decision, len(blocks))
	translatable := 0
	for i, b := range blocks {
		d := c.Deps.Router.Route(b)
		decisions[i] = d
		if d.Strategy == router.StrategyPreserve {
			b.Base().TranslatedText = b.Base().OriginalText
			continue
		}
		translatable++
	}
	outcome.TranslatableBlockCount = translatable

	groups := batch.GroupBlocks(blocks, decisions, targetLang, c.Deps.Grouping)

	endTranslate := tr.StartSpan("translation")
	results, runErr := c.Deps.Executor.Run(ctx, groups)
	endTranslate(runErr)
	if runErr != nil {
		tr.Warnf("translation", "batch executor reported an error: %v", runErr)
	}

	quarantinedBlocks := applyResults(doc, results)
	outcome.EndpointUnreachable = translatable > 0 && quarantinedBlocks >= translatable

	if err := trace.AssertImagePreservation(originalImageCount, len(doc.ImagePlaceholders())); err != nil {
		return outcome, err
	}

	endAssemble := tr.StartSpan("assembly")
	asmResult, err := c.Deps.Assembler.Assemble(doc, tr)
	endAssemble(err)
	if err != nil {
		return outcome, err
	}

	if err := c.Deps.Writer.Write(out.OutputFile("md"), asmResult.Markdown); err != nil {
		return outcome, fmt.Errorf("pipeline: write output: %w", err)
	}

	outcome.QuarantineCount = c.quarantineCount(ctx, docID, quarantinedBlocks)

	if c.Deps.Cache != nil {
		if err := c.Deps.Cache.Dump(out.MemoryDumpPath()); err != nil {
			tr.Warnf("cache", "memory dump failed: %v", err)
		}
	}

	if err := tr.Persist(out.TraceFile()); err != nil {
		return outcome, fmt.Errorf("pipeline: persist trace: %w", err)
	}

	return outcome, nil
}

// reconcileDocument tries each of Deps.Layouts in order, retrying a given
// extractor per retry.ForKind before falling through to the next one, per
// spec §6.1's "first two [error kinds] trigger retry with alternative
// extractor; third quarantines the PDF."
func (c *Controller) reconcileDocument(ctx context.Context, pdfPath, docID, targetLang string, tr *trace.Trace) (doc *document.Document, images []extract.ImageAsset, err error) {
	if len(c.Deps.Layouts) == 0 {
		return nil, nil, perr.New(perr.KindConfigInvalid, "reconciliation", fmt.Errorf("no layout extractor configured"))
	}

	end := tr.StartSpan("reconciliation")
	defer func() { end(err) }()

	var lastErr error
	for i, layout := range c.Deps.Layouts {
		rec := reconcile.New(layout, c.Deps.Visual)
		rec.Options = c.Deps.ReconcileOptions

		policy := retry.ForKind(perr.KindExtractorUnavailable)
		var attemptDoc *document.Document
		attemptErr := policy.Do(ctx, isRetryableExtractorError, func(ctx context.Context) error {
			d, e := rec.Reconcile(ctx, pdfPath, docID, targetLang)
			attemptDoc = d
			return e
		})
		if attemptErr == nil {
			return attemptDoc, rec.Images, nil
		}
		if errors.Is(attemptErr, extract.ErrExtractorCorruptInput) {
			err = perr.New(perr.KindExtractorCorruptInput, "reconciliation", attemptErr)
			return nil, nil, err
		}
		lastErr = attemptErr
		tr.Warnf("reconciliation", "layout extractor %d failed, trying fallback: %v", i, attemptErr)
	}
	err = classifyExtractorError(lastErr)
	return nil, nil, err
}

func isRetryableExtractorError(err error) bool {
	return errors.Is(err, extract.ErrExtractorUnavailable) || errors.Is(err, extract.ErrExtractorTimeout)
}

func classifyExtractorError(err error) error {
	switch {
	case errors.Is(err, extract.ErrExtractorTimeout):
		return perr.New(perr.KindExtractorTimeout, "reconciliation", err)
	case errors.Is(err, extract.ErrExtractorUnavailable):
		return perr.New(perr.KindExtractorUnavailable, "reconciliation", err)
	default:
		return perr.New(perr.KindExtractorUnavailable, "reconciliation", err)
	}
}

// applyResults writes each BlockResult's translated text back onto its
// Document block by id, and returns how many blocks were quarantined.
// Table blocks carry no BlockResult.TranslatedText (the executor writes
// translated cell text directly into the Table's Rows), so an empty,
// non-quarantined result is a no-op here.
func applyResults(doc *document.Document, results []batch.BlockResult) int {
	quarantined := 0
	for _, r := range results {
		if r.Quarantined {
			quarantined++
		}
		if r.TranslatedText == "" {
			continue
		}
		b := doc.FindBlock(r.BlockID)
		if b == nil {
			continue
		}
		text := r.TranslatedText
		if r.Quarantined {
			text = "[TRANSLATION_FAILED] " + text
		}
		b.Base().TranslatedText = text
	}
	return quarantined
}

func (c *Controller) quarantineCount(ctx context.Context, docID string, fallback int) int {
	if c.Deps.Quarantine == nil {
		return fallback
	}
	n, err := c.Deps.Quarantine.Count(ctx, docID)
	if err != nil {
		return fallback
	}
	return n
}

// persistAssets writes every image the Reconciler retained to
// out.AssetsDir, named by its stable asset id (spec §6.6).
func persistAssets(out OutputLayout, images []extract.ImageAsset) error {
	if len(images) == 0 {
		return nil
	}
	if err := os.MkdirAll(out.AssetsDir(), 0o755); err != nil {
		return fmt.Errorf("pipeline: create assets directory: %w", err)
	}
	for _, img := range images {
		path := out.AssetPath(img.AssetID, extFromMimeType(img.MimeType))
		if err := os.WriteFile(path, img.Binary, 0o644); err != nil {
			return fmt.Errorf("pipeline: write asset %s: %w", img.AssetID, err)
		}
	}
	return nil
}

func extFromMimeType(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
