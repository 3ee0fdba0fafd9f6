package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfxlate/pdfxlate/internal/assemble"
	"github.com/pdfxlate/pdfxlate/internal/batch"
	"github.com/pdfxlate/pdfxlate/internal/cache"
	"github.com/pdfxlate/pdfxlate/internal/extract"
	"github.com/pdfxlate/pdfxlate/internal/extract/ocr"
	"github.com/pdfxlate/pdfxlate/internal/extract/yolo"
	"github.com/pdfxlate/pdfxlate/internal/pipeline"
	"github.com/pdfxlate/pdfxlate/internal/quarantine"
	"github.com/pdfxlate/pdfxlate/internal/reconcile"
	"github.com/pdfxlate/pdfxlate/internal/router"
	"github.com/pdfxlate/pdfxlate/internal/translate"
)

// Factory holds every long-lived collaborator a run's documents share —
// the quarantine store, the optional persistent cache, the layout/visual
// extractor, and the strategy router — so NewController only has to build
// the one thing that can't be shared: a batch.Executor, whose DocumentID
// is fixed at construction and would otherwise leak one document's id
// into another document's quarantine entries.
type Factory struct {
	cfg *Config

	backend    *extract.PDFBackend
	translator *translate.Translator
	strategy   *router.Router
	grouping   batch.GroupingOptions
	batchCfg   batch.Config

	cache      *cache.Cache
	quarantine *quarantine.Store
	cacheStore *cache.Store
	ocrClient  *ocr.Client
}

// quarantineSink adapts *quarantine.Store to batch.QuarantineSink.
// batch.QuarantineEntry and quarantine.QuarantineEntry are independently
// declared (see quarantine.QuarantineEntry's doc comment) so this package,
// which already imports both, is where the two get wired together.
type quarantineSink struct {
	store *quarantine.Store
}

func (s quarantineSink) Quarantine(ctx context.Context, e batch.QuarantineEntry) error {
	return s.store.Quarantine(ctx, quarantine.QuarantineEntry{
		DocumentID:       e.DocumentID,
		BlockID:          e.BlockID,
		BlockType:        e.BlockType,
		OriginalText:     e.OriginalText,
		LastError:        e.LastError,
		AttemptCount:     e.AttemptCount,
		ContextNeighbors: e.ContextNeighbors,
	})
}

// Close releases every resource the Factory opened: the quarantine store,
// the persistent cache store, then the OCR client.
func (f *Factory) Close() {
	if f.quarantine != nil {
		f.quarantine.Close()
	}
	if f.cacheStore != nil {
		f.cacheStore.Close()
	}
	if f.ocrClient != nil {
		f.ocrClient.Close()
	}
}

// NewFactory opens every shared resource a validated Config names —
// the quarantine store, and, if enabled, the persistent cache tier and an
// OCR fallback client — and returns a Factory ready to build one
// Controller per document. The caller must Close the Factory once every
// document in the run has been processed.
func NewFactory(cfg *Config) (*Factory, error) {
	f := &Factory{cfg: cfg}

	qs, err := quarantine.Open(filepath.Join(cfg.Quarantine.Directory, "quarantine.db"))
	if err != nil {
		return nil, fmt.Errorf("config: open quarantine store: %w", err)
	}
	f.quarantine = qs

	backend := extract.NewPDFBackend()
	backend.MinImageWidthPx = cfg.Reconciliation.MinImageWidthPx
	backend.MinImageHeightPx = cfg.Reconciliation.MinImageHeightPx
	backend.MaxAspectRatio = cfg.Reconciliation.MaxAspectRatio
	if client, err := ocr.New(cfg.Reconciliation.OCRLanguage); err == nil {
		backend.OCR = client
		f.ocrClient = client
	}
	if cfg.Reconciliation.LayoutDetectorURL != "" {
		backend.Layout = yolo.New(cfg.Reconciliation.LayoutDetectorURL)
	}
	f.backend = backend

	if cfg.Cache.EnablePersistent {
		if err := os.MkdirAll(filepath.Dir(cfg.Cache.PersistentPath), 0o755); err != nil {
			f.Close()
			return nil, fmt.Errorf("config: create cache directory: %w", err)
		}
		store, err := cache.Open(cfg.Cache.PersistentPath)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("config: open cache store: %w", err)
		}
		f.cacheStore = store
		opts := cache.DefaultOptions()
		opts.MemoryCapacity = cfg.Cache.MemoryCapacity
		opts.SimilarityThreshold = cfg.Cache.SimilarityThreshold
		opts.PersistentCapacity = cfg.Cache.PersistentCapacity
		if !cfg.Cache.EnableMemory {
			opts.MemoryCapacity = 0
		}
		f.cache = cache.New(store, opts)
	}

	endpoint := translate.NewHTTPEndpointClient(cfg.Translation.BaseURL, cfg.Translation.APIKey)
	f.translator = translate.New(endpoint)

	f.batchCfg = batch.DefaultConfig()
	f.batchCfg.QualityModel = cfg.Routing.QualityModel
	f.batchCfg.CostModel = cfg.Routing.CostModel
	f.batchCfg.Temperature = cfg.Translation.Temperature
	f.batchCfg.MaxCorrectionAttempts = cfg.SelfCorrection.MaxAttempts
	f.batchCfg.Concurrency = cfg.Translation.MaxConcurrentTranslations

	f.grouping = batch.GroupingOptions{
		Enable:            cfg.Grouping.Enable,
		MaxGroupSizeChars: cfg.Grouping.MaxGroupSizeChars,
		MaxItemsPerGroup:  cfg.Grouping.MaxItemsPerGroup,
	}

	f.strategy = router.New(router.ParseKnob(cfg.Routing.Strategy), nil)
	f.strategy.ComplexityThreshold = cfg.Routing.ComplexityThreshold

	return f, nil
}

// NewController builds a pipeline.Controller scoped to one document,
// spinning up a fresh batch.Executor bound to docID/targetLang while
// reusing every resource the run's documents share.
func (f *Factory) NewController(docID, targetLang string) *pipeline.Controller {
	executor := batch.NewExecutor(f.translator, f.cache, quarantineSink{f.quarantine}, docID, targetLang, f.batchCfg)

	recOpts := reconcile.DefaultOptions()
	recOpts.HeadingMaxWords = f.cfg.Reconciliation.HeadingMaxWords
	recOpts.HeadingMaxChars = f.cfg.Reconciliation.HeadingMaxChars
	recOpts.MinHeadingFontRatio = f.cfg.Reconciliation.HeadingMinFontRatio

	return pipeline.New(pipeline.Deps{
		Layouts:          []extract.LayoutExtractor{f.backend},
		Visual:           f.backend,
		ReconcileOptions: recOpts,

		Router:   f.strategy,
		Grouping: f.grouping,
		Executor: executor,

		Assembler: assemble.New(),
		Writer:    assemble.MarkdownFileWriter{},

		Cache:      f.cache,
		Quarantine: f.quarantine,
	})
}
