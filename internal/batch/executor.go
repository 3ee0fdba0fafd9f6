package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/pdfxlate/pdfxlate/internal/cache"
	"github.com/pdfxlate/pdfxlate/internal/document"
	"github.com/pdfxlate/pdfxlate/internal/perr"
	"github.com/pdfxlate/pdfxlate/internal/router"
	"github.com/pdfxlate/pdfxlate/internal/transport"
	"github.com/pdfxlate/pdfxlate/internal/translate"
)

// QuarantineEntry is one durably-recorded terminal translation failure
// (spec §4.8).
type QuarantineEntry struct {
	DocumentID       string
	BlockID          string
	BlockType        string
	OriginalText     string
	LastError        string
	AttemptCount     int
	ContextNeighbors []string
}

// QuarantineSink is the narrow contract the executor writes failures
// through; internal/quarantine.Store satisfies it.
type QuarantineSink interface {
	Quarantine(ctx context.Context, e QuarantineEntry) error
}

// BlockResult carries the outcome of translating one block back to the
// caller. For Table blocks, TranslatedText is unused — the executor
// writes translated cell text directly into the Table's Rows, since a
// table has no single text field — but a BlockResult is still emitted so
// the caller can tell the block was processed and whether it was
// quarantined.
type BlockResult struct {
	BlockID        string
	TranslatedText string
	Quarantined    bool
	Err            error
}

// Config parameterizes the Executor (spec §6.4 "translation" and
// "grouping" config sections).
type Config struct {
	QualityModel          string
	CostModel             string
	Temperature           float64
	MaxCorrectionAttempts int
	SourceLanguageHint    string
	GlossaryHint          string
	Concurrency           int     // max_concurrent_translations, default 10
	RequestsPerMinute     float64 // token-bucket rate, default 600
}

// DefaultConfig returns the spec §6.4 defaults for the fields Config owns.
func DefaultConfig() Config {
	return Config{
		Temperature:           0.1,
		MaxCorrectionAttempts: 2,
		Concurrency:           10,
		RequestsPerMinute:     600,
	}
}

// Executor dispatches Groups concurrently under a rate cap, grounded on
// valpere-peretran/internal/orchestrator/orchestrator.go's
// WaitGroup/result-channel fan-out, generalized from "one task per
// service" to "one task per group, bounded by a concurrency cap." The
// token-bucket limiter is golang.org/x/time/rate, promoted to a direct
// dependency here since the spec requires a requests-per-minute cap
// rather than just a concurrency cap.
type Executor struct {
	Translator *translate.Translator
	Cache      *cache.Cache
	Quarantine QuarantineSink
	Config     Config

	DocumentID string
	TargetLang string

	limiter *rate.Limiter
}

// NewExecutor builds an Executor. translator must not be nil; cache and
// quarantine may be: a nil cache disables lookups/writes, a nil quarantine
// sink means terminal failures are reported in the result only.
func NewExecutor(translator *translate.Translator, c *cache.Cache, quarantine QuarantineSink, documentID, targetLang string, cfg Config) *Executor {
	rps := cfg.RequestsPerMinute / 60.0
	burst := int(rps) + 1
	return &Executor{
		Translator: translator,
		Cache:      c,
		Quarantine: quarantine,
		Config:     cfg,
		DocumentID: documentID,
		TargetLang: targetLang,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Run dispatches every group concurrently, bounded by Config.Concurrency
// in-flight at once, and collects their BlockResults. Groups may
// complete out of order (spec §4.6); the caller is responsible for
// assigning results back onto the Document by block id, which preserves
// original block order regardless of completion order. Cancelling ctx
// aborts in-flight groups cooperatively at their next await point;
// results already produced are still returned.
func (e *Executor) Run(ctx context.Context, groups []Group) ([]BlockResult, error) {
	concurrency := e.Config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	type outcome struct {
		results []BlockResult
		err     error
	}

	sem := make(chan struct{}, concurrency)
	outCh := make(chan outcome, len(groups))
	var wg sync.WaitGroup

	for _, g := range groups {
		wg.Add(1)
		sem <- struct{}{}
		go func(g Group) {
			defer wg.Done()
			defer func() { <-sem }()
			res, err := e.runGroup(ctx, g)
			outCh <- outcome{results: res, err: err}
		}(g)
	}

	go func() {
		wg.Wait()
		close(outCh)
	}()

	var all []BlockResult
	var firstErr error
	for oc := range outCh {
		all = append(all, oc.results...)
		if oc.err != nil && firstErr == nil {
			firstErr = oc.err
		}
	}
	return all, firstErr
}

func (e *Executor) runGroup(ctx context.Context, g Group) ([]BlockResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if tbl, ok := g.Blocks[0].(*document.Table); ok && len(g.Blocks) == 1 {
		return e.runTableGroup(ctx, tbl)
	}
	return e.runTextGroup(ctx, g)
}

func (e *Executor) runTextGroup(ctx context.Context, g Group) ([]BlockResult, error) {
	results := make([]BlockResult, len(g.Blocks))

	var missIdx []int
	var missTexts []string
	for i, b := range g.Blocks {
		text := b.Base().OriginalText
		if e.Cache != nil {
			if entry, found, err := e.Cache.Lookup(ctx, text, e.Config.SourceLanguageHint, g.TargetLang); err == nil && found {
				results[i] = BlockResult{BlockID: b.Base().ID, TranslatedText: entry.TranslatedText}
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return results, nil
	}

	opts := translate.Options{
		TargetLanguage:        g.TargetLang,
		SourceLanguageHint:    e.Config.SourceLanguageHint,
		ModelIdentifier:       e.modelForStrategy(g.Strategy),
		Temperature:           e.Config.Temperature,
		PromptStyle:           promptStyleForImportance(g.MaxImportance()),
		GlossaryHint:          e.Config.GlossaryHint,
		MaxCorrectionAttempts: e.Config.MaxCorrectionAttempts,
	}

	err := e.translateBatch(ctx, g, missIdx, missTexts, opts, results)
	return results, err
}

// translateBatch translates the batch named by idxs/texts (a subset of
// g.Blocks) and writes outcomes into results. On FinishLengthCap (spec
// §4.4's "length_cap triggers a split-and-retry") it halves the batch and
// retries each half independently rather than quarantining the whole
// thing, the same way a too-large request gets chunked anywhere else in
// this codebase (transport.Encode/Split's own per-item framing). A batch
// of one block that still hits length_cap has nothing left to halve and
// is quarantined.
func (e *Executor) translateBatch(ctx context.Context, g Group, idxs []int, texts []string, opts translate.Options, results []BlockResult) error {
	var joined string
	var form transport.Form
	grouped := len(texts) > 1
	if grouped {
		form = transport.Encode(texts)
		joined = form.Payload
	} else {
		joined = texts[0]
	}

	res, err := e.Translator.Translate(ctx, joined, opts)
	if err != nil {
		var pe *perr.Error
		if grouped && errors.As(err, &pe) && pe.Kind == perr.KindLengthCapExceeded {
			mid := len(texts) / 2
			err1 := e.translateBatch(ctx, g, idxs[:mid], texts[:mid], opts, results)
			err2 := e.translateBatch(ctx, g, idxs[mid:], texts[mid:], opts, results)
			if err1 != nil {
				return err1
			}
			return err2
		}
		for _, idx := range idxs {
			b := g.Blocks[idx]
			e.quarantine(ctx, b, err, 1)
			results[idx] = BlockResult{BlockID: b.Base().ID, TranslatedText: b.Base().OriginalText, Quarantined: true, Err: err}
		}
		return err
	}

	var parts []string
	var ok []bool
	if grouped {
		parts, ok = transport.Split(res.TranslatedText, len(texts))
		for j := range parts {
			parts[j] = transport.Restore(parts[j], form.Markers[j])
		}
	} else {
		parts = []string{res.TranslatedText}
		ok = []bool{true}
	}

	for j, idx := range idxs {
		b := g.Blocks[idx]
		splitFailed := j >= len(ok) || !ok[j]
		quarantined := res.Quarantined || splitFailed
		text := b.Base().OriginalText
		if !quarantined {
			text = parts[j]
		}
		results[idx] = BlockResult{BlockID: b.Base().ID, TranslatedText: text, Quarantined: quarantined}

		if quarantined {
			reason := "self-correction exhausted its attempt budget"
			if splitFailed {
				reason = "translated batch could not be split back into its original items"
			}
			e.quarantine(ctx, b, errors.New(reason), res.Attempts)
		} else if e.Cache != nil {
			if err := e.Cache.Save(ctx, b.Base().OriginalText, e.Config.SourceLanguageHint, g.TargetLang, text, res.QualityScore()); err != nil {
				results[idx].Err = err
			}
		}
	}
	return nil
}

// runTableGroup translates a table's non-empty cell texts as one
// transport-encoded self-correcting call, then splits the response back
// into the table's own Rows, since a table has no single OriginalText
// the generic text path can use.
func (e *Executor) runTableGroup(ctx context.Context, tbl *document.Table) ([]BlockResult, error) {
	type cellRef struct{ r, c int }
	var refs []cellRef
	var texts []string
	for r, row := range tbl.Rows {
		for c, cell := range row {
			if cell.Text == "" {
				continue
			}
			refs = append(refs, cellRef{r, c})
			texts = append(texts, cell.Text)
		}
	}
	if len(texts) == 0 {
		return []BlockResult{{BlockID: tbl.ID}}, nil
	}

	form := transport.Encode(texts)
	opts := translate.Options{
		TargetLanguage:        e.TargetLang,
		SourceLanguageHint:    e.Config.SourceLanguageHint,
		ModelIdentifier:       e.Config.QualityModel,
		Temperature:           e.Config.Temperature,
		PromptStyle:           translate.PromptDetailed,
		GlossaryHint:          e.Config.GlossaryHint,
		MaxCorrectionAttempts: e.Config.MaxCorrectionAttempts,
	}

	res, err := e.Translator.Translate(ctx, form.Payload, opts)
	if err != nil {
		e.quarantine(ctx, tbl, err, 1)
		return []BlockResult{{BlockID: tbl.ID, Quarantined: true, Err: err}}, err
	}

	parts, ok := transport.Split(res.TranslatedText, len(texts))
	quarantined := res.Quarantined
	for i, ref := range refs {
		if !quarantined && i < len(ok) && ok[i] {
			tbl.Rows[ref.r][ref.c].TranslatedText = transport.Restore(parts[i], form.Markers[i])
		} else {
			tbl.Rows[ref.r][ref.c].TranslatedText = tbl.Rows[ref.r][ref.c].Text
		}
	}
	if quarantined {
		e.quarantine(ctx, tbl, fmt.Errorf("table self-correction exhausted its attempt budget"), res.Attempts)
	}
	return []BlockResult{{BlockID: tbl.ID, Quarantined: quarantined}}, nil
}

func (e *Executor) modelForStrategy(s router.Strategy) string {
	switch s {
	case router.StrategyMarkdownAwareQuality, router.StrategySelfCorrecting:
		return e.Config.QualityModel
	default:
		return e.Config.CostModel
	}
}

func promptStyleForImportance(i router.Importance) translate.PromptStyle {
	switch i {
	case router.ImportanceHigh:
		return translate.PromptDetailed
	case router.ImportanceMedium:
		return translate.PromptStandard
	default:
		return translate.PromptSimple
	}
}

func (e *Executor) quarantine(ctx context.Context, b document.Block, err error, attempts int) {
	if e.Quarantine == nil {
		return
	}
	base := b.Base()
	_ = e.Quarantine.Quarantine(ctx, QuarantineEntry{
		DocumentID:   e.DocumentID,
		BlockID:      base.ID,
		BlockType:    b.Kind().String(),
		OriginalText: base.OriginalText,
		LastError:    err.Error(),
		AttemptCount: attempts,
	})
}
