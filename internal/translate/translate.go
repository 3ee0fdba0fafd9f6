package translate

import (
	"context"
	"fmt"

	"github.com/pdfxlate/pdfxlate/internal/perr"
	"github.com/pdfxlate/pdfxlate/internal/validator"
)

// Options parameterizes one self-correcting translation (spec §4.4).
type Options struct {
	TargetLanguage        string
	SourceLanguageHint    string
	ModelIdentifier       string
	Temperature           float64
	PromptStyle           PromptStyle
	GlossaryHint          string
	MaxCorrectionAttempts int // 0-5, default 2; spec §4.4
}

// Result is the outcome of a self-correcting translation attempt.
type Result struct {
	TranslatedText string
	Validation     validator.Result
	Attempts       int
	Quarantined    bool
	FinishReason   FinishReason
}

// Translator implements the self-correcting translation loop of spec
// §4.4: translate, validate structure, and on failure retry with a
// targeted correction prompt up to Options.MaxCorrectionAttempts times
// before giving up.
type Translator struct {
	Endpoint EndpointClient
}

// New returns a Translator bound to the given endpoint.
func New(endpoint EndpointClient) *Translator {
	return &Translator{Endpoint: endpoint}
}

// Translate runs the self-correcting loop over original text. A single
// block is translated at most once at a time by construction: callers
// (the batch executor) never invoke Translate concurrently for the same
// block (spec §5).
func (t *Translator) Translate(ctx context.Context, original string, opts Options) (Result, error) {
	maxAttempts := opts.MaxCorrectionAttempts
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	if maxAttempts > 5 {
		maxAttempts = 5
	}

	sysInstructions := SystemInstructions(opts.PromptStyle, opts.GlossaryHint)
	var correctionPrompt string
	var lastResp Response
	var lastScore validator.Result

	for attempt := 0; attempt <= maxAttempts; attempt++ {
		instr := sysInstructions
		if correctionPrompt != "" {
			instr = CorrectionSystemInstructions(sysInstructions, correctionPrompt)
		}

		resp, err := t.Endpoint.Translate(ctx, Request{
			Text:               original,
			SourceLanguageHint: opts.SourceLanguageHint,
			TargetLanguage:     opts.TargetLanguage,
			ModelIdentifier:    opts.ModelIdentifier,
			Temperature:        opts.Temperature,
			SystemInstructions: instr,
		})
		if err != nil {
			return Result{}, perr.New(perr.KindTranslationEndpointTransient, "translate", err)
		}
		if resp.FinishReason.Blocked() {
			return Result{}, perr.New(perr.KindTranslationEndpointBlocked, "translate",
				fmt.Errorf("endpoint blocked translation: %s", resp.FinishReason))
		}
		if resp.FinishReason == FinishLengthCap {
			return Result{}, perr.New(perr.KindLengthCapExceeded, "translate",
				fmt.Errorf("output hit length_cap, caller must split and retry"))
		}

		lastResp = resp
		lastScore = validator.Validate(original, resp.TranslatedText)
		if lastScore.Valid {
			return Result{
				TranslatedText: resp.TranslatedText,
				Validation:     lastScore,
				Attempts:       attempt + 1,
				FinishReason:   resp.FinishReason,
			}, nil
		}
		correctionPrompt = lastScore.CorrectionPrompt()
	}

	// Exhausted the correction budget: substitute original text for
	// readability and let the caller write this block to quarantine
	// (spec §4.4 step 4).
	return Result{
		TranslatedText: original,
		Validation:     lastScore,
		Attempts:       maxAttempts + 1,
		Quarantined:    true,
		FinishReason:   lastResp.FinishReason,
	}, nil
}

// QualityScore derives the cache quality score from a Result the way
// spec §4.5 describes: 1.0 for an exact pass on the first attempt, lower
// for translations recovered through correction retries.
func (r Result) QualityScore() float64 {
	if r.Quarantined {
		return 0
	}
	if r.Attempts <= 1 {
		return 1.0
	}
	score := 1.0 - 0.15*float64(r.Attempts-1)
	if score < 0.3 {
		score = 0.3
	}
	return score
}
