package translate

import (
	"context"
	"testing"
)

type fakeEndpoint struct {
	responses []Response
	errs      []error
	calls     int
}

func (f *fakeEndpoint) Translate(ctx context.Context, req Request) (Response, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return Response{}, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func TestTranslate_ValidOnFirstTry(t *testing.T) {
	ep := &fakeEndpoint{responses: []Response{{TranslatedText: "hola mundo", FinishReason: FinishComplete}}}
	tr := New(ep)
	res, err := tr.Translate(context.Background(), "hello world", Options{TargetLanguage: "es", MaxCorrectionAttempts: 2})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if res.Attempts != 1 || res.Quarantined {
		t.Fatalf("Result = %+v, want attempts=1 not quarantined", res)
	}
	if res.QualityScore() != 1.0 {
		t.Errorf("QualityScore() = %v, want 1.0", res.QualityScore())
	}
}

func TestTranslate_RecoversAfterCorrection(t *testing.T) {
	original := "| A | B |\n|---|---|\n| 1 | 2 |\n| 3 | 4 |\n"
	ep := &fakeEndpoint{responses: []Response{
		{TranslatedText: "garbled, not a table at all", FinishReason: FinishComplete},
		{TranslatedText: "| Α | Β |\n|---|---|\n| 1 | 2 |\n| 3 | 4 |\n", FinishReason: FinishComplete},
	}}
	tr := New(ep)
	res, err := tr.Translate(context.Background(), original, Options{TargetLanguage: "el", MaxCorrectionAttempts: 2})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if res.Attempts != 2 {
		t.Fatalf("Attempts = %d, want 2", res.Attempts)
	}
	if res.Quarantined {
		t.Fatal("Quarantined = true, want recovered")
	}
	if ep.calls != 2 {
		t.Fatalf("endpoint called %d times, want 2", ep.calls)
	}
}

func TestTranslate_QuarantinesAfterBudgetExhausted(t *testing.T) {
	original := "| A | B |\n|---|---|\n| 1 | 2 |\n| 3 | 4 |\n"
	ep := &fakeEndpoint{responses: []Response{
		{TranslatedText: "still garbled", FinishReason: FinishComplete},
		{TranslatedText: "still garbled again", FinishReason: FinishComplete},
		{TranslatedText: "still garbled once more", FinishReason: FinishComplete},
	}}
	tr := New(ep)
	res, err := tr.Translate(context.Background(), original, Options{TargetLanguage: "el", MaxCorrectionAttempts: 2})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if !res.Quarantined {
		t.Fatal("Quarantined = false, want true after exhausting correction budget")
	}
	if res.TranslatedText != original {
		t.Errorf("TranslatedText = %q, want original substituted for readability", res.TranslatedText)
	}
	if res.QualityScore() != 0 {
		t.Errorf("QualityScore() = %v, want 0 for quarantined block", res.QualityScore())
	}
	if ep.calls != 3 {
		t.Fatalf("endpoint called %d times, want 3 (1 + 2 retries)", ep.calls)
	}
}

func TestTranslate_BlockedFinishReasonIsNonRetryable(t *testing.T) {
	ep := &fakeEndpoint{responses: []Response{{FinishReason: FinishSafetyBlocked}}}
	tr := New(ep)
	_, err := tr.Translate(context.Background(), "hello", Options{TargetLanguage: "es", MaxCorrectionAttempts: 2})
	if err == nil {
		t.Fatal("Translate() error = nil, want non-retryable blocked error")
	}
	if ep.calls != 1 {
		t.Fatalf("endpoint called %d times, want exactly 1 (no retry on blocked)", ep.calls)
	}
}
