// Package trace implements Observability (spec §4.9): per-stage timing
// spans, audit snapshots of block counts, accumulated non-fatal
// warnings, and the hard invariant assertions that must hold before a
// document is considered successfully assembled.
//
// Grounded on the teacher's own warnings-as-data convention
// (tsawler-tabula/extractor.go's `(string, []Warning, error)` return
// shape and its doc-comment idiom `log.Println("Warnings:",
// tabula.FormatWarnings(warnings))`): nothing here logs directly from
// deep inside a stage. Stages record spans, audits, and warnings onto a
// *Trace value, and the caller decides, once, how to surface them — to
// a Logger, to trace.json, or both.
package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdfxlate/pdfxlate/internal/document"
)

// Span records the wall-clock duration of one pipeline stage
// (image_extraction, content_extraction, translation, assembly, ...).
type Span struct {
	Stage     string    `json:"stage"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Err       string    `json:"error,omitempty"`
}

// Duration is EndedAt - StartedAt.
func (s Span) Duration() time.Duration { return s.EndedAt.Sub(s.StartedAt) }

// AuditSnapshot is a Stats reading taken at a stage boundary.
type AuditSnapshot struct {
	Stage     string         `json:"stage"`
	Stats     document.Stats `json:"stats"`
	Timestamp time.Time      `json:"timestamp"`
}

// Warning is a non-fatal issue recorded during a stage.
type Warning struct {
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Trace accumulates everything observed while processing one Document.
// It is not safe for concurrent use from multiple goroutines without
// external synchronization, matching the rest of the pipeline's
// single-writer-per-document model (spec §5).
type Trace struct {
	DocumentID      string          `json:"document_id"`
	Spans           []Span          `json:"spans"`
	Audits          []AuditSnapshot `json:"audits"`
	Warnings        []Warning       `json:"warnings"`
	QuarantineCount int             `json:"quarantine_count"`
}

// New starts an empty Trace for a document.
func New(documentID string) *Trace {
	return &Trace{DocumentID: documentID}
}

// StartSpan begins timing a stage and returns a function that ends it;
// call the returned function exactly once, passing the stage's error
// (nil on success). Usage:
//
//	end := tr.StartSpan("content_extraction")
//	blocks, err := extractor.Extract(ctx, doc)
//	end(err)
func (t *Trace) StartSpan(stage string) func(err error) {
	start := time.Now()
	return func(err error) {
		span := Span{Stage: stage, StartedAt: start, EndedAt: time.Now()}
		if err != nil {
			span.Err = err.Error()
		}
		t.Spans = append(t.Spans, span)
	}
}

// RecordAudit appends a Stats snapshot labeled with the stage it was
// taken at.
func (t *Trace) RecordAudit(stage string, s document.Stats) {
	t.Audits = append(t.Audits, AuditSnapshot{Stage: stage, Stats: s, Timestamp: time.Now()})
}

// Warnf records a formatted non-fatal warning against a stage.
func (t *Trace) Warnf(stage, format string, args ...any) {
	t.Warnings = append(t.Warnings, Warning{Stage: stage, Message: fmt.Sprintf(format, args...), Timestamp: time.Now()})
}

// FormatWarnings renders every recorded warning as one line per
// warning, in the shape "[stage] message" — the same flattening the
// teacher's own FormatWarnings does for its []Warning slice before
// handing it to log.Println.
func (t *Trace) FormatWarnings() string {
	out := ""
	for i, w := range t.Warnings {
		if i > 0 {
			out += "\n"
		}
		out += fmt.Sprintf("[%s] %s", w.Stage, w.Message)
	}
	return out
}

// Persist writes the trace as indented JSON to path, creating parent
// directories as needed (spec §6.6: "<output_dir>/<document_stem>/trace.json").
func (t *Trace) Persist(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("trace: create trace directory: %w", err)
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("trace: marshal: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("trace: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("trace: rename temp file: %w", err)
	}
	return nil
}

// Load reads a previously persisted trace.json, used when resuming a
// cancelled run to recover its warning/audit history.
func Load(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t Trace
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("trace: unmarshal %s: %w", path, err)
	}
	return &t, nil
}
