// Package pdfxlate provides a fluent API for translating PDF documents
// into other languages while preserving their structure: headings,
// tables, code, math, footnotes, and images.
//
// Basic usage:
//
//	outcome, err := pdfxlate.Open("report.pdf").
//	    OutputDir("./out").
//	    TargetLanguage("es").
//	    Translate(context.Background())
//	if err != nil {
//	    // handle error
//	}
//	fmt.Println(pdfxlate.ExitCode(outcome, err))
//
// With a configuration file:
//
//	outcome, err := pdfxlate.Open("report.pdf").
//	    ConfigFile("pdfxlate.yaml").
//	    OutputDir("./out").
//	    Translate(context.Background())
package pdfxlate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pdfxlate/pdfxlate/internal/config"
	"github.com/pdfxlate/pdfxlate/internal/pipeline"
)

// Outcome is re-exported so callers never need to import internal/pipeline
// directly.
type Outcome = pipeline.Outcome

// ExitCode maps an Outcome and its terminal error to the process exit
// code the command surface uses (spec §6.5).
func ExitCode(outcome *Outcome, err error) int { return pipeline.ExitCode(outcome, err) }

// Job configures one document's translation run. Each configuration
// method returns a new Job, so a Job is safe to branch from and reuse.
type Job struct {
	inputPath  string
	outputDir  string
	targetLang string
	configPath string

	err error
}

// Open begins configuring a translation job for the PDF at inputPath.
func Open(inputPath string) *Job {
	return &Job{inputPath: inputPath, outputDir: "."}
}

// clone returns a shallow copy, the same immutable-chaining shape as
// every other configuration method.
func (j *Job) clone() *Job {
	cp := *j
	return &cp
}

// OutputDir sets the output_dir the spec §6.6 persisted-state layout is
// rooted at. Defaults to the current directory.
func (j *Job) OutputDir(dir string) *Job {
	nj := j.clone()
	nj.outputDir = dir
	return nj
}

// TargetLanguage overrides the configured translation.target_language
// for this job only (spec §6.5's target_language_override).
func (j *Job) TargetLanguage(lang string) *Job {
	nj := j.clone()
	nj.targetLang = lang
	return nj
}

// ConfigFile points the job at a spec §6.4 configuration file. An empty
// path (the default) resolves every key from its built-in default.
func (j *Job) ConfigFile(path string) *Job {
	nj := j.clone()
	nj.configPath = path
	return nj
}

// Translate runs the full pipeline for this job's PDF and returns its
// Outcome. A non-nil error is always document- or startup-fatal; see
// ExitCode for how to turn either into a process exit code.
func (j *Job) Translate(ctx context.Context) (*Outcome, error) {
	if j.err != nil {
		return nil, j.err
	}
	if j.inputPath == "" {
		return nil, fmt.Errorf("pdfxlate: no input PDF specified")
	}

	cfg, err := config.Load(j.configPath, j.targetLang)
	if err != nil {
		return nil, err
	}

	factory, err := config.NewFactory(cfg)
	if err != nil {
		return nil, err
	}
	defer factory.Close()

	stem := documentStem(j.inputPath)
	controller := factory.NewController(stem, cfg.Translation.TargetLanguage)
	layout := pipeline.NewOutputLayout(j.outputDir, stem)

	return controller.ProcessDocument(ctx, j.inputPath, stem, cfg.Translation.TargetLanguage, layout)
}

// documentStem is the input PDF's base name without its extension, used
// as both the document id and the spec §6.6 per-document directory name.
func documentStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
