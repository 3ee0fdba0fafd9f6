package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdfxlate/pdfxlate"
)

var (
	outputDir  string
	targetLang string
	configPath string
)

var translateCmd = &cobra.Command{
	Use:   "translate <input.pdf>",
	Short: "Translate one PDF, preserving its structure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputPath := args[0]

		job := pdfxlate.Open(inputPath).OutputDir(outputDir).ConfigFile(configPath)
		if targetLang != "" {
			job = job.TargetLanguage(targetLang)
		}

		outcome, err := job.Translate(context.Background())
		code := pdfxlate.ExitCode(outcome, err)

		if err != nil {
			fmt.Fprintf(os.Stderr, "pdfxlate: %v\n", err)
		}
		if outcome != nil {
			fmt.Fprintf(os.Stderr, "pdfxlate: %s: %d block(s) quarantined\n", outcome.DocumentID, outcome.QuarantineCount)
		}

		os.Exit(code)
		return nil
	},
}

func init() {
	translateCmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "Directory the translated document and its assets are written under")
	translateCmd.Flags().StringVarP(&targetLang, "target-language", "t", "", "Target language override (defaults to the configured translation.target_language)")
	translateCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a pdfxlate configuration file")
}
