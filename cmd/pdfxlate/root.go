package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pdfxlate",
	Short: "Translate PDF documents while preserving their structure",
	Long: `pdfxlate translates a PDF's text into another language while leaving
its structure intact: headings keep their level and a table of contents,
tables keep their rows and columns, math and code are left untouched,
footnotes are relocated to a Notes section, and images are carried
through unmodified.

Use "pdfxlate translate --help" for translation options.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(translateCmd)
}
