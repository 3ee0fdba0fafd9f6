package assemble

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileWriter is the physical-output contract the spec calls out as
// intentionally unbundled ("out of scope... specified only by
// contract"): Assemble produces Markdown in memory, and a FileWriter
// decides where those bytes land. The bundled default writes a single
// Markdown file via stdlib os.WriteFile.
//
// The teacher's docx package was evaluated as a candidate second
// implementation (a .docx writer would let this double as a
// FileWriter) and rejected: reading docx/doc.go shows it exposes only
// Open/PageCount/Text/Metadata — a reader, not a document-creation API —
// so it cannot serve this contract (see DESIGN.md).
type FileWriter interface {
	Write(outputPath string, markdown string) error
}

// MarkdownFileWriter is the bundled default FileWriter.
type MarkdownFileWriter struct{}

// Write creates outputPath's parent directory if needed and writes
// markdown to it.
func (MarkdownFileWriter) Write(outputPath string, markdown string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("assemble: create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("assemble: write output file: %w", err)
	}
	return nil
}
