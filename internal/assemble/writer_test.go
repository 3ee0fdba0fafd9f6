package assemble

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMarkdownFileWriter_WritesFileCreatingParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "output.md")
	w := MarkdownFileWriter{}
	if err := w.Write(path, "# Hello\n"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "# Hello\n" {
		t.Errorf("content = %q, want %q", string(data), "# Hello\n")
	}
}
