package pipeline

import "path/filepath"

// OutputLayout computes the on-disk paths of spec §6.6's persisted-state
// tree for one document:
//
//	<output_dir>/<document_stem>/
//	  output.<fmt>
//	  assets/
//	  trace.json
//	  quarantine/
//	cache/
//	  memory_dump.bin
//	  persistent/
//
// The cache/ subtree is a sibling of the per-document directories, shared
// across every document processed against the same output_dir.
type OutputLayout struct {
	OutputDir    string
	DocumentStem string
}

// NewOutputLayout builds the layout for one document under outputDir.
func NewOutputLayout(outputDir, documentStem string) OutputLayout {
	return OutputLayout{OutputDir: outputDir, DocumentStem: documentStem}
}

// DocumentDir is <output_dir>/<document_stem>.
func (l OutputLayout) DocumentDir() string {
	return filepath.Join(l.OutputDir, l.DocumentStem)
}

// OutputFile is the final assembled document, named by its format extension.
func (l OutputLayout) OutputFile(ext string) string {
	return filepath.Join(l.DocumentDir(), "output."+ext)
}

// AssetsDir holds extracted image binaries, named by their stable asset_id.
func (l OutputLayout) AssetsDir() string {
	return filepath.Join(l.DocumentDir(), "assets")
}

// AssetPath is one extracted asset's file path under AssetsDir.
func (l OutputLayout) AssetPath(assetID, ext string) string {
	return filepath.Join(l.AssetsDir(), assetID+ext)
}

// TraceFile is this document's trace summary.
func (l OutputLayout) TraceFile() string {
	return filepath.Join(l.DocumentDir(), "trace.json")
}

// QuarantineDir is this document's quarantine/ directory in the layout.
// ProcessDocument does not write to it; failed blocks are recorded in the
// shared quarantine.Store.
func (l OutputLayout) QuarantineDir() string {
	return filepath.Join(l.DocumentDir(), "quarantine")
}

// CacheDir is the shared cache/ subtree, one level above every document
// directory.
func (l OutputLayout) CacheDir() string {
	return filepath.Join(l.OutputDir, "cache")
}

// MemoryDumpPath is the optional warm-start dump of the in-memory cache tier.
func (l OutputLayout) MemoryDumpPath() string {
	return filepath.Join(l.CacheDir(), "memory_dump.bin")
}

// PersistentCacheDir holds the persistent cache's sqlite shard(s).
func (l OutputLayout) PersistentCacheDir() string {
	return filepath.Join(l.CacheDir(), "persistent")
}
