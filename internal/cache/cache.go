// Package cache implements the two-tier Semantic Cache (spec §4.5): an
// in-memory exact-match LRU checked first, backed by a persistent sqlite
// tier that adds a cosine-similarity fallback over text embeddings when
// the exact key misses. Both tiers are consulted before a block is ever
// sent to a translation endpoint.
package cache

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfxlate/pdfxlate/internal/transport"
)

// Options tunes the cache (spec §6.4 "cache" config section).
type Options struct {
	MemoryCapacity      int
	SimilarityThreshold float64
	MinQualityToKeep    float64
	// PersistentCapacity caps the persistent tier's row count; once
	// exceeded, Save evicts the lowest quality_score entries down to this
	// count (spec §4.5). Zero disables the check.
	PersistentCapacity int
}

// DefaultOptions returns the spec §6.4 cache defaults.
func DefaultOptions() Options {
	return Options{
		MemoryCapacity:      1000,
		SimilarityThreshold: 0.85,
		MinQualityToKeep:    0.5,
		PersistentCapacity:  10000,
	}
}

// Cache orchestrates the memory and persistent tiers behind one Lookup/Save API.
type Cache struct {
	Memory   *MemoryTier
	Store    *Store
	Embedder Embedder
	Options  Options
}

// New wires a Cache around an already-open persistent Store.
func New(store *Store, opts Options) *Cache {
	return &Cache{
		Memory:   NewMemoryTier(opts.MemoryCapacity),
		Store:    store,
		Embedder: NewHashEmbedder(256),
		Options:  opts,
	}
}

// Lookup tries the exact in-memory tier, then the exact persistent tier,
// then the persistent semantic tier, in that order, for one source text.
func (c *Cache) Lookup(ctx context.Context, sourceText, sourceLang, targetLang string) (Entry, bool, error) {
	sourceText = normalizeForLookup(sourceText)
	key := Key{SourceText: sourceText, SourceLang: sourceLang, TargetLang: targetLang}
	if e, ok := c.Memory.Get(key); ok {
		return e, true, nil
	}

	if c.Store == nil {
		return Entry{}, false, nil
	}

	e, ok, err := c.Store.GetExact(ctx, sourceText, sourceLang, targetLang)
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache: exact lookup: %w", err)
	}
	if ok {
		c.Memory.Put(e)
		return e, true, nil
	}

	if c.Embedder == nil || c.Options.SimilarityThreshold <= 0 {
		return Entry{}, false, nil
	}
	queryVec, err := c.Embedder.Embed(embeddingText(sourceText))
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache: embed query: %w", err)
	}
	e, ok, err = c.Store.GetSemantic(ctx, queryVec, sourceLang, targetLang, c.Options.SimilarityThreshold)
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache: semantic lookup: %w", err)
	}
	if ok {
		c.Memory.Put(e)
	}
	return e, ok, nil
}

// Save writes a freshly produced translation into both tiers. qualityScore
// drives future eviction (spec §4.5): a translation that fails self-
// correction and is quarantined should never reach Save.
func (c *Cache) Save(ctx context.Context, sourceText, sourceLang, targetLang, translatedText string, qualityScore float64) error {
	sourceText = normalizeForLookup(sourceText)
	vec, err := c.Embedder.Embed(embeddingText(sourceText))
	if err != nil {
		return fmt.Errorf("cache: embed: %w", err)
	}
	e := Entry{
		Key:            Key{SourceText: sourceText, SourceLang: sourceLang, TargetLang: targetLang},
		TranslatedText: translatedText,
		QualityScore:   qualityScore,
		Embedding:      vec,
	}
	c.Memory.Put(e)
	if c.Store == nil {
		return nil
	}
	if err := c.Store.Put(ctx, e, qualityScore); err != nil {
		return fmt.Errorf("cache: persist: %w", err)
	}
	if _, err := c.Store.EvictExcess(ctx, c.Options.PersistentCapacity); err != nil {
		return fmt.Errorf("cache: evict excess: %w", err)
	}
	return nil
}

// embeddingText strips the transport layer's structural placeholder
// tokens before embedding: they are an artifact of how text was grouped
// for translation, not semantic content, and would otherwise dominate the
// hash-bucket signature of short paragraphs. The tokens are never
// stripped from the stored key/value text itself, only from the string
// handed to Embed.
func embeddingText(text string) string {
	text = strings.ReplaceAll(text, transport.ParagraphBreak, " ")
	text = strings.ReplaceAll(text, transport.ItemBreak, " ")
	return strings.Join(strings.Fields(text), " ")
}

// DumpPath returns the memory_dump.bin path for an output layout's cache
// directory (spec §6.6).
func DumpPath(cacheDir string) string {
	return filepath.Join(cacheDir, "memory_dump.bin")
}

// Dump atomically persists the in-memory tier to path: it encodes to a
// temp file in the same directory, then renames over the destination, so
// a crash mid-write never leaves a truncated dump (spec §4.5 "atomic-
// rename persistent writes"). gob is the standard library's own
// serialization format; no example repo in the pack ships a cache
// snapshot format, so this is a stdlib-only concern (see DESIGN.md).
func (c *Cache) Dump(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("cache: create dump temp file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(c.Memory.Entries()); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("cache: encode dump: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("cache: close dump temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("cache: rename dump into place: %w", err)
	}
	return nil
}

// LoadDump restores the in-memory tier from a prior Dump. A missing file
// is not an error: a fresh document simply starts with a cold memory tier.
func (c *Cache) LoadDump(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache: open dump: %w", err)
	}
	defer f.Close()
	var entries []Entry
	if err := gob.NewDecoder(f).Decode(&entries); err != nil {
		return fmt.Errorf("cache: decode dump: %w", err)
	}
	c.Memory.Load(entries)
	return nil
}
