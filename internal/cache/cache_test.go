package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pdfxlate/pdfxlate/internal/transport"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	opts := DefaultOptions()
	opts.MemoryCapacity = 100
	return New(s, opts)
}

func TestCache_MissOnEmptyCache(t *testing.T) {
	c := newTestCache(t)
	_, found, err := c.Lookup(context.Background(), "Hello", "en", "es")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if found {
		t.Error("expected miss on an empty cache")
	}
}

func TestCache_SaveThenExactLookupHitsMemoryFirst(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	if err := c.Save(ctx, "Hello", "en", "es", "Hola", 0.9); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	e, found, err := c.Lookup(ctx, "Hello", "en", "es")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !found {
		t.Fatal("expected hit after Save")
	}
	if e.TranslatedText != "Hola" {
		t.Errorf("TranslatedText = %q, want %q", e.TranslatedText, "Hola")
	}
}

func TestCache_LookupNormalizesWhitespaceLikeSave(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	if err := c.Save(ctx, "Hello   there,\n  world", "en", "es", "Hola mundo", 0.9); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The in-memory tier must hit on differently-spaced but equivalent
	// text, the same way the persistent tier's SQL queries already
	// normalize whitespace before comparing.
	e, found, err := c.Lookup(ctx, "  Hello there, world  ", "en", "es")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !found {
		t.Fatal("expected a memory-tier hit despite differing whitespace")
	}
	if e.TranslatedText != "Hola mundo" {
		t.Errorf("TranslatedText = %q, want %q", e.TranslatedText, "Hola mundo")
	}
}

func TestCache_SaveEvictsExcessOverPersistentCapacity(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	opts := DefaultOptions()
	opts.PersistentCapacity = 2
	c := New(s, opts)
	ctx := context.Background()

	if err := c.Save(ctx, "low", "en", "es", "bajo", 0.1); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := c.Save(ctx, "mid", "en", "es", "medio", 0.5); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := c.Save(ctx, "high", "en", "es", "alto", 0.9); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	n, err := s.EvictExcess(ctx, 1000) // confirms the third Save already trimmed the store itself
	if err != nil {
		t.Fatalf("EvictExcess failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("store still has %d rows beyond capacity after Save, want already trimmed to 2", n)
	}
	if _, found, _ := s.GetExact(ctx, "low", "en", "es"); found {
		t.Error("lowest-quality entry should have been evicted once capacity was exceeded")
	}
	if _, found, _ := s.GetExact(ctx, "high", "en", "es"); !found {
		t.Error("highest-quality entry should survive capacity eviction")
	}
}

func TestCache_ExactLookupSurvivesAClearedMemoryTier(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	if err := c.Save(ctx, "Hello", "en", "es", "Hola", 0.9); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Simulate a cold process: the memory tier starts empty but the
	// persistent tier still has the entry.
	c.Memory = NewMemoryTier(100)

	e, found, err := c.Lookup(ctx, "Hello", "en", "es")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !found {
		t.Fatal("expected a fall-through hit on the persistent tier")
	}
	if e.TranslatedText != "Hola" {
		t.Errorf("TranslatedText = %q, want %q", e.TranslatedText, "Hola")
	}

	// The lookup should have repopulated the memory tier.
	if _, ok := c.Memory.Get(Key{SourceText: "Hello", SourceLang: "en", TargetLang: "es"}); !ok {
		t.Error("expected persistent-tier hit to repopulate the memory tier")
	}
}

func TestCache_SemanticFallbackFindsNearDuplicate(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	if err := c.Save(ctx, "The quarterly revenue report shows strong growth", "en", "es",
		"El informe trimestral de ingresos muestra un fuerte crecimiento", 0.95); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	// Force a persistent-tier-only lookup.
	c.Memory = NewMemoryTier(100)

	_, found, err := c.Lookup(ctx, "The quarterly revenue report shows strong growth", "en", "es")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !found {
		t.Fatal("expected the stored text's own embedding to satisfy the similarity threshold")
	}
}

func TestCache_UnrelatedTextMisses(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	if err := c.Save(ctx, "Bananas are a good source of potassium", "en", "es",
		"Las bananas son una buena fuente de potasio", 0.9); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	c.Memory = NewMemoryTier(100)

	_, found, err := c.Lookup(ctx, "The quarterly revenue report shows strong growth", "en", "es")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if found {
		t.Error("expected an unrelated paragraph to miss the semantic fallback")
	}
}

func TestEmbeddingText_StripsTransportPlaceholders(t *testing.T) {
	raw := "First sentence." + transport.ParagraphBreak + "Second sentence." + transport.ItemBreak + "Third item."
	got := embeddingText(raw)
	if got == raw {
		t.Error("embeddingText should strip transport placeholder tokens")
	}
	if containsToken(got, transport.ParagraphBreak) || containsToken(got, transport.ItemBreak) {
		t.Errorf("embeddingText(%q) = %q still contains a placeholder token", raw, got)
	}
}

func containsToken(s, token string) bool {
	for i := 0; i+len(token) <= len(s); i++ {
		if s[i:i+len(token)] == token {
			return true
		}
	}
	return false
}

func TestCache_DumpAndLoadDumpRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	if err := c.Save(ctx, "Hello", "en", "es", "Hola", 0.9); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "memory_dump.bin")
	if err := c.Dump(path); err != nil {
		t.Fatalf("Dump failed: %v", err)
	}

	restored := newTestCache(t)
	if err := restored.LoadDump(path); err != nil {
		t.Fatalf("LoadDump failed: %v", err)
	}

	e, ok := restored.Memory.Get(Key{SourceText: "Hello", SourceLang: "en", TargetLang: "es"})
	if !ok {
		t.Fatal("expected restored memory tier to contain the dumped entry")
	}
	if e.TranslatedText != "Hola" {
		t.Errorf("TranslatedText = %q, want %q", e.TranslatedText, "Hola")
	}
}

func TestCache_LoadDumpOfMissingFileIsNotAnError(t *testing.T) {
	c := newTestCache(t)
	if err := c.LoadDump(filepath.Join(t.TempDir(), "does-not-exist.bin")); err != nil {
		t.Errorf("LoadDump of a missing file should be a no-op, got error: %v", err)
	}
}
