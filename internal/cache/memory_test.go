package cache

import "testing"

func TestMemoryTier_PutGet(t *testing.T) {
	m := NewMemoryTier(10)
	key := Key{SourceText: "Hello", SourceLang: "en", TargetLang: "es"}
	m.Put(Entry{Key: key, TranslatedText: "Hola"})

	e, ok := m.Get(key)
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if e.TranslatedText != "Hola" {
		t.Errorf("TranslatedText = %q, want %q", e.TranslatedText, "Hola")
	}
}

func TestMemoryTier_Miss(t *testing.T) {
	m := NewMemoryTier(10)
	_, ok := m.Get(Key{SourceText: "nope"})
	if ok {
		t.Error("expected miss on empty tier")
	}
}

func TestMemoryTier_EvictsLeastRecentlyUsed(t *testing.T) {
	m := NewMemoryTier(2)
	k1 := Key{SourceText: "a"}
	k2 := Key{SourceText: "b"}
	k3 := Key{SourceText: "c"}

	m.Put(Entry{Key: k1})
	m.Put(Entry{Key: k2})
	// Touch k1 so k2 becomes the least-recently-used entry.
	m.Get(k1)
	m.Put(Entry{Key: k3})

	if _, ok := m.Get(k2); ok {
		t.Error("expected k2 to be evicted as least-recently-used")
	}
	if _, ok := m.Get(k1); !ok {
		t.Error("expected k1 to survive eviction")
	}
	if _, ok := m.Get(k3); !ok {
		t.Error("expected k3 to survive eviction")
	}
}

func TestMemoryTier_PutUpdatesExistingEntry(t *testing.T) {
	m := NewMemoryTier(10)
	key := Key{SourceText: "Hello"}
	m.Put(Entry{Key: key, TranslatedText: "v1"})
	m.Put(Entry{Key: key, TranslatedText: "v2"})

	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (update in place, not a second entry)", m.Len())
	}
	e, _ := m.Get(key)
	if e.TranslatedText != "v2" {
		t.Errorf("TranslatedText = %q, want %q", e.TranslatedText, "v2")
	}
}

func TestMemoryTier_EntriesRoundTripsThroughLoad(t *testing.T) {
	m := NewMemoryTier(10)
	m.Put(Entry{Key: Key{SourceText: "a"}, TranslatedText: "1"})
	m.Put(Entry{Key: Key{SourceText: "b"}, TranslatedText: "2"})

	snapshot := m.Entries()
	if len(snapshot) != 2 {
		t.Fatalf("Entries() len = %d, want 2", len(snapshot))
	}

	restored := NewMemoryTier(10)
	restored.Load(snapshot)
	if restored.Len() != 2 {
		t.Fatalf("restored Len() = %d, want 2", restored.Len())
	}
	if e, ok := restored.Get(Key{SourceText: "a"}); !ok || e.TranslatedText != "1" {
		t.Errorf("restored entry for %q = %+v, ok=%v", "a", e, ok)
	}
}
