package quarantine

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "quarantine.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_Open(t *testing.T) {
	openTestStore(t)
}

func TestStore_AppendThenForDocument(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Append(ctx, Entry{
		DocumentID:       "doc-1",
		BlockID:          "p1",
		BlockType:        "paragraph",
		OriginalText:     "hello world",
		LastError:        "self-correction exhausted its attempt budget",
		AttemptCount:     3,
		ContextNeighbors: []string{"p0", "p2"},
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := s.ForDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("ForDocument failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.BlockID != "p1" || e.AttemptCount != 3 {
		t.Errorf("entry = %+v, want block p1 with 3 attempts", e)
	}
	if len(e.ContextNeighbors) != 2 || e.ContextNeighbors[0] != "p0" || e.ContextNeighbors[1] != "p2" {
		t.Errorf("ContextNeighbors = %v, want [p0 p2]", e.ContextNeighbors)
	}
}

func TestStore_AppendNeverOverwritesPriorEntryForSameBlock(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		if err := s.Append(ctx, Entry{
			DocumentID:   "doc-1",
			BlockID:      "p1",
			BlockType:    "paragraph",
			OriginalText: "hello world",
			LastError:    "endpoint unreachable",
			AttemptCount: i,
		}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries, err := s.ForDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("ForDocument failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2 (append-only, no update-in-place)", len(entries))
	}
}

func TestStore_ForDocumentIsScopedByDocumentID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, Entry{DocumentID: "doc-1", BlockID: "p1", BlockType: "paragraph", OriginalText: "a", LastError: "x", AttemptCount: 1}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Append(ctx, Entry{DocumentID: "doc-2", BlockID: "p1", BlockType: "paragraph", OriginalText: "b", LastError: "y", AttemptCount: 1}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := s.ForDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("ForDocument failed: %v", err)
	}
	if len(entries) != 1 || entries[0].OriginalText != "a" {
		t.Fatalf("entries = %+v, want only doc-1's entry", entries)
	}
}

func TestStore_Count(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.Count(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("Count on empty store = %d, want 0", n)
	}

	for i := 0; i < 3; i++ {
		_ = s.Append(ctx, Entry{DocumentID: "doc-1", BlockID: "p1", BlockType: "paragraph", OriginalText: "a", LastError: "x", AttemptCount: 1})
	}
	n, err = s.Count(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("Count = %d, want 3", n)
	}
}

func TestStore_QuarantineAdaptsBatchShapedEntry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Quarantine(ctx, QuarantineEntry{
		DocumentID:   "doc-1",
		BlockID:      "t1",
		BlockType:    "table",
		OriginalText: "Name\tAge",
		LastError:    "endpoint unreachable",
		AttemptCount: 1,
	})
	if err != nil {
		t.Fatalf("Quarantine failed: %v", err)
	}

	entries, err := s.ForDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("ForDocument failed: %v", err)
	}
	if len(entries) != 1 || entries[0].BlockID != "t1" {
		t.Fatalf("entries = %+v, want one entry for t1", entries)
	}
}

func TestStore_PruneDeletesOnlyEntriesOlderThanRetention(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, Entry{DocumentID: "doc-1", BlockID: "p1", BlockType: "paragraph", OriginalText: "a", LastError: "x", AttemptCount: 1}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// A generous retention window should not delete the entry just written.
	n, err := s.Prune(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("Prune deleted %d rows, want 0 (entry is fresh)", n)
	}

	count, err := s.Count(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("Count after prune = %d, want 1", count)
	}

	// A zero retention window should delete everything already committed.
	n, err = s.Prune(ctx, 0)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("Prune with zero retention deleted %d rows, want 1", n)
	}
}
