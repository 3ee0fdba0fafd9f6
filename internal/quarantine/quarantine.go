// Package quarantine implements the Quarantine Store (spec §4.8): an
// append-only record of blocks that exhausted the Self-Correcting
// Translator's retry budget, kept for operator review instead of being
// silently dropped or left untranslated without a trace.
//
// Grounded on valpere-peretran/internal/store/store.go's
// migration-on-open Store and its append-style SaveRequest/SaveResult/
// SaveFinalTranslation methods (each a single INSERT, no UPSERT, no
// update path) — a quarantine entry is a historical fact about a
// translation attempt, never revised in place.
package quarantine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one durably-recorded terminal translation failure.
type Entry struct {
	ID               int64
	DocumentID       string
	BlockID          string
	BlockType        string
	OriginalText     string
	LastError        string
	AttemptCount     int
	ContextNeighbors []string
	Timestamp        time.Time
}

// Store is the append-only sqlite-backed quarantine log for one pipeline
// run (or shared across runs, keyed by DocumentID).
type Store struct {
	db *sql.DB
}

// Open creates or migrates the sqlite database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("quarantine: open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("quarantine: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS quarantine_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id TEXT NOT NULL,
		block_id TEXT NOT NULL,
		block_type TEXT NOT NULL,
		original_text TEXT NOT NULL,
		last_error TEXT NOT NULL,
		attempt_count INTEGER NOT NULL,
		context_neighbors TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_quarantine_document ON quarantine_entries(document_id);
	CREATE INDEX IF NOT EXISTS idx_quarantine_created_at ON quarantine_entries(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append records one quarantine entry. It never updates an existing row:
// every call to Append, even for the same BlockID, becomes its own
// history row, so repeated quarantining of the same block across a
// retried pipeline run is never silently overwritten.
func (s *Store) Append(ctx context.Context, e Entry) error {
	neighbors, err := json.Marshal(e.ContextNeighbors)
	if err != nil {
		return fmt.Errorf("quarantine: encode context neighbors: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quarantine_entries (document_id, block_id, block_type, original_text, last_error, attempt_count, context_neighbors)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.DocumentID, e.BlockID, e.BlockType, e.OriginalText, e.LastError, e.AttemptCount, string(neighbors))
	return err
}

// Quarantine records one QuarantineEntry through Append. Its parameter is
// this package's QuarantineEntry, not batch.QuarantineEntry, so a *Store
// does not itself satisfy batch.QuarantineSink: internal/config wraps it
// in a small adapter that converts one entry type to the other.
func (s *Store) Quarantine(ctx context.Context, e QuarantineEntry) error {
	return s.Append(ctx, Entry{
		DocumentID:       e.DocumentID,
		BlockID:          e.BlockID,
		BlockType:        e.BlockType,
		OriginalText:     e.OriginalText,
		LastError:        e.LastError,
		AttemptCount:     e.AttemptCount,
		ContextNeighbors: e.ContextNeighbors,
	})
}

// QuarantineEntry mirrors batch.QuarantineEntry's field shape. It is
// redeclared here rather than imported so this package has no
// dependency on internal/batch; batch.QuarantineEntry and this type are
// kept in sync by hand, field by field, in internal/config's adapter.
type QuarantineEntry struct {
	DocumentID       string
	BlockID          string
	BlockType        string
	OriginalText     string
	LastError        string
	AttemptCount     int
	ContextNeighbors []string
}

// ForDocument returns every quarantine entry recorded for a document, in
// insertion order, for inclusion in the trace.json / end-of-run report.
func (s *Store) ForDocument(ctx context.Context, documentID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, block_id, block_type, original_text, last_error, attempt_count, context_neighbors, created_at
		 FROM quarantine_entries WHERE document_id = ? ORDER BY id ASC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Count returns the number of quarantine entries recorded for a
// document, used for the pipeline's exit-code decision (spec §6.5: a
// non-empty quarantine log changes the process exit code even though
// the run otherwise completed).
func (s *Store) Count(ctx context.Context, documentID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quarantine_entries WHERE document_id = ?`, documentID).Scan(&n)
	return n, err
}

// Prune deletes entries older than retention, the default-30-day
// cleanup the spec's "quarantine" config section calls for. It operates
// across all documents, since the quarantine store is typically shared
// by a long-lived installation rather than recreated per run.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res, err := s.db.ExecContext(ctx, `DELETE FROM quarantine_entries WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var e Entry
		var neighbors sql.NullString
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.BlockID, &e.BlockType, &e.OriginalText,
			&e.LastError, &e.AttemptCount, &neighbors, &e.Timestamp); err != nil {
			return nil, err
		}
		if neighbors.Valid && neighbors.String != "" {
			_ = json.Unmarshal([]byte(neighbors.String), &e.ContextNeighbors)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
