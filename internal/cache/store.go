package cache

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
	"golang.org/x/text/unicode/norm"
)

// Store is the persistent semantic-cache tier (spec §4.5 tier 2), grounded
// on the teacher pack's translation memory table
// (_examples/valpere-peretran/internal/store/store.go's translation_memory
// schema), renamed to semantic_cache_entries and extended with an
// embedding BLOB column so a miss on the exact-match lookup can fall back
// to a cosine-similarity scan instead of Levenshtein fuzzy matching.
type Store struct {
	db *sql.DB
}

// Open creates or migrates the sqlite database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("cache: open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS semantic_cache_entries (
		id TEXT PRIMARY KEY,
		source_text TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		translated_text TEXT NOT NULL,
		embedding BLOB,
		quality_score REAL DEFAULT 1.0,
		usage_count INTEGER DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_text, source_lang, target_lang)
	);

	CREATE TABLE IF NOT EXISTS glossary_terms (
		id TEXT PRIMARY KEY,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		source_term TEXT NOT NULL,
		target_term TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_lang, target_lang, source_term)
	);

	CREATE INDEX IF NOT EXISTS idx_semantic_cache_lookup ON semantic_cache_entries(source_text, source_lang, target_lang);
	CREATE INDEX IF NOT EXISTS idx_glossary_terms_lookup ON glossary_terms(source_lang, target_lang);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetExact looks up an exact normalized-text match for a language pair.
func (s *Store) GetExact(ctx context.Context, sourceText, sourceLang, targetLang string) (Entry, bool, error) {
	normalized := normalizeForLookup(sourceText)
	var translated string
	var embBytes []byte
	var quality float64
	var lastUsed time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT translated_text, embedding, quality_score, last_used FROM semantic_cache_entries
		 WHERE source_text = ? AND source_lang = ? AND target_lang = ?`,
		normalized, sourceLang, targetLang).Scan(&translated, &embBytes, &quality, &lastUsed)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	_, _ = s.db.ExecContext(ctx,
		`UPDATE semantic_cache_entries SET usage_count = usage_count + 1, last_used = ? WHERE source_text = ? AND source_lang = ? AND target_lang = ?`,
		time.Now(), normalized, sourceLang, targetLang)
	return Entry{
		Key:            Key{SourceText: sourceText, SourceLang: sourceLang, TargetLang: targetLang},
		TranslatedText: translated,
		QualityScore:   quality,
		Embedding:      bytesToFloats(embBytes),
		Timestamp:      lastUsed.Unix(),
	}, true, nil
}

// GetSemantic scans every entry for a language pair and returns the
// highest-cosine-similarity match at or above threshold, or a miss.
func (s *Store) GetSemantic(ctx context.Context, queryEmbedding []float32, sourceLang, targetLang string, threshold float64) (Entry, bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_text, translated_text, embedding, quality_score, last_used FROM semantic_cache_entries
		 WHERE source_lang = ? AND target_lang = ? AND embedding IS NOT NULL`,
		sourceLang, targetLang)
	if err != nil {
		return Entry{}, false, err
	}
	defer rows.Close()

	var best Entry
	bestScore := threshold
	found := false
	for rows.Next() {
		var srcText, translated string
		var embBytes []byte
		var quality float64
		var lastUsed time.Time
		if err := rows.Scan(&srcText, &translated, &embBytes, &quality, &lastUsed); err != nil {
			return Entry{}, false, err
		}
		emb := bytesToFloats(embBytes)
		score := CosineSimilarity(queryEmbedding, emb)
		if score >= bestScore {
			bestScore = score
			found = true
			best = Entry{
				Key:            Key{SourceText: srcText, SourceLang: sourceLang, TargetLang: targetLang},
				TranslatedText: translated,
				QualityScore:   quality,
				Embedding:      emb,
				Timestamp:      lastUsed.Unix(),
			}
		}
	}
	if err := rows.Err(); err != nil {
		return Entry{}, false, err
	}
	return best, found, nil
}

// Put inserts or replaces a cache entry.
func (s *Store) Put(ctx context.Context, e Entry, qualityScore float64) error {
	id := fmt.Sprintf("sc_%s_%s_%s", e.Key.SourceLang, e.Key.TargetLang, hashKey(e.Key.SourceText))
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO semantic_cache_entries (id, source_text, source_lang, target_lang, translated_text, embedding, quality_score, usage_count, created_at, last_used)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		 ON CONFLICT(source_text, source_lang, target_lang) DO UPDATE SET
		   translated_text = excluded.translated_text,
		   embedding = excluded.embedding,
		   quality_score = excluded.quality_score,
		   last_used = excluded.last_used`,
		id, normalizeForLookup(e.Key.SourceText), e.Key.SourceLang, e.Key.TargetLang,
		e.TranslatedText, floatsToBytes(e.Embedding), qualityScore, now, now)
	return err
}

// EvictBelowQuality deletes entries whose quality_score is below min,
// breaking ties toward the oldest last_used timestamp first (spec §4.5
// eviction policy), to keep the persistent tier from growing unbounded
// with low-confidence translations.
func (s *Store) EvictBelowQuality(ctx context.Context, min float64, limit int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM semantic_cache_entries WHERE id IN (
			SELECT id FROM semantic_cache_entries WHERE quality_score < ?
			ORDER BY quality_score ASC, last_used ASC LIMIT ?
		)`, min, limit)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// EvictExcess trims the persistent tier down to capacity by deleting the
// lowest quality_score entries first (ties broken toward the oldest
// last_used), the spec §4.5 over-capacity eviction policy. A non-positive
// capacity disables the check.
func (s *Store) EvictExcess(ctx context.Context, capacity int) (int64, error) {
	if capacity <= 0 {
		return 0, nil
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM semantic_cache_entries`).Scan(&count); err != nil {
		return 0, err
	}
	if count <= capacity {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM semantic_cache_entries WHERE id IN (
			SELECT id FROM semantic_cache_entries ORDER BY quality_score ASC, last_used ASC LIMIT ?
		)`, count-capacity)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AddGlossaryTerm inserts or replaces a glossary entry, grounded on the
// teacher's glossary table of the same shape.
func (s *Store) AddGlossaryTerm(ctx context.Context, sourceLang, targetLang, sourceTerm, targetTerm string) error {
	id := fmt.Sprintf("gl_%s_%s_%s", sourceLang, targetLang, hashKey(sourceTerm))
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO glossary_terms (id, source_lang, target_lang, source_term, target_term) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(source_lang, target_lang, source_term) DO UPDATE SET target_term = excluded.target_term`,
		id, sourceLang, targetLang, sourceTerm, targetTerm)
	return err
}

// GlossaryTerms returns every glossary term for a language pair as a
// source-term set (for internal/router's glossary-aware routing) keyed by
// source term, valued true.
func (s *Store) GlossaryTerms(ctx context.Context, sourceLang, targetLang string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_term FROM glossary_terms WHERE source_lang = ? AND target_lang = ?`,
		sourceLang, targetLang)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	terms := map[string]bool{}
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, err
		}
		terms[term] = true
	}
	return terms, rows.Err()
}

// normalizeForLookup mirrors the teacher store's normalizeText: collapse
// whitespace runs, trim, and NFC-normalize (spec §4.5's normalization
// step), but keep transport placeholder tokens intact since they are part
// of the exact cache key (only embeddings strip them, see embeddingText in
// cache.go). Cache.Lookup and Cache.Save apply this same normalization
// before building the in-memory tier's Key, so both tiers hit on
// logically identical source text regardless of incidental spacing
// differences between extraction runs.
func normalizeForLookup(text string) string {
	return norm.NFC.String(strings.Join(strings.Fields(text), " "))
}

func hashKey(s string) string {
	var sum uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		sum ^= uint64(s[i])
		sum *= 1099511628211
	}
	return fmt.Sprintf("%x", sum)
}

func floatsToBytes(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := new(bytes.Buffer)
	for _, v := range vec {
		_ = binary.Write(buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

func bytesToFloats(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	n := len(b) / 4
	out := make([]float32, n)
	r := bytes.NewReader(b)
	for i := 0; i < n; i++ {
		_ = binary.Read(r, binary.LittleEndian, &out[i])
	}
	return out
}
