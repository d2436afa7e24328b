// Package sqlite implements vectorstore.Storage on a local pure-Go SQLite
// file with in-process brute-force vector search. Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"vergirag/internal/domain"
	"vergirag/internal/vectorstore"
)

var _ vectorstore.Storage = (*Store)(nil)

// Distance selects how vectors are compared.
type Distance string

const (
	Cosine    Distance = "cosine"
	Euclidean Distance = "l2"
)

// existsBatch keeps IN (...) lists under SQLite's bound-parameter limit.
const existsBatch = 500

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a structured logger for the store.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithDistance selects cosine similarity (default) or euclidean distance.
func WithDistance(d Distance) Option {
	return func(s *Store) { s.distance = d }
}

// Store keeps one namespace in one SQLite file. Embeddings are stored as
// JSON text.
type Store struct {
	db        *sql.DB
	logger    *slog.Logger
	distance  Distance
	dimension int
}

// Open opens (creating if needed) the SQLite file at dbPath and its schema,
// so reads work on a store that was never initialized.
// A single connection serializes all access and avoids SQLITE_BUSY.
func Open(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{
		db:       db,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		distance: Cosine,
	}
	for _, o := range opts {
		o(s)
	}
	if s.distance != Cosine && s.distance != Euclidean {
		_ = db.Close()
		return nil, fmt.Errorf("unknown distance %q", s.distance)
	}
	for _, q := range schema {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create table: %w", err)
		}
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath, "distance", s.distance)
	return s, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		source_path TEXT NOT NULL,
		page_key TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// Init records the vector dimension. A namespace created with another
// dimension is rejected.
func (s *Store) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	var stored string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'dimension'`).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('dimension', ?)`, fmt.Sprint(dimension)); err != nil {
			return fmt.Errorf("store dimension: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read dimension: %w", err)
	case stored != fmt.Sprint(dimension):
		return fmt.Errorf("vector dimension mismatch: namespace has %s, got %d", stored, dimension)
	}
	s.dimension = dimension
	return nil
}

func (s *Store) Exists(ctx context.Context, ids []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for start := 0; start < len(ids); start += existsBatch {
		end := min(start+existsBatch, len(ids))
		batch := ids[start:end]
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		q := `SELECT id FROM chunks WHERE id IN (` + placeholders(len(batch)) + `)`
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, fmt.Errorf("query ids: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan id: %w", err)
			}
			out[id] = struct{}{}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterate ids: %w", err)
		}
	}
	return out, nil
}

// Insert adds chunks in one transaction. An id that already exists fails the
// whole batch; callers filter with Exists first.
func (s *Store) Insert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, source_path, page_key, chunk_index, content, embedding)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if s.dimension > 0 && len(vectors[i]) != s.dimension {
			return fmt.Errorf("vector dimension mismatch for %s", c.ChunkID)
		}
		emb, err := json.Marshal(vectors[i])
		if err != nil {
			return fmt.Errorf("encode embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, c.ChunkID, c.SourcePath, c.PageKey, c.Index, c.Text, string(emb)); err != nil {
			s.logger.Error("sqlite: insert chunk failed", "chunk_id", c.ChunkID, "error", err)
			return fmt.Errorf("insert chunk %s: %w", c.ChunkID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.logger.Debug("sqlite: insert ok", "chunks", len(chunks), "duration", time.Since(start))
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	start := time.Now()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_path, page_key, chunk_index, content, embedding FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var c domain.Chunk
		var embJSON string
		if err := rows.Scan(&c.ChunkID, &c.SourcePath, &c.PageKey, &c.Index, &c.Text, &embJSON); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		var stored []float64
		if err := json.Unmarshal([]byte(embJSON), &stored); err != nil {
			s.logger.Warn("sqlite: skipping chunk with unreadable embedding", "chunk_id", c.ChunkID, "error", err)
			continue
		}
		results = append(results, domain.SearchResult{Chunk: c, Score: s.score(vector, stored)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	metric := s.Metric()
	sort.SliceStable(results, func(i, j int) bool {
		return metric.Better(results[i].Score, results[j].Score)
	})
	if len(results) > topK {
		results = results[:topK]
	}
	s.logger.Debug("sqlite: search ok", "returned", len(results), "duration", time.Since(start))
	return results, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// Clear drops every chunk and the recorded dimension.
func (s *Store) Clear(ctx context.Context) error {
	for _, q := range []string{`DELETE FROM chunks`, `DELETE FROM meta`} {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("clear: %w", err)
		}
	}
	s.dimension = 0
	return nil
}

func (s *Store) Metric() domain.Metric {
	if s.distance == Euclidean {
		return domain.MetricDistance
	}
	return domain.MetricSimilarity
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) score(a, b []float64) float64 {
	if s.distance == Euclidean {
		return euclidean(a, b)
	}
	return cosineSimilarity(a, b)
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

func euclidean(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
