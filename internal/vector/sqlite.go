package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kensaku/internal/models"
)

// SQLiteStore is a durable Store backed by SQLite. Chunks and their
// embeddings persist across restarts; search decodes every stored vector and
// scores it exactly, so it trades latency for durability and suits corpora
// that must survive the process.
type SQLiteStore struct {
	db        *sql.DB
	dimension int
}

// NewSQLiteStore opens or creates a database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string, dimension int) (*SQLiteStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db, dimension: dimension}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		content TEXT NOT NULL,
		chunk_index INTEGER NOT NULL DEFAULT 0,
		token_count INTEGER NOT NULL DEFAULT 0,
		metadata TEXT,
		embedding BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
	`
	_, err := db.Exec(schema)
	return err
}

// AddChunks validates the whole batch, then inserts it in one transaction so
// a failure leaves the table unchanged.
func (s *SQLiteStore) AddChunks(ctx context.Context, chunks []*models.Chunk) error {
	for _, chunk := range chunks {
		if err := s.validate(chunk); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAddFailed, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO chunks (id, document_id, content, chunk_index, token_count, metadata, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAddFailed, err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("%w: marshal metadata for %s: %v", ErrAddFailed, chunk.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.DocumentID, chunk.Content, chunk.Index, chunk.TokenCount,
			string(metadataJSON), encodeVector(chunk.Embedding), now,
		); err != nil {
			return fmt.Errorf("%w: insert %s: %v", ErrAddFailed, chunk.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrAddFailed, err)
	}
	return nil
}

// DeleteChunks removes chunks by id. Absent ids are ignored.
func (s *SQLiteStore) DeleteChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE id IN (`+placeholders+`)`, args...)
	return err
}

// Search scores every stored chunk against the query, exactly as the
// in-memory store does, and returns the top k above the threshold.
func (s *SQLiteStore) Search(ctx context.Context, queryEmbedding []float32, opts SearchOptions) ([]*models.SearchResult, error) {
	if len(queryEmbedding) != s.dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, s.dimension, len(queryEmbedding))
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, content, chunk_index, token_count, metadata, embedding FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer rows.Close()

	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}

	query := normalized(queryEmbedding)
	var chunks []*models.Chunk
	var scores []scoredRow
	for rows.Next() {
		chunk, blob, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
		}
		if !chunk.MatchesFilters(opts.Filters) {
			continue
		}
		chunk.Embedding = decodeVector(blob)
		idx := len(chunks)
		chunks = append(chunks, chunk)
		scores = append(scores, scoredRow{idx: idx, score: InnerProduct(query, normalized(chunk.Embedding))})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	if len(chunks) == 0 {
		return []*models.SearchResult{}, nil
	}

	top := selectTopK(scores, topK)
	results := make([]*models.SearchResult, 0, len(top))
	for _, row := range top {
		score := clamp01(row.score)
		if score < opts.Threshold {
			continue
		}
		results = append(results, &models.SearchResult{
			Chunk:    chunks[row.idx],
			Score:    score,
			Rank:     len(results) + 1,
			Distance: 1 - score,
		})
	}
	return results, nil
}

// GetChunk returns the chunk with the given id.
func (s *SQLiteStore) GetChunk(ctx context.Context, id string) (*models.Chunk, bool) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, content, chunk_index, token_count, metadata, embedding FROM chunks WHERE id = ?`, id)
	chunk, blob, err := scanChunk(row)
	if err != nil {
		return nil, false
	}
	chunk.Embedding = decodeVector(blob)
	return chunk, true
}

// UpdateChunk replaces an existing chunk. Returns ErrNotFound when the id
// was never added.
func (s *SQLiteStore) UpdateChunk(ctx context.Context, chunk *models.Chunk) error {
	if err := s.validate(chunk); err != nil {
		return err
	}
	metadataJSON, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE chunks SET document_id = ?, content = ?, chunk_index = ?, token_count = ?, metadata = ?, embedding = ?
		 WHERE id = ?`,
		chunk.DocumentID, chunk.Content, chunk.Index, chunk.TokenCount,
		string(metadataJSON), encodeVector(chunk.Embedding), chunk.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, chunk.ID)
	}
	return nil
}

// Count returns the number of stored chunks.
func (s *SQLiteStore) Count() int {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Clear removes all chunks.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks`)
	return err
}

// HealthCheck reports whether the database answers a ping.
func (s *SQLiteStore) HealthCheck(ctx context.Context) bool {
	return s.db.PingContext(ctx) == nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) validate(chunk *models.Chunk) error {
	if chunk == nil || chunk.ID == "" {
		return fmt.Errorf("%w: chunk without an id", ErrAddFailed)
	}
	if len(chunk.Embedding) == 0 {
		return fmt.Errorf("%w: %s", ErrMissingEmbedding, chunk.ID)
	}
	if len(chunk.Embedding) != s.dimension {
		return fmt.Errorf("%w: chunk %s has %d, store expects %d",
			ErrDimensionMismatch, chunk.ID, len(chunk.Embedding), s.dimension)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChunk(r rowScanner) (*models.Chunk, []byte, error) {
	chunk := &models.Chunk{}
	var metadataJSON sql.NullString
	var blob []byte
	if err := r.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content, &chunk.Index,
		&chunk.TokenCount, &metadataJSON, &blob); err != nil {
		return nil, nil, err
	}
	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &chunk.Metadata); err != nil {
			return nil, nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return chunk, blob, nil
}
