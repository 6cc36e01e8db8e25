package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS points (
	id         TEXT PRIMARY KEY,
	file_path  TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	end_line   INTEGER NOT NULL,
	content    TEXT NOT NULL,
	hash       TEXT NOT NULL,
	vector     BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_points_file_path ON points(file_path);
`

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStore opens (creating if necessary) the store at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Upsert inserts or replaces points by ID in one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO points (id, file_path, start_line, end_line, content, hash, vector, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_path  = excluded.file_path,
			start_line = excluded.start_line,
			end_line   = excluded.end_line,
			content    = excluded.content,
			hash       = excluded.hash,
			vector     = excluded.vector,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	for _, p := range points {
		id := p.ID
		if id == "" {
			id = PointID(p.Block)
		}
		if _, err := stmt.ExecContext(ctx, id,
			p.Block.FilePath, p.Block.StartLine, p.Block.EndLine,
			p.Block.Content, p.Block.Hash,
			encodeVector(p.Vector), now,
		); err != nil {
			return fmt.Errorf("failed to upsert point %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// DeleteByPath removes every point belonging to one file.
func (s *SQLiteStore) DeleteByPath(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM points WHERE file_path = ?", path)
	if err != nil {
		return fmt.Errorf("failed to delete points for %s: %w", path, err)
	}
	return nil
}

// DeleteByPaths removes every point belonging to the given files.
func (s *SQLiteStore) DeleteByPaths(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(paths))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(paths))
	for i, p := range paths {
		args[i] = p
	}

	query := fmt.Sprintf("DELETE FROM points WHERE file_path IN (%s)", placeholders)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

// Search returns the limit most similar points to the query vector,
// best first. With sqlite-vec available the ranking happens in SQL;
// otherwise candidates are scored in Go.
func (s *SQLiteStore) Search(ctx context.Context, query []float32, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		return []SearchResult{}, nil
	}
	if VectorExtensionAvailable {
		return s.searchOptimized(ctx, query, limit)
	}
	return s.searchFallback(ctx, query, limit)
}

// searchOptimized ranks in SQL via the sqlite-vec extension.
// vec_distance_cosine returns distance (lower is better); converted to
// similarity for API consistency.
func (s *SQLiteStore) searchOptimized(ctx context.Context, query []float32, limit int) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_path, start_line, end_line, content, hash, vector,
		       1.0 - vec_distance_cosine(vector, ?) AS similarity
		FROM points
		ORDER BY similarity DESC
		LIMIT ?
	`, encodeVector(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]SearchResult, 0, limit)
	for rows.Next() {
		var r SearchResult
		var blob []byte
		if err := rows.Scan(&r.Point.ID,
			&r.Point.Block.FilePath, &r.Point.Block.StartLine, &r.Point.Block.EndLine,
			&r.Point.Block.Content, &r.Point.Block.Hash,
			&blob, &r.Score,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Point.Vector = decodeVector(blob)
		results = append(results, r)
	}
	return results, rows.Err()
}

// searchFallback scans all candidates and computes cosine similarity
// in Go. Used for purego builds.
func (s *SQLiteStore) searchFallback(ctx context.Context, query []float32, limit int) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_path, start_line, end_line, content, hash, vector
		FROM points
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]SearchResult, 0, 256)
	for rows.Next() {
		var r SearchResult
		var blob []byte
		if err := rows.Scan(&r.Point.ID,
			&r.Point.Block.FilePath, &r.Point.Block.StartLine, &r.Point.Block.EndLine,
			&r.Point.Block.Content, &r.Point.Block.Hash,
			&blob,
		); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		r.Point.Vector = decodeVector(blob)
		score, err := cosineSimilarity(query, r.Point.Vector)
		if err != nil {
			return nil, fmt.Errorf("failed to score %s: %w", r.Point.Block.FilePath, err)
		}
		r.Score = score
		candidates = append(candidates, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if limit > len(candidates) {
		limit = len(candidates)
	}
	return candidates[:limit], nil
}

// Count returns the number of stored points.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM points").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return n, nil
}
