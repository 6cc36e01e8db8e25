package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dshills/codescout/pkg/types"
)

// ErrDimensionMismatch is returned when a stored vector's width differs
// from the query's, which happens when the index was built with a
// different embedding model.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Point is one indexed code block with its embedding vector.
type Point struct {
	ID     string
	Block  types.CodeBlock
	Vector []float32
}

// SearchResult pairs a stored block with its similarity to the query.
type SearchResult struct {
	Point Point
	Score float64
}

// Store persists embedded code blocks and serves similarity queries.
type Store interface {
	// Upsert inserts or replaces points by ID.
	Upsert(ctx context.Context, points []Point) error

	// DeleteByPath removes every point belonging to one file.
	DeleteByPath(ctx context.Context, path string) error

	// DeleteByPaths removes every point belonging to the given files.
	DeleteByPaths(ctx context.Context, paths []string) error

	// Search returns the limit most similar points to the query vector,
	// best first.
	Search(ctx context.Context, query []float32, limit int) ([]SearchResult, error)

	// Count returns the number of stored points.
	Count(ctx context.Context) (int, error)

	// Close releases the underlying storage.
	Close() error
}

// PointID derives a stable, deterministic ID from a block's location,
// so re-indexing the same block overwrites rather than duplicates.
func PointID(block types.CodeBlock) string {
	name := fmt.Sprintf("%s:%d-%d", block.FilePath, block.StartLine, block.EndLine)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
