package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codescout/pkg/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func makePoint(path string, startLine int, content string, vector []float32) Point {
	block := types.CodeBlock{
		Content:   content,
		FilePath:  path,
		StartLine: startLine,
		EndLine:   startLine + 5,
	}
	block.ComputeHash()
	return Point{ID: PointID(block), Block: block, Vector: vector}
}

func TestUpsertAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	points := []Point{
		makePoint("a.go", 1, "func A() {}", []float32{1, 0, 0}),
		makePoint("a.go", 10, "func B() {}", []float32{0, 1, 0}),
		makePoint("b.go", 1, "func C() {}", []float32{0, 0, 1}),
	}
	require.NoError(t, store.Upsert(ctx, points))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestUpsert_ReplacesByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	original := makePoint("a.go", 1, "func A() {}", []float32{1, 0, 0})
	require.NoError(t, store.Upsert(ctx, []Point{original}))

	// Same location, new content: the stable ID makes it a replacement.
	updated := makePoint("a.go", 1, "func A() { /* changed */ }", []float32{0.5, 0.5, 0})
	updated.ID = original.ID
	require.NoError(t, store.Upsert(ctx, []Point{updated}))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := store.Search(ctx, []float32{0.5, 0.5, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Point.Block.Content, "changed")
}

func TestUpsert_EmptyBatch(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Upsert(context.Background(), nil))
}

func TestSearch_RanksBySimilarity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	points := []Point{
		makePoint("exact.go", 1, "exact match", []float32{1, 0, 0}),
		makePoint("close.go", 1, "close match", []float32{0.9, 0.1, 0}),
		makePoint("far.go", 1, "unrelated", []float32{0, 0, 1}),
	}
	require.NoError(t, store.Upsert(ctx, points))

	results, err := store.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "exact.go", results[0].Point.Block.FilePath)
	assert.Equal(t, "close.go", results[1].Point.Block.FilePath)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearch_DimensionMismatchFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Point{
		makePoint("three.go", 1, "three dims", []float32{1, 0, 0}),
		makePoint("two.go", 1, "two dims", []float32{1, 0}),
	}))

	_, err := store.Search(ctx, []float32{1, 0, 0}, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearch_ZeroLimit(t *testing.T) {
	store := newTestStore(t)

	results, err := store.Search(context.Background(), []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDeleteByPath(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Point{
		makePoint("a.go", 1, "func A() {}", []float32{1, 0, 0}),
		makePoint("a.go", 10, "func B() {}", []float32{0, 1, 0}),
		makePoint("b.go", 1, "func C() {}", []float32{0, 0, 1}),
	}))

	require.NoError(t, store.DeleteByPath(ctx, "a.go"))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDeleteByPaths(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Point{
		makePoint("a.go", 1, "func A() {}", []float32{1, 0, 0}),
		makePoint("b.go", 1, "func B() {}", []float32{0, 1, 0}),
		makePoint("c.go", 1, "func C() {}", []float32{0, 0, 1}),
	}))

	require.NoError(t, store.DeleteByPaths(ctx, []string{"a.go", "c.go"}))
	require.NoError(t, store.DeleteByPaths(ctx, nil))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPointID_Deterministic(t *testing.T) {
	block := types.CodeBlock{FilePath: "a.go", StartLine: 1, EndLine: 10, Content: "x"}

	assert.Equal(t, PointID(block), PointID(block))

	other := block
	other.StartLine = 2
	assert.NotEqual(t, PointID(block), PointID(other))
}

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{1.5, -2.25, 0, 3.14159}
	assert.Equal(t, vec, decodeVector(encodeVector(vec)))
	assert.Len(t, encodeVector(vec), 16)
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero norm", []float32{0, 0}, []float32{1, 0}, 0.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, err := cosineSimilarity(tc.a, tc.b)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, score, 1e-9)
		})
	}

	_, err := cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
