package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/codescout/internal/vectorstore"
	"github.com/dshills/codescout/pkg/types"
)

// DefaultBatchThreshold is the accumulated block count that triggers a
// batch flush to the embedder and vector store.
const DefaultBatchThreshold = 50

// maxEmbedBatch caps the texts sent per embedding request. Providers
// reject oversized batches.
const maxEmbedBatch = 100

// ParsePool is the scanner's view of the worker pool.
type ParsePool interface {
	Execute(ctx context.Context, task types.Task) (any, error)
	Shutdown()
}

// Embedder turns a batch of texts into vectors, one per text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore receives the embedded blocks.
type VectorStore interface {
	Upsert(ctx context.Context, points []vectorstore.Point) error
}

// HashCache is consulted to skip files whose content is unchanged.
type HashCache interface {
	GetHash(path string) (string, error)
	SetHash(path, hash string) error
}

// ProgressReporter receives per-file and per-batch progress updates.
type ProgressReporter interface {
	ReportFileQueueProgress(processed, total int, currentItem string)
	ReportBlockIndexingProgress(processed, total int)
}

// Options configures a Scanner. Zero values fall back to defaults.
type Options struct {
	BatchThreshold int
	Concurrency    int // in-flight parse submissions; default NumCPU
}

// Deps are the scanner's collaborators. Pool, Embedder, Store, and
// Cache are required; Progress and Ignore are optional.
type Deps struct {
	Pool     ParsePool
	Embedder Embedder
	Store    VectorStore
	Cache    HashCache
	Lister   Lister
	Ignore   *IgnoreRules
	Progress ProgressReporter
	Logger   *slog.Logger
}

// Scanner walks a directory tree, parses candidate files through the
// worker pool, and indexes the resulting blocks in embedded batches.
// A Scanner is transient: one instance per scan lifecycle, disposed
// afterwards.
type Scanner struct {
	deps Deps
	opts Options
	log  *slog.Logger

	flushMu     sync.Mutex
	disposeOnce sync.Once
}

// New creates a Scanner.
func New(deps Deps, opts Options) *Scanner {
	if opts.BatchThreshold <= 0 {
		opts.BatchThreshold = DefaultBatchThreshold
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Lister == nil {
		deps.Lister = &WalkLister{Ignore: deps.Ignore}
	}
	return &Scanner{deps: deps, opts: opts, log: deps.Logger}
}

// accumulator collects results across concurrent file submissions.
type accumulator struct {
	mu        sync.Mutex
	all       []types.CodeBlock
	batch     []types.CodeBlock
	processed int
	skipped   int
	found     int
	indexed   int
}

// ScanDirectory scans root end to end and returns the indexed blocks.
//
// Cancellation is cooperative: ctx is polled before each file
// submission; once observed the scan stops scheduling work and returns
// ErrCancelled with no partial result. Work already dispatched keeps
// running on a detached context, so an in-flight parse or batch flush
// is never interrupted halfway.
func (s *Scanner) ScanDirectory(ctx context.Context, root string) (*types.ScanResult, error) {
	paths, hasMore, err := s.deps.Lister.List(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}
	if hasMore {
		s.log.Warn("file listing truncated", "root", root, "listed", len(paths))
	}
	if s.deps.Ignore != nil {
		paths = s.deps.Ignore.Filter(root, paths)
	}
	total := len(paths)
	s.log.Info("scan started", "root", root, "files", total)

	acc := &accumulator{}
	detached := context.WithoutCancel(ctx)
	g, gctx := errgroup.WithContext(detached)
	g.SetLimit(s.opts.Concurrency)

	cancelled := false
	for _, path := range paths {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		if gctx.Err() != nil {
			break // a batch flush or parse already failed
		}
		path := path
		g.Go(func() error {
			return s.processFile(gctx, path, acc, total)
		})
	}

	err = g.Wait()
	if cancelled {
		s.log.Info("scan cancelled", "root", root, "processed", acc.processed)
		return nil, types.ErrCancelled
	}
	if err != nil {
		return nil, fmt.Errorf("scan of %s failed: %w", root, err)
	}

	// Terminal flush of the remainder. The blocks are already parsed
	// and paid for, so cancellation is not re-checked here.
	acc.mu.Lock()
	rest := acc.batch
	acc.batch = nil
	acc.mu.Unlock()
	if len(rest) > 0 {
		if err := s.flushBatch(detached, rest, acc); err != nil {
			return nil, fmt.Errorf("scan of %s failed: %w", root, err)
		}
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	s.log.Info("scan finished", "root", root, "processed", acc.processed, "skipped", acc.skipped, "blocks", len(acc.all))
	return &types.ScanResult{
		CodeBlocks: acc.all,
		Stats:      types.ScanStats{Processed: acc.processed, Skipped: acc.skipped},
	}, nil
}

// processFile runs one file's lifecycle: hash, cache check, parse via
// the pool, accumulate, cache update, progress report, and a batch
// flush when the threshold is crossed. Steps are strictly sequential
// within one file.
func (s *Scanner) processFile(ctx context.Context, path string, acc *accumulator, total int) error {
	content, err := os.ReadFile(path)
	if err != nil {
		s.log.Warn("skipping unreadable file", "path", path, "error", err)
		return nil
	}
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	cached, err := s.deps.Cache.GetHash(path)
	if err != nil {
		s.log.Warn("hash cache read failed", "path", path, "error", err)
	}
	if cached != "" && cached == hash {
		acc.mu.Lock()
		acc.skipped++
		seen := acc.processed + acc.skipped
		acc.mu.Unlock()
		s.reportFile(seen, total, path)
		return nil
	}

	data, err := s.deps.Pool.Execute(ctx, types.Task{
		Type:    TaskParseFile,
		Payload: ParsePayload{Path: path},
	})
	if err != nil {
		// A draining pool or cancelled context ends the scan; a plain
		// parse failure only loses this file.
		if errors.Is(err, types.ErrShuttingDown) || errors.Is(err, context.Canceled) {
			return err
		}
		s.log.Warn("parse task failed", "path", path, "error", err)
		return nil
	}
	blocks, ok := data.([]types.CodeBlock)
	if !ok {
		s.log.Warn("parse task returned unexpected data", "path", path)
		return nil
	}

	acc.mu.Lock()
	acc.all = append(acc.all, blocks...)
	acc.batch = append(acc.batch, blocks...)
	acc.found += len(blocks)
	acc.processed++
	seen := acc.processed + acc.skipped
	var take []types.CodeBlock
	if len(acc.batch) >= s.opts.BatchThreshold {
		take = acc.batch
		acc.batch = nil
	}
	acc.mu.Unlock()

	if err := s.deps.Cache.SetHash(path, hash); err != nil {
		s.log.Warn("hash cache write failed", "path", path, "error", err)
	}
	s.reportFile(seen, total, path)

	if take != nil {
		return s.flushBatch(ctx, take, acc)
	}
	return nil
}

// flushBatch embeds a batch of blocks and upserts the vectors.
// Flushes are serialized; a failure here is scan-fatal because the
// index would otherwise silently miss blocks.
func (s *Scanner) flushBatch(ctx context.Context, blocks []types.CodeBlock, acc *accumulator) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	for start := 0; start < len(blocks); start += maxEmbedBatch {
		end := start + maxEmbedBatch
		if end > len(blocks) {
			end = len(blocks)
		}
		chunk := blocks[start:end]

		texts := make([]string, len(chunk))
		for i, b := range chunk {
			texts[i] = b.Content
		}
		vectors, err := s.deps.Embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed batch of %d blocks: %w", len(chunk), err)
		}
		if len(vectors) != len(chunk) {
			return fmt.Errorf("embedder returned %d vectors for %d blocks", len(vectors), len(chunk))
		}

		points := make([]vectorstore.Point, len(chunk))
		for i, b := range chunk {
			points[i] = vectorstore.Point{ID: vectorstore.PointID(b), Block: b, Vector: vectors[i]}
		}
		if err := s.deps.Store.Upsert(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch of %d points: %w", len(points), err)
		}
	}

	acc.mu.Lock()
	acc.indexed += len(blocks)
	indexed, found := acc.indexed, acc.found
	acc.mu.Unlock()
	s.reportBlocks(indexed, found)
	return nil
}

// Dispose shuts down the owned worker pool. Safe to call multiple
// times; the pool's Shutdown runs exactly once.
func (s *Scanner) Dispose() {
	s.disposeOnce.Do(func() {
		s.deps.Pool.Shutdown()
	})
}

func (s *Scanner) reportFile(processed, total int, current string) {
	if s.deps.Progress != nil {
		s.deps.Progress.ReportFileQueueProgress(processed, total, current)
	}
}

func (s *Scanner) reportBlocks(indexed, found int) {
	if s.deps.Progress != nil {
		s.deps.Progress.ReportBlockIndexingProgress(indexed, found)
	}
}
