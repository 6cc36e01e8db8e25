package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dshills/codescout/internal/cache"
	"github.com/dshills/codescout/internal/embedder"
	"github.com/dshills/codescout/internal/parser"
	"github.com/dshills/codescout/internal/pool"
	"github.com/dshills/codescout/internal/scanner"
	"github.com/dshills/codescout/internal/state"
	"github.com/dshills/codescout/internal/vectorstore"
	"github.com/dshills/codescout/internal/workspace"
)

// DataDirName is where index state lives inside a project root.
const DataDirName = ".codescout"

// pipeline wires one project's full indexing stack together. Close
// tears it down in reverse dependency order.
type pipeline struct {
	root     string
	pool     *pool.Pool
	scanner  *scanner.Scanner
	store    *vectorstore.SQLiteStore
	cache    *cache.BadgerCache
	embedder *embedder.OpenAIEmbedder
	state    *state.Manager
	ignore   *scanner.IgnoreRules
	log      *slog.Logger
}

type pipelineOptions struct {
	workers       int
	memoryLimitMB int
	fullReindex   bool
}

func buildPipeline(root string, opts pipelineOptions) (*pipeline, error) {
	dataDir := filepath.Join(root, DataDirName)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	log := slog.Default()

	ignore, err := scanner.LoadIgnoreRules(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load ignore rules: %w", err)
	}

	hashCache, err := cache.NewBadgerCache(filepath.Join(dataDir, "hashes"))
	if err != nil {
		return nil, err
	}
	if opts.fullReindex {
		if err := hashCache.Clear(); err != nil {
			_ = hashCache.Close()
			return nil, err
		}
	}

	store, err := vectorstore.NewSQLiteStore(filepath.Join(dataDir, "index.db"))
	if err != nil {
		_ = hashCache.Close()
		return nil, err
	}

	embedCache := embedder.NewCache(0)
	embed, err := embedder.NewOpenAIEmbedder(embedder.OpenAIConfig{Logger: log}, embedCache)
	if err != nil {
		_ = store.Close()
		_ = hashCache.Close()
		return nil, err
	}

	workerPool := pool.New(
		scanner.NewParseTaskHandler(parser.New(parser.Options{})),
		pool.Options{
			MaxWorkers:        opts.workers,
			MemoryThresholdMB: opts.memoryLimitMB,
			Logger:            log,
		},
	)

	progress := state.NewManager(0, log)
	scan := scanner.New(scanner.Deps{
		Pool:     workerPool,
		Embedder: embed,
		Store:    store,
		Cache:    hashCache,
		Ignore:   ignore,
		Progress: progress,
		Logger:   log,
	}, scanner.Options{})

	return &pipeline{
		root:     root,
		pool:     workerPool,
		scanner:  scan,
		store:    store,
		cache:    hashCache,
		embedder: embed,
		state:    progress,
		ignore:   ignore,
		log:      log,
	}, nil
}

func (p *pipeline) Close() {
	p.scanner.Dispose()
	p.state.Dispose()
	_ = p.embedder.Close()
	if err := p.store.Close(); err != nil {
		p.log.Warn("failed to close vector store", "error", err)
	}
	if err := p.cache.Close(); err != nil {
		p.log.Warn("failed to close hash cache", "error", err)
	}
}

// resolveRoot turns an optional positional arg into an absolute
// project root, defaulting to the working directory.
func resolveRoot(args []string, idx int) (string, error) {
	root := "."
	if len(args) > idx {
		root = args[idx]
	}
	abs := workspace.Normalize(root)
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}
