package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/codescout/internal/scanner"
	"github.com/dshills/codescout/pkg/types"
)

func runWatch(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args, 0)
	if err != nil {
		return err
	}
	workers, _ := cmd.Flags().GetInt("workers")

	p, err := buildPipeline(root, pipelineOptions{workers: workers})
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initial full pass; later passes ride the hash cache.
	p.state.SetSystemState(types.IndexingStateIndexing, "Indexing "+root)
	if _, err := p.scanner.ScanDirectory(ctx, root); err != nil {
		p.state.SetSystemState(types.IndexingStateError, err.Error())
		return err
	}
	p.state.SetSystemState(types.IndexingStateIndexed, "Watching "+root)

	onChange := func(changed, removed []string) {
		if len(removed) > 0 {
			if err := p.store.DeleteByPaths(ctx, removed); err != nil {
				p.log.Warn("failed to drop removed files from index", "error", err)
			}
			for _, path := range removed {
				if err := p.cache.DeleteHash(path); err != nil {
					p.log.Warn("failed to drop removed file from cache", "path", path, "error", err)
				}
			}
		}
		// Changed files get their stale points dropped so the re-scan
		// rewrites them cleanly even if block boundaries moved.
		for _, path := range changed {
			if err := p.store.DeleteByPath(ctx, path); err != nil {
				p.log.Warn("failed to drop changed file from index", "path", path, "error", err)
			}
		}

		p.state.SetSystemState(types.IndexingStateIndexing, "Re-indexing changed files")
		result, err := p.scanner.ScanDirectory(ctx, root)
		if err != nil {
			p.state.SetSystemState(types.IndexingStateError, err.Error())
			p.log.Error("re-index failed", "error", err)
			return
		}
		p.state.SetSystemState(types.IndexingStateIndexed, "Watching "+root)
		p.log.Info("re-indexed", "changed", len(changed), "removed", len(removed), "processed", result.Stats.Processed)
	}

	w, err := scanner.NewWatcher(root, onChange, scanner.WatcherOptions{
		Ignore: p.ignore,
		Logger: p.log,
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	p.log.Info("watching for changes", "root", root)
	w.Run(ctx)
	return nil
}
