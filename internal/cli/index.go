package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/codescout/pkg/types"
)

func runIndex(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args, 0)
	if err != nil {
		return err
	}
	workers, _ := cmd.Flags().GetInt("workers")
	memoryLimit, _ := cmd.Flags().GetInt("memory-limit")
	full, _ := cmd.Flags().GetBool("full")

	p, err := buildPipeline(root, pipelineOptions{
		workers:       workers,
		memoryLimitMB: memoryLimit,
		fullReindex:   full,
	})
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	unsubscribe := p.state.OnProgressUpdate(func(status types.ProgressStatus) {
		fmt.Fprintln(cmd.ErrOrStderr(), status.Message)
	})
	defer unsubscribe()

	p.state.SetSystemState(types.IndexingStateIndexing, "Indexing "+root)
	result, err := p.scanner.ScanDirectory(ctx, root)
	if err != nil {
		p.state.SetSystemState(types.IndexingStateError, err.Error())
		return err
	}
	p.state.SetSystemState(types.IndexingStateIndexed,
		fmt.Sprintf("Indexed %d blocks from %d files", len(result.CodeBlocks), result.Stats.Processed))

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d files (%d unchanged, %d blocks)\n",
		result.Stats.Processed, result.Stats.Skipped, len(result.CodeBlocks))
	return nil
}
