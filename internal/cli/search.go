package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/codescout/internal/workspace"
)

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	root, err := resolveRoot(args, 1)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	p, err := buildPipeline(root, pipelineOptions{})
	if err != nil {
		return err
	}
	defer p.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	vectors, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return fmt.Errorf("failed to embed query: %w", err)
	}
	results, err := p.store.Search(ctx, vectors[0], limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No results.")
		return nil
	}

	for i, r := range results {
		block := r.Point.Block
		fmt.Fprintf(cmd.OutOrStdout(), "%d. %s:%d-%d (score %.3f)\n",
			i+1, workspace.RelativeTo(block.FilePath, []string{root}), block.StartLine, block.EndLine, r.Score)
		fmt.Fprintln(cmd.OutOrStdout(), indent(block.Content, "   "))
	}
	return nil
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
