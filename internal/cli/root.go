package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/codescout/internal/vectorstore"
)

// NewRootCommand builds the codescout command tree.
func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "codescout",
		Short: "Semantic code indexing and search",
		Long: `Codescout parses a codebase into code blocks, embeds them, and
indexes the vectors in a local SQLite store for semantic search.

Index state lives under .codescout/ in the project root. Re-indexing
is incremental: files whose content hash is unchanged are skipped.`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			configureLogging(verbose)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	indexCmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a project directory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runIndex,
	}
	indexCmd.Flags().Int("workers", 0, "Parse workers (default: CPU count - 1)")
	indexCmd.Flags().Int("memory-limit", 0, "Memory admission threshold in MB")
	indexCmd.Flags().Bool("full", false, "Ignore the hash cache and re-index everything")

	searchCmd := &cobra.Command{
		Use:   "search <query> [path]",
		Short: "Search the index semantically",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runSearch,
	}
	searchCmd.Flags().IntP("limit", "n", 10, "Maximum results")

	watchCmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Index a project and re-index on file changes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runWatch,
	}
	watchCmd.Flags().Int("workers", 0, "Parse workers (default: CPU count - 1)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "codescout %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Build Mode: %s\n", vectorstore.BuildMode)
			fmt.Fprintf(cmd.OutOrStdout(), "SQLite Driver: %s\n", vectorstore.DriverName)
			fmt.Fprintf(cmd.OutOrStdout(), "Vector Extension: %v\n", vectorstore.VectorExtensionAvailable)
		},
	}

	rootCmd.AddCommand(indexCmd, searchCmd, watchCmd, versionCmd)
	return rootCmd
}

// configureLogging routes structured logs to stderr so stdout stays
// clean for command output.
func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
