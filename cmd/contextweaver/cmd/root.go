// Package cmd provides the CLI commands for ContextWeaver.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/contextweaver/contextweaver/internal/logging"
	"github.com/contextweaver/contextweaver/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the contextweaver CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contextweaver",
		Short: "Incremental code indexer and hybrid context retriever",
		Long: `ContextWeaver indexes a codebase incrementally (tree-sitter chunking,
SQLite FTS5 + HNSW hybrid retrieval) and packs the most relevant,
token-budgeted context for a free-text query.

Run 'contextweaver scan' to build the index, then 'contextweaver search
<query>' to retrieve a context pack.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("contextweaver version {{.Version}}\n")
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.contextweaver/logs/")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
