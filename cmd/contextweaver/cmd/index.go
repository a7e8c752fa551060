package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/contextweaver/contextweaver/internal/config"
	"github.com/contextweaver/contextweaver/internal/embed"
	"github.com/contextweaver/contextweaver/internal/index"
	"github.com/contextweaver/contextweaver/internal/store"
)

// newIndexCmd is the parent for index-inspection subcommands ("info" and
// "check"); indexing itself is the top-level "scan" command.
func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect the index",
	}
	cmd.AddCommand(newIndexInfoCmd())
	cmd.AddCommand(newIndexCheckCmd())
	return cmd
}

func newIndexInfoCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info [path]",
		Short: "Show index configuration and statistics",
		Long: `Display the embedding model, dimensions, chunk/file counts, and
on-disk size of the index, and flag whether the currently configured
embedder is compatible with it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runIndexInfo(cmd.Context(), cmd, path, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	return cmd
}

func runIndexInfo(ctx context.Context, cmd *cobra.Command, path string, jsonOutput bool) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	root, err := config.FindProjectRoot(absPath)
	if err != nil {
		root = absPath
	}

	dataDir := filepath.Join(root, ".contextweaver")
	metadataPath := filepath.Join(dataDir, "metadata.db")
	if _, err := os.Stat(metadataPath); os.IsNotExist(err) {
		return fmt.Errorf("no index found at %s\nRun 'contextweaver scan %s' to create one", dataDir, path)
	}

	metadata, err := store.NewSQLiteMetadataStore(metadataPath, store.DefaultBM25Config())
	if err != nil {
		return fmt.Errorf("failed to open metadata: %w", err)
	}
	defer func() { _ = metadata.Close() }()

	cfg, err := config.Load(root)
	if err != nil {
		cfg = config.NewConfig()
	}
	if err := metadata.SetCacheSizeMB(cfg.Performance.SQLiteCacheMB); err != nil {
		return fmt.Errorf("failed to configure sqlite cache: %w", err)
	}
	embedder := embed.New(cfg.Embeddings)
	defer func() { _ = embedder.Close() }()

	projectID := projectIDFor(root)
	info, err := store.GetIndexInfo(ctx, metadata, projectID, dataDir, &store.EmbedderInfoInput{
		Model:      embedder.ModelName(),
		Backend:    cfg.Embeddings.Provider,
		Dimensions: embedder.Dimensions(),
	})
	if err != nil {
		return fmt.Errorf("failed to get index info: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	return printIndexInfo(cmd, info)
}

func printIndexInfo(cmd *cobra.Command, info *store.IndexInfo) error {
	out := cmd.OutOrStdout()
	headerStyle := lipgloss.NewStyle().Bold(true).Underline(true)

	rows := [][2]string{
		{"Location", info.Location},
		{"Project", info.ProjectRoot},
		{"Index model", info.IndexModel},
		{"Index dimensions", fmt.Sprintf("%d", info.IndexDimensions)},
		{"Chunks", fmt.Sprintf("%d", info.ChunkCount)},
		{"Files", fmt.Sprintf("%d", info.DocumentCount)},
		{"Index size", store.FormatBytes(info.IndexSizeBytes)},
		{"Vector size", store.FormatBytes(info.VectorSizeBytes)},
		{"Created", store.FormatTime(info.CreatedAt)},
		{"Current model", info.CurrentModel},
		{"Current dimensions", fmt.Sprintf("%d", info.CurrentDimensions)},
	}

	fmt.Fprintln(out, headerStyle.Render("Index Information"))
	width := 0
	for _, r := range rows {
		if len(r[0]) > width {
			width = len(r[0])
		}
	}
	for _, r := range rows {
		fmt.Fprintf(out, "  %-*s  %s\n", width, r[0], r[1])
	}

	if info.Compatible {
		fmt.Fprintln(out, "  Status: compatible")
	} else {
		fmt.Fprintln(out, "  Status: INCOMPATIBLE — run 'contextweaver scan --force' to rebuild")
	}
	return nil
}

func newIndexCheckCmd() *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "check [path]",
		Short: "Check metadata/vector store consistency",
		Long: `Compare chunk IDs between the row store and the vector store,
catching the case where a crash mid-indexing left an orphaned vector
with no backing row, or a row whose vector was never written.

With --repair, orphaned vectors (vector present, row missing) are
deleted. Rows missing a vector can't be repaired in place; re-run
'contextweaver scan' to re-embed them.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runIndexCheck(cmd.Context(), cmd, path, repair)
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "Delete orphaned vector entries with no backing row")
	return cmd
}

func runIndexCheck(ctx context.Context, cmd *cobra.Command, path string, repair bool) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	root, err := config.FindProjectRoot(absPath)
	if err != nil {
		root = absPath
	}

	dataDir := filepath.Join(root, ".contextweaver")
	metadataPath := filepath.Join(dataDir, "metadata.db")
	if _, err := os.Stat(metadataPath); os.IsNotExist(err) {
		return fmt.Errorf("no index found at %s\nRun 'contextweaver scan %s' to create one", dataDir, path)
	}

	metadata, err := store.NewSQLiteMetadataStore(metadataPath, store.DefaultBM25Config())
	if err != nil {
		return fmt.Errorf("failed to open metadata: %w", err)
	}
	defer func() { _ = metadata.Close() }()

	cfg, err := config.Load(root)
	if err != nil {
		cfg = config.NewConfig()
	}
	if err := metadata.SetCacheSizeMB(cfg.Performance.SQLiteCacheMB); err != nil {
		return fmt.Errorf("failed to configure sqlite cache: %w", err)
	}
	embedder := embed.New(cfg.Embeddings)
	defer func() { _ = embedder.Close() }()

	vector, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(embedder.Dimensions()))
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	defer func() { _ = vector.Close() }()
	vectorPath := filepath.Join(dataDir, "vectors.hnsw")
	if err := vector.Load(vectorPath); err != nil {
		return fmt.Errorf("failed to load vector store: %w", err)
	}

	projectID := projectIDFor(root)
	checker := index.NewConsistencyChecker(metadata, vector)
	result, err := checker.Check(ctx, projectID)
	if err != nil {
		return fmt.Errorf("consistency check failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Checked %d chunk IDs in %s\n", result.Checked, result.Duration)

	if len(result.Inconsistencies) == 0 {
		fmt.Fprintln(out, "Status: consistent")
		return nil
	}

	fmt.Fprintf(out, "Found %d inconsistencies:\n", len(result.Inconsistencies))
	for _, issue := range result.Inconsistencies {
		fmt.Fprintf(out, "  %s: %s\n", issue.Type, issue.ChunkID)
	}

	if !repair {
		fmt.Fprintln(out, "Run with --repair to delete orphaned vector entries")
		return nil
	}

	repaired, remaining, err := checker.Repair(ctx, result.Inconsistencies)
	if err != nil {
		return fmt.Errorf("repair failed: %w", err)
	}
	if err := vector.Save(vectorPath); err != nil {
		return fmt.Errorf("failed to save vector store after repair: %w", err)
	}
	fmt.Fprintf(out, "Repaired %d orphaned vectors\n", repaired)
	if len(remaining) > 0 {
		fmt.Fprintf(out, "%d inconsistencies remain (need re-scan to fix): run 'contextweaver scan' on affected files\n", len(remaining))
	}
	return nil
}
