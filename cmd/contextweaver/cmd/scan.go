package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/contextweaver/contextweaver/internal/chunk"
	"github.com/contextweaver/contextweaver/internal/config"
	"github.com/contextweaver/contextweaver/internal/embed"
	"github.com/contextweaver/contextweaver/internal/index"
	weaverlock "github.com/contextweaver/contextweaver/internal/lock"
	"github.com/contextweaver/contextweaver/internal/scanner"
	"github.com/contextweaver/contextweaver/internal/store"
)

func newScanCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Index a directory for searching",
		Long: `Scan a directory, chunk its files, embed the chunks, and build the
hybrid (SQLite FTS5 + HNSW) index used by 'contextweaver search'.

Scanning is incremental: unchanged files (by content hash, not mtime)
are skipped, so re-running scan after a small edit only re-embeds what
changed. Use --force to discard the existing index and rebuild from
scratch.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runScan(ctx, cmd, path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Clear the existing index and rebuild from scratch")
	return cmd
}

func runScan(ctx context.Context, cmd *cobra.Command, path string, force bool) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("failed to access path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", absPath)
	}

	root, err := config.FindProjectRoot(absPath)
	if err != nil {
		root = absPath
	}
	dataDir := filepath.Join(root, ".contextweaver")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	heldLock, err := weaverlock.Acquire(dataDir, "scan")
	if err != nil {
		return fmt.Errorf("failed to acquire project lock: %w", err)
	}
	defer func() { _ = heldLock.Release() }()

	metadataPath := filepath.Join(dataDir, "metadata.db")
	if force {
		for _, name := range []string{"metadata.db", "metadata.db-shm", "metadata.db-wal", "vectors.hnsw", "vectors.hnsw.meta"} {
			_ = os.Remove(filepath.Join(dataDir, name))
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cleared existing index data, starting fresh...")
	}

	cfg, err := config.Load(root)
	if err != nil {
		cfg = config.NewConfig()
	}

	metadata, err := store.NewSQLiteMetadataStore(metadataPath, store.DefaultBM25Config())
	if err != nil {
		return fmt.Errorf("failed to open metadata store: %w", err)
	}
	defer func() { _ = metadata.Close() }()
	if err := metadata.SetCacheSizeMB(cfg.Performance.SQLiteCacheMB); err != nil {
		slog.Warn("failed to set sqlite cache size", slog.String("error", err.Error()))
	}

	projectID := projectIDFor(root)
	if _, err := metadata.GetProject(ctx, projectID); err != nil {
		if err := metadata.SaveProject(ctx, &store.Project{ID: projectID, Name: filepath.Base(root), RootPath: root}); err != nil {
			return fmt.Errorf("failed to register project: %w", err)
		}
	}

	embedder := embed.New(cfg.Embeddings)
	defer func() { _ = embedder.Close() }()

	dimensions := embedder.Dimensions()
	vectorPath := filepath.Join(dataDir, "vectors.hnsw")
	vector, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(dimensions))
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	defer func() { _ = vector.Close() }()
	if !force {
		if _, err := os.Stat(vectorPath); err == nil {
			if loadErr := vector.Load(vectorPath); loadErr != nil {
				slog.Warn("vector_load_failed", slog.String("error", loadErr.Error()))
			}
		}
	}

	sc, err := scanner.New()
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}

	runner := index.New(index.Config{
		ProjectID:       projectID,
		RootPath:        root,
		DataDir:         dataDir,
		Metadata:        metadata,
		Vector:          vector,
		Chunker:         chunk.NewSemanticSplitter(chunk.DefaultSplitterConfig()),
		Embedder:        embedder,
		Scanner:         sc,
		ExcludePatterns: cfg.Paths.Exclude,
	})

	stats, err := runner.IndexProject(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if err := metadata.UpdateProjectStats(ctx, projectID, stats.FilesAdded+stats.FilesModified, stats.ChunksIndexed); err != nil {
		slog.Warn("failed to update project stats", slog.String("error", err.Error()))
	}
	if err := metadata.SetState(ctx, store.StateKeyIndexDimension, fmt.Sprintf("%d", dimensions)); err != nil {
		slog.Warn("failed to persist index dimensions", slog.String("error", err.Error()))
	}
	if err := metadata.SetState(ctx, store.StateKeyIndexModel, embedder.ModelName()); err != nil {
		slog.Warn("failed to persist index model", slog.String("error", err.Error()))
	}

	if err := vector.Save(vectorPath); err != nil {
		return fmt.Errorf("failed to persist vector store: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scan complete: %d added, %d modified, %d deleted, %d skipped, %d chunks indexed\n",
		stats.FilesAdded, stats.FilesModified, stats.FilesDeleted, stats.FilesSkipped, stats.ChunksIndexed)
	return nil
}
