package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/contextweaver/contextweaver/internal/config"
	"github.com/contextweaver/contextweaver/internal/embed"
	"github.com/contextweaver/contextweaver/internal/graph"
	"github.com/contextweaver/contextweaver/internal/pack"
	weaversearch "github.com/contextweaver/contextweaver/internal/search"
	"github.com/contextweaver/contextweaver/internal/store"
)

var (
	breadcrumbStyle = lipgloss.NewStyle().Bold(true)
	scoreStyle      = lipgloss.NewStyle().Faint(true)
)

func newSearchCmd() *cobra.Command {
	var format string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Build a context pack for a query against the indexed codebase",
		Long: `Run hybrid (BM25 + semantic) search with RRF fusion, a cross-encoder
rerank pass, graph-based expansion, and budget-aware packing, returning
the most relevant file segments for a free-text query.

Examples:
  contextweaver search "authentication middleware"
  contextweaver search "handleRequest" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "unused, reserved for future result-count tuning")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, format string) error {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}
	dataDir := filepath.Join(root, ".contextweaver")
	metadataPath := filepath.Join(dataDir, "metadata.db")
	if _, err := os.Stat(metadataPath); os.IsNotExist(err) {
		return fmt.Errorf("no index found. Run 'contextweaver scan' first")
	}

	cfg, err := config.Load(root)
	if err != nil {
		cfg = config.NewConfig()
	}

	metadata, err := store.NewSQLiteMetadataStore(metadataPath, store.DefaultBM25Config())
	if err != nil {
		return fmt.Errorf("failed to open metadata: %w", err)
	}
	defer func() { _ = metadata.Close() }()
	if err := metadata.SetCacheSizeMB(cfg.Performance.SQLiteCacheMB); err != nil {
		return fmt.Errorf("failed to configure sqlite cache: %w", err)
	}

	embedder := embed.New(cfg.Embeddings)
	defer func() { _ = embedder.Close() }()

	vectorPath := filepath.Join(dataDir, "vectors.hnsw")
	vector, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(embedder.Dimensions()))
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	defer func() { _ = vector.Close() }()
	if loadErr := vector.Load(vectorPath); loadErr != nil {
		return fmt.Errorf("failed to load vector store: %w", loadErr)
	}

	projectID := projectIDFor(root)
	expander, err := graph.New(graph.Config{ProjectID: projectID, RootPath: root, Metadata: metadata})
	if err != nil {
		return fmt.Errorf("failed to create graph expander: %w", err)
	}

	packer := pack.New(pack.Config{
		Metadata:      metadata,
		RootPath:      root,
		MaxTotalChars: cfg.Search.ContextBudgetChars,
	})

	var reranker weaversearch.Reranker = weaversearch.NoOpReranker{}
	if cfg.Rerank.Enabled && cfg.Rerank.Endpoint != "" {
		reranker = weaversearch.NewHTTPReranker(weaversearch.HTTPRerankConfig{
			Endpoint: cfg.Rerank.Endpoint,
			Model:    cfg.Rerank.Model,
			Timeout:  cfg.Rerank.Timeout,
		})
	}

	svc := weaversearch.New(weaversearch.Config{
		Metadata: metadata,
		Vectors:  vector,
		Embedder: embedder,
		Reranker: reranker,
		Expander: expander,
		Packer:   packer,
	})

	result, err := svc.BuildContextPack(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printContextPack(cmd, result)
}

func printContextPack(cmd *cobra.Command, result *pack.ContextPack) error {
	out := cmd.OutOrStdout()
	if len(result.Files) == 0 {
		fmt.Fprintf(out, "No results found for %q\n", result.Query)
		return nil
	}

	fmt.Fprintf(out, "Context pack for %q (%d files):\n\n", result.Query, len(result.Files))
	for _, f := range result.Files {
		fmt.Fprintln(out, breadcrumbStyle.Render(f.FilePath))
		for _, seg := range f.Segments {
			fmt.Fprintf(out, "  %s %s\n", scoreStyle.Render(fmt.Sprintf("L%d-%d score=%.3f", seg.StartLine, seg.EndLine, seg.Score)), seg.Breadcrumb)
			for _, line := range strings.Split(seg.Text, "\n") {
				fmt.Fprintf(out, "  | %s\n", line)
			}
		}
		fmt.Fprintln(out)
	}
	return nil
}
