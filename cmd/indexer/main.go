// Command indexer rebuilds the vector index from the source document
// directory. The rebuild is destructive: the existing collection is deleted
// before the new corpus is ingested.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	ollamacli "github.com/rebota-hq/rebota/internal/adapter/ai/ollama"
	"github.com/rebota-hq/rebota/internal/adapter/observability"
	qdrantcli "github.com/rebota-hq/rebota/internal/adapter/vector/qdrant"
	"github.com/rebota-hq/rebota/internal/config"
	"github.com/rebota-hq/rebota/internal/index"
	"github.com/rebota-hq/rebota/internal/ingest"
)

func main() {
	dirFlag := flag.String("dir", "", "source document directory (overrides SOURCE_DIR)")
	seedFlag := flag.String("seed", "", "comma-separated YAML seed files to ingest alongside the documents")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	dir := cfg.SourceDir
	if *dirFlag != "" {
		dir = *dirFlag
	}

	ctx := context.Background()
	docs, err := ingest.Loader{}.Load(ctx, dir)
	if err != nil {
		slog.Error("loading documents failed", slog.String("dir", dir), slog.Any("error", err))
		os.Exit(1)
	}

	for _, path := range splitSeedPaths(*seedFlag) {
		seedDocs, err := ingest.LoadSeedFile(path)
		if err != nil {
			slog.Warn("skipping seed file", slog.String("path", path), slog.Any("error", err))
			continue
		}
		docs = append(docs, seedDocs...)
	}

	if len(docs) == 0 {
		slog.Error("no documents to index", slog.String("dir", dir))
		os.Exit(1)
	}

	chunker, err := ingest.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		slog.Error("invalid chunking configuration", slog.Any("error", err))
		os.Exit(1)
	}
	chunks := chunker.SplitAll(docs)
	slog.Info("corpus loaded",
		slog.Int("documents", len(docs)),
		slog.Int("chunks", len(chunks)),
		slog.Int("chunk_size", cfg.ChunkSize),
		slog.Int("chunk_overlap", cfg.ChunkOverlap))

	builder := index.Builder{
		Store:       qdrantcli.New(cfg.QdrantURL, cfg.QdrantAPIKey),
		Embed:       ollamacli.New(cfg),
		Collection:  cfg.QdrantCollection,
		DeleteRetry: cfg.RetryPolicy(),
	}
	if _, err := builder.Rebuild(ctx, chunks); err != nil {
		slog.Error("index rebuild failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("index rebuilt", slog.String("collection", cfg.QdrantCollection))
}

func splitSeedPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, filepath.Clean(p))
		}
	}
	return out
}
