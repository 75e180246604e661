// Package main 离线语料索引任务入口
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"citementor-api/internal/application/retrieval"
	"citementor-api/internal/config"
	"citementor-api/internal/infrastructure/corpus"
	"citementor-api/internal/wire"
	"citementor-api/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs", "配置文件目录")
	genreFlag := flag.String("genre", "", "只索引指定书架，默认全部")
	timeout := flag.Duration("timeout", 30*time.Minute, "整体超时")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	dl, cleanup, err := wire.InitializeDataLayer(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize data layer", err)
	}
	defer cleanup()

	loader := corpus.NewLoader(cfg.Corpus.Dir, cfg.Corpus.MaxPassageRunes)
	store := corpus.NewStore(loader)
	if err := store.Reload(ctx); err != nil {
		logger.Fatal(ctx, "failed to load corpus", err)
	}

	indexer := retrieval.NewIndexer(dl.Embedder, dl.VectorRepo, cfg.Embedding.BatchSize)
	if !indexer.Enabled() {
		logger.Fatal(ctx, "indexer not configured", fmt.Errorf("embedder or vector repo missing"))
	}

	started := time.Now()
	indexed := 0
	for _, shelf := range store.Shelves() {
		if *genreFlag != "" && shelf.Genre.String() != *genreFlag {
			continue
		}

		books, err := store.Books(shelf.Genre)
		if err != nil {
			logger.Fatal(ctx, "failed to read shelf", err, "genre", shelf.Genre.String())
		}

		if err := indexer.IndexGenre(ctx, shelf.Genre, books); err != nil {
			logger.Fatal(ctx, "failed to index shelf", err, "genre", shelf.Genre.String())
		}

		indexed++
		logger.Info(ctx, "书架索引完成",
			"genre", shelf.Genre.String(),
			"books", shelf.BookCount,
			"passages", shelf.PassageCount,
		)
	}

	if indexed == 0 {
		logger.Fatal(ctx, "no shelf matched", fmt.Errorf("genre %q not found", *genreFlag))
	}

	logger.Info(ctx, "语料索引完成",
		"shelves", indexed,
		"elapsed", time.Since(started).String(),
	)
}
