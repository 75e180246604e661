// Package wire 提供依赖的手工装配
package wire

import (
	"context"
	"fmt"

	einoembedding "github.com/cloudwego/eino/components/embedding"

	"citementor-api/internal/application/answer"
	"citementor-api/internal/application/retrieval"
	"citementor-api/internal/application/routing"
	"citementor-api/internal/application/royalty"
	"citementor-api/internal/config"
	"citementor-api/internal/domain/entity"
	"citementor-api/internal/infrastructure/corpus"
	infraembedding "citementor-api/internal/infrastructure/embedding"
	"citementor-api/internal/infrastructure/llm"
	"citementor-api/internal/infrastructure/messaging"
	"citementor-api/internal/infrastructure/persistence/memory"
	"citementor-api/internal/infrastructure/persistence/milvus"
	"citementor-api/internal/infrastructure/persistence/redis"
	"citementor-api/internal/interfaces/http/handler"
	"citementor-api/internal/interfaces/http/middleware"
	"citementor-api/internal/interfaces/http/router"
	"citementor-api/pkg/logger"
)

// App 应用依赖容器
type App struct {
	Config      *config.Config
	Router      *router.Router
	CorpusStore *corpus.Store

	RedisClient  *redis.Client
	MilvusClient *milvus.Client
}

// DataLayer 检索与缓存相关的数据层依赖
type DataLayer struct {
	RedisClient *redis.Client
	Cache       *redis.Cache
	RateLimiter *redis.RateLimiter

	MilvusClient *milvus.Client
	VectorRepo   retrieval.VectorRepository

	Embedder einoembedding.Embedder
}

// InitializeDataLayer 初始化数据层。
// Redis 未配置 host 时关闭缓存与限流；vector.backend 决定向量库实现。
func InitializeDataLayer(ctx context.Context, cfg *config.Config) (*DataLayer, func(), error) {
	dl := &DataLayer{}
	cleanup := func() {
		if dl.MilvusClient != nil {
			_ = dl.MilvusClient.Close()
		}
		if dl.RedisClient != nil {
			_ = dl.RedisClient.Close()
		}
	}

	// Redis（可选）
	if cfg.Cache.Redis.Host != "" {
		redisClient, err := redis.NewClient(&cfg.Cache.Redis)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("init redis: %w", err)
		}
		dl.RedisClient = redisClient
		dl.Cache = redis.NewCache(redisClient)
		dl.RateLimiter = redis.NewRateLimiter(redisClient)
	}

	// Embedding 客户端；启用 Redis 时包一层缓存
	embedder, err := infraembedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init embedder: %w", err)
	}
	if dl.Cache != nil {
		embedder = infraembedding.NewCachedEmbedder(embedder, dl.Cache)
	}
	dl.Embedder = embedder

	// 向量库
	switch cfg.Vector.Backend {
	case "milvus":
		milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("init milvus: %w", err)
		}
		dl.MilvusClient = milvusClient
		repo := milvus.NewRepository(milvusClient, cfg.Embedding.Dimension)
		dl.VectorRepo = milvus.NewRetrievalVectorRepository(repo)
	case "memory", "":
		dl.VectorRepo = memory.NewStore()
	default:
		cleanup()
		return nil, nil, fmt.Errorf("unknown vector backend: %s", cfg.Vector.Backend)
	}

	return dl, cleanup, nil
}

// InitializeApp 装配整个应用
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	dl, cleanup, err := InitializeDataLayer(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// 语料快照；启动即加载，失败视为致命错误
	loader := corpus.NewLoader(cfg.Corpus.Dir, cfg.Corpus.MaxPassageRunes)
	store := corpus.NewStore(loader)
	if err := store.Reload(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("load corpus: %w", err)
	}

	// 路由器；画像向量预热失败只降级为词表路由
	defaultGenre, _ := entity.ParseGenre(cfg.Corpus.DefaultGenre)
	genreRouter := routing.NewRouter(dl.Embedder, defaultGenre)
	if err := genreRouter.Warmup(ctx); err != nil {
		logger.Warn(ctx, "路由画像预热失败，仅使用词表路由", "error", err.Error())
	}

	// 检索与索引
	retriever := retrieval.NewRetriever(dl.Embedder, dl.VectorRepo, cfg.Retrieval.MinScore)
	indexer := retrieval.NewIndexer(dl.Embedder, dl.VectorRepo, cfg.Embedding.BatchSize)

	// 内存向量库没有离线索引任务，启动时就地建索引
	if dl.MilvusClient == nil && indexer.Enabled() {
		if err := indexCorpus(ctx, store, indexer); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("index corpus: %w", err)
		}
	}

	// 计费
	calculator := royalty.NewCalculator(
		cfg.Royalty.RatePerTokenMicros,
		cfg.Royalty.RankDecay,
		cfg.Royalty.RankFloor,
	)

	// 生成
	factory := llm.NewEinoFactory(cfg)
	providerCfg := cfg.LLM.Providers[cfg.LLM.DefaultProvider]
	synthesizer := answer.NewLLMSynthesizer(factory, cfg.LLM.DefaultProvider, providerCfg.Timeout)

	// 问答引擎
	opts := []answer.EngineOption{}
	if dl.Cache != nil {
		opts = append(opts, answer.WithRouteCache(dl.Cache))
	}
	if dl.RedisClient != nil {
		producer := messaging.NewProducer(dl.RedisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
		opts = append(opts, answer.WithRoyaltyPublisher(messaging.NewRoyaltyPublisherAdapter(producer)))
	}
	engine := answer.NewEngine(genreRouter, retriever, calculator, synthesizer, cfg.Retrieval.TopK, opts...)

	// HTTP 层
	handlers := router.Handlers{
		Health: handler.NewHealthHandler(dl.RedisClient, dl.MilvusClient, store),
		Query:  handler.NewQueryHandler(engine),
		Corpus: handler.NewCorpusHandler(store, indexer, cacheOrNil(dl.Cache)),
	}

	app := &App{
		Config:       cfg,
		Router:       router.New(cfg, handlers, limiterOrNil(dl.RateLimiter)),
		CorpusStore:  store,
		RedisClient:  dl.RedisClient,
		MilvusClient: dl.MilvusClient,
	}
	return app, cleanup, nil
}

// indexCorpus 将全部书架写入向量库
func indexCorpus(ctx context.Context, store *corpus.Store, indexer *retrieval.Indexer) error {
	for _, shelf := range store.Shelves() {
		books, err := store.Books(shelf.Genre)
		if err != nil {
			return err
		}
		if err := indexer.IndexGenre(ctx, shelf.Genre, books); err != nil {
			return err
		}
	}
	return nil
}

// cacheOrNil 避免把 nil *redis.Cache 装进非空接口
func cacheOrNil(c *redis.Cache) handler.CacheInvalidator {
	if c == nil {
		return nil
	}
	return c
}

// limiterOrNil 同上，针对限流器接口
func limiterOrNil(l *redis.RateLimiter) middleware.RateLimiter {
	if l == nil {
		return nil
	}
	return l
}
