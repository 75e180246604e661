// Package main 版税落库消费者入口（royalty-worker）
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"citementor-api/internal/application/royalty"
	"citementor-api/internal/config"
	"citementor-api/internal/domain/entity"
	"citementor-api/internal/domain/repository"
	"citementor-api/internal/infrastructure/messaging"
	"citementor-api/internal/infrastructure/persistence/postgres"
	"citementor-api/internal/infrastructure/persistence/redis"
	"citementor-api/pkg/logger"
	"citementor-api/pkg/tracer"
)

const (
	dlqAlertThreshold     = 100
	royaltyReportInterval = 10 * time.Minute
)

func main() {
	configPath := flag.String("config", "configs", "配置文件目录")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "royalty-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal(ctx, "failed to init postgres", err)
	}
	defer func() { _ = pgClient.Close() }()

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to init redis", err)
	}
	defer func() { _ = redisClient.Close() }()

	var royaltyRepo repository.RoyaltyEventRepository = postgres.NewRoyaltyEventRepository(pgClient)
	var txManager repository.Transactor = postgres.NewTxManager(pgClient)

	consumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamRoyalty,
		Group:         messaging.ConsumerGroupRoyaltyWriter,
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  cfg.Messaging.RedisStream.BlockTimeout,
		ClaimInterval: cfg.Messaging.RedisStream.ClaimInterval,
		RetryLimit:    cfg.Messaging.RedisStream.RetryLimit,
		Backoff:       messaging.DefaultBackoffConfig(),
	}, settleHandler(royaltyRepo, txManager))

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}
	go consumer.MonitorDLQ(ctx, dlqAlertThreshold)
	go royalty.NewReporter(royaltyRepo, 24*time.Hour).Run(ctx, royaltyReportInterval)

	log := logger.FromContext(ctx)
	log.Info("royalty-worker started",
		"stream", string(messaging.StreamRoyalty),
		"group", string(messaging.ConsumerGroupRoyaltyWriter),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("royalty-worker shutting down")
	consumer.Stop()
}

// settleHandler 将版税事件批量落库；一条消息的全部条目在同一事务中写入
func settleHandler(repo repository.RoyaltyEventRepository, txm repository.Transactor) messaging.Handler {
	return func(ctx context.Context, msg *messaging.Message) error {
		if msg.Type != "royalty_settle" {
			logger.Warn(ctx, "忽略未知消息类型", "type", msg.Type, "message_id", msg.ID)
			return nil
		}

		var payload messaging.RoyaltyEventsMessage
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return err
		}

		events := make([]*entity.RoyaltyEvent, 0, len(payload.Items))
		for _, item := range payload.Items {
			events = append(events, &entity.RoyaltyEvent{
				QueryID:    payload.QueryID,
				Genre:      payload.Genre,
				PassageID:  item.PassageID,
				BookTitle:  item.BookTitle,
				Author:     item.Author,
				Rank:       item.Rank,
				Tokens:     item.Tokens,
				CostMicros: item.CostMicros,
			})
		}

		if err := txm.WithTransaction(ctx, func(txCtx context.Context) error {
			return repo.CreateBatch(txCtx, events)
		}); err != nil {
			return err
		}

		logger.Info(ctx, "版税事件落库",
			"query_id", payload.QueryID,
			"items", len(events),
			"total_micros", payload.TotalMicros,
		)
		return nil
	}
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
