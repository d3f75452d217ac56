package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ariefcatur/bagstore/internal/config"
	kafkax "github.com/ariefcatur/bagstore/internal/kafka"
	"github.com/ariefcatur/bagstore/internal/notify"
	"github.com/ariefcatur/bagstore/internal/observability"
	"github.com/ariefcatur/bagstore/internal/orders"
	"github.com/ariefcatur/bagstore/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	name := cfg.ServiceName + "-notifier"
	otelShutdown, err := observability.Setup(ctx, observability.Options{
		ServiceName: name,
		Endpoint:    cfg.OtelEndpoint,
		AuthHeader:  cfg.OtelAuthHeader,
	})
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	logger, err := observability.NewLogger(name, cfg.LogLevel, cfg.OtelEndpoint != "")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		logger.Fatal("redis", zap.Error(err))
	}

	svc := &notify.Service{
		Alerts: &redisx.AlertFeed{Redis: rdb, Size: cfg.AlertFeedSize},
		Dedup:  &redisx.Deduper{Redis: rdb, Service: name},
		Log:    logger.Named("notify"),
	}

	subs := []struct {
		topic   string
		handler kafkax.Handler
	}{
		{orders.TopicOrderPlaced, svc.HandleOrderPlaced},
		{orders.TopicStockAdjusted, svc.HandleStockAdjusted},
	}

	var wg sync.WaitGroup
	for _, s := range subs {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, s.topic, cfg.NotifierWorkers, logger)
		wg.Add(1)
		go func(topic string, h kafkax.Handler) {
			defer wg.Done()
			logger.Info("consumer started",
				zap.String("group", cfg.NotifierGroup),
				zap.String("topic", topic),
				zap.Int("workers", cfg.NotifierWorkers))
			if err := cons.Start(ctx, h); err != nil {
				logger.Error("consumer exit", zap.String("topic", topic), zap.Error(err))
				cancel()
			}
		}(s.topic, s.handler)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down consumers")
	cancel()
	wg.Wait()
	if err := otelShutdown(context.Background()); err != nil {
		logger.Warn("otel shutdown", zap.Error(err))
	}
}
