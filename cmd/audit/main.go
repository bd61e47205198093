package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-marketplace.git/internal/audit"
	"github.com/ariefcatur/go-marketplace.git/internal/config"
	"github.com/ariefcatur/go-marketplace.git/internal/kafkax"
	"github.com/ariefcatur/go-marketplace.git/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if len(cfg.KafkaBrokers) == 0 {
		logger.Fatal("KAFKA_BROKERS required for the audit consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &audit.Service{
		Redis:       rdb,
		Log:         logger,
		ServiceName: cfg.ServiceName + "-audit",
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.AuditGroup, cfg.EventsTopic, cfg.AuditWorkers, logger)

	go func() {
		logger.Info("audit consumer started",
			zap.String("group", cfg.AuditGroup),
			zap.String("topic", cfg.EventsTopic),
			zap.Int("workers", cfg.AuditWorkers))
		if err := cons.Start(ctx, svc.HandleEvent); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		logger.Info("shutting down consumer...")
	case <-ctx.Done():
	}
	cancel()
	time.Sleep(500 * time.Millisecond)
}
