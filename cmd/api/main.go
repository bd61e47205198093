package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-marketplace.git/internal/config"
	"github.com/ariefcatur/go-marketplace.git/internal/engine"
	"github.com/ariefcatur/go-marketplace.git/internal/fanout"
	"github.com/ariefcatur/go-marketplace.git/internal/httpx"
	"github.com/ariefcatur/go-marketplace.git/internal/inventory"
	"github.com/ariefcatur/go-marketplace.git/internal/kafkax"
	"github.com/ariefcatur/go-marketplace.git/internal/ledger"
	"github.com/ariefcatur/go-marketplace.git/internal/postgres"
	"github.com/ariefcatur/go-marketplace.git/internal/redisx"
	"github.com/ariefcatur/go-marketplace.git/internal/ws"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage: Postgres when a DSN is set, in-memory otherwise.
	var (
		inv inventory.Store
		led ledger.Ledger
	)
	if cfg.PostgresDSN != "" {
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, int32(cfg.PGMaxConns))
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		inv = &inventory.PGStore{DB: db}
		led = &ledger.PGLedger{DB: db}
	} else {
		logger.Warn("POSTGRES_DSN not set, using in-memory stores")
		inv = inventory.NewMemoryStore()
		led = ledger.NewMemoryLedger()
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	bus := fanout.NewBus(logger)
	defer bus.Close()

	eng := engine.New(inv, led, bus, logger, cfg.ServiceName)

	// Kafka event bridge (optional)
	var prod *kafkax.Producer
	g, gctx := errgroup.WithContext(ctx)
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, cfg.EventsTopic, 1024, logger)
		prod.Start(gctx)
		bridge := kafkax.NewBridge(prod, bus, logger)
		g.Go(func() error { return bridge.Run(gctx) })
	}

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{Engine: eng, Redis: rdb, Log: logger}
	oh.Register(router)
	router.Get("/ws", ws.Handler(bus, logger))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	g.Go(func() error {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		logger.Info("shutting down...")
	case <-gctx.Done():
	}

	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(shutdownCtx)

	// The bridge must stop before the producer inbox closes; requests the
	// server drained above may still have events in flight on the tap.
	cancel()
	if err := g.Wait(); err != nil {
		logger.Error("exit", zap.Error(err))
	}
	if prod != nil {
		prod.Close() // close inbox -> flush & close writer
		prod.WaitClosed()
	}
}
