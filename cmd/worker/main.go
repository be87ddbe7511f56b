// Package main is the entry point for the geodeck background worker.
// It relays committed ledger events from the transactional outbox to the
// viewer notification layer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"geodeck/internal/infrastructure/storage/postgres"
	"geodeck/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting geodeck worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	relay := postgres.NewOutboxRelay(pool.Unwrap(), 100, &logHandler{log: log.WithComponent("relay")})
	worker := NewRelayWorker(relay, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// RelayWorker polls the outbox and periodically purges delivered messages.
type RelayWorker struct {
	relay *postgres.OutboxRelay
	log   *logger.Logger
}

func NewRelayWorker(relay *postgres.OutboxRelay, log *logger.Logger) *RelayWorker {
	return &RelayWorker{
		relay: relay,
		log:   log.WithComponent("worker"),
	}
}

// Run polls until the context is cancelled.
func (w *RelayWorker) Run(ctx context.Context) {
	pollInterval := getEnvDuration("OUTBOX_POLL_INTERVAL", 500*time.Millisecond)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	purgeTicker := time.NewTicker(1 * time.Hour)
	defer purgeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			processed, err := w.relay.ProcessBatch(ctx)
			if err != nil {
				w.log.Errorw("outbox batch failed", "error", err)
				continue
			}
			if processed > 0 {
				w.log.Debugw("processed outbox batch", "count", processed)
			}

		case <-purgeTicker.C:
			purged, err := w.relay.PurgePublished(ctx, 24*time.Hour)
			if err != nil {
				w.log.Errorw("outbox purge failed", "error", err)
				continue
			}
			if purged > 0 {
				w.log.Infow("purged delivered outbox messages", "count", purged)
			}
		}
	}
}

// logHandler delivers events by logging them. Stand-in delivery target
// until the websocket fan-out service consumes the outbox directly.
type logHandler struct {
	log *logger.Logger
}

func (h *logHandler) Handle(_ context.Context, msg *postgres.OutboxMessage) error {
	h.log.Infow("ledger event",
		"event_type", msg.EventType,
		"project_id", msg.ProjectID,
		"location_id", msg.LocationID,
		"payload", string(msg.Payload),
	)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
