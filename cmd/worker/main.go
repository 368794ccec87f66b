package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/claimpipe/claimpipe/internal/claims"
	"github.com/claimpipe/claimpipe/internal/config"
	"github.com/claimpipe/claimpipe/internal/queue"
	"github.com/claimpipe/claimpipe/internal/store"
	"github.com/claimpipe/claimpipe/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := newLogger(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	q, err := queue.NewRedis(ctx, cfg.Queue.URL, cfg.Queue.Key)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer q.Close()
	logger.Info().Str("key", cfg.Queue.Key).Msg("connected to Redis")

	pg, err := store.NewPostgres(ctx, cfg.Store.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pg.Close()
	logger.Info().Msg("connected to PostgreSQL")

	if err := pg.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("schema setup failed")
	}

	matcher, err := claims.NewMatcher(cfg.ExtractionRules()...)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid extraction rules")
	}

	mem := claims.NewMemory()
	w := worker.New(q, pg, claims.NewExtractor(matcher), mem, logger)

	// Rebuild the commitment cache from the persisted claim log, so
	// contradictions survive a restart.
	entries, err := pg.LastCommitments(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("could not warm commitment memory")
	} else {
		w.Warm(entries)
	}

	go serveMetrics(cfg.Worker.MetricsPort, logger)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker stopped")
	}

	logger.Info().Msg("worker stopped")
}

func serveMetrics(port string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info().Str("port", port).Msg("serving worker metrics")
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Error().Err(err).Msg("metrics listener failed")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	}
	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger()
}
