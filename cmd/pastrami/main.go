package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"pastrami/internal/config"
	"pastrami/internal/httpserver"
	"pastrami/internal/id"
	"pastrami/internal/storage"
	"pastrami/internal/storage/memstore"
	"pastrami/internal/storage/pgstore"
	"pastrami/internal/sweeper"
	"pastrami/internal/textstore"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML configuration file")
		addr       = flag.String("addr", "", "listen address (overrides config)")
		db         = flag.String("db", "", "backend selector (overrides config)")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed loading configuration", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *db != "" {
		cfg.DB = *db
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed opening backend store", "error", err, "db", cfg.DB)
		os.Exit(1)
	}
	defer store.Close()

	texts, err := textstore.New(textstore.Config{
		Store:     store,
		IDGen:     id.New(0),
		MaxLength: cfg.MaxLength,
		DaySpan:   cfg.DaySpan,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to construct text store", "error", err)
		os.Exit(1)
	}

	sweeper.Start(ctx, store, texts.Horizon(), cfg.SweepInterval, logger)

	limiter := httpserver.NewRateLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst, 15*time.Minute)
	srv, err := httpserver.New(httpserver.Config{
		Texts:       texts,
		RateLimiter: limiter,
		TrustProxy:  cfg.BehindProxy,
		BaseURL:     cfg.BaseURL,
		AuthKey:     cfg.AuthKey,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to construct server", "error", err)
		os.Exit(1)
	}

	srvHTTP := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "dayspan", cfg.DaySpan, "maxlength", cfg.MaxLength)
		if err := srvHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	case err := <-errCh:
		logger.Error("http server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

// openStore selects the backend from the db option: in-process map,
// PostgreSQL, or a local database file.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch {
	case cfg.MemoryDB():
		return memstore.New(), nil
	case cfg.PostgresDB():
		return pgstore.Open(ctx, cfg.DB)
	default:
		return openFileStore(cfg.DB)
	}
}
