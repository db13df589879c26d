package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/intake/internal/branch"
	"github.com/JonMunkholm/intake/internal/config"
	"github.com/JonMunkholm/intake/internal/core"
	"github.com/JonMunkholm/intake/internal/generator"
	"github.com/JonMunkholm/intake/internal/logging"
	"github.com/JonMunkholm/intake/internal/store"
	"github.com/JonMunkholm/intake/internal/web"
)

// purger is implemented by backends that can drop old session keys.
type purger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
		"generator", cfg.Generator.BaseURL,
		"commit_max_concurrent", cfg.Generator.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	if err := run(cfg, logger); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancelOpen := context.WithTimeout(ctx, 15*time.Second)
	backend, err := store.Open(openCtx, store.Options{
		Kind:            store.Kind(cfg.Store.Backend),
		RedisAddr:       cfg.Redis.Addr,
		RedisPassword:   cfg.Redis.Password,
		RedisDB:         cfg.Redis.DB,
		KeyPrefix:       cfg.Redis.KeyPrefix,
		TTL:             cfg.Redis.TTL,
		DatabaseURL:     cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	cancelOpen()
	if err != nil {
		return err
	}
	defer backend.Close()
	slog.Info("draft store ready", "backend", backend.Name())

	catalog, err := branch.Load(cfg.Branch.File)
	if err != nil {
		return err
	}
	slog.Info("branches loaded", "file", cfg.Branch.File, "count", len(catalog.IDs()))

	client, err := generator.New(generator.Config{
		BaseURL:       cfg.Generator.BaseURL,
		Timeout:       cfg.Generator.Timeout,
		AuxTimeout:    cfg.Generator.AuxTimeout,
		MaxIterations: cfg.Generator.MaxIterations,
	}, nil, logger)
	if err != nil {
		return err
	}

	limiter := core.NewCommitLimiter(cfg.Generator.MaxConcurrent, cfg.Generator.MaxWait)
	service := core.NewService(backend, catalog, client, limiter, core.ServiceConfig{
		AutosaveInterval: cfg.Draft.AutosaveInterval,
		DraftMaxAge:      cfg.Draft.MaxAge,
		CommitTimeout:    cfg.Generator.Timeout,
		IdleTimeout:      cfg.Session.IdleTimeout,
	})

	server := web.NewServer(service, client, backend, cfg)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		service.StartReaper(gctx, cfg.Session.SweepInterval)
		return nil
	})
	g.Go(func() error {
		server.RunLimiters(gctx)
		return nil
	})
	if p, ok := backend.(purger); ok && cfg.Store.PurgeAfter > 0 {
		g.Go(func() error {
			runPurge(gctx, p, cfg.Store.PurgeAfter, cfg.Store.PurgeInterval)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown error", "error", err)
		}

		status := limiter.Status()
		if status.Active > 0 {
			slog.Info("waiting for commits to complete", "active", status.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("commits did not complete in time", "error", err)
			}
		}

		if err := service.Close(shutdownCtx); err != nil {
			slog.Warn("service close", "error", err)
		}
		return nil
	})

	err = g.Wait()
	slog.Info("server stopped")
	return err
}

// runPurge drops session keys older than maxAge every interval.
func runPurge(ctx context.Context, p purger, maxAge, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeOlderThan(ctx, time.Now().Add(-maxAge))
			if err != nil {
				slog.Warn("store purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged stale session keys", "count", n)
			}
		}
	}
}
