package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/pagecraft/render-engine/internal/app"
	"github.com/pagecraft/render-engine/internal/app/cache"
	"github.com/pagecraft/render-engine/internal/app/httpapi"
	"github.com/pagecraft/render-engine/internal/app/storage/postgres"
	"github.com/pagecraft/render-engine/internal/app/system"
	"github.com/pagecraft/render-engine/internal/config"
	"github.com/pagecraft/render-engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.NewDefault("server").WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}
	log := logger.New("server", cfg.LogLevel)

	stores, cleanup, err := buildStores(cfg, log)
	if err != nil {
		log.WithError(err).Error("failed to initialize storage")
		os.Exit(1)
	}
	defer cleanup()

	backend, manager := buildCache(cfg, log)

	application := app.New(app.Options{
		Stores:   stores,
		Cache:    backend,
		CacheTTL: cfg.Cache.TTL,
		Logger:   log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := manager.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start background services")
		os.Exit(1)
	}

	handler := httpapi.New(application, cfg.RateLimit, log.WithField("component", "httpapi"))
	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("listen", cfg.Listen).Info("render engine listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown incomplete")
	}
	if err := manager.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("background services shutdown incomplete")
	}
	log.Info("render engine stopped")
}

// buildStores connects PostgreSQL when a DSN is configured; otherwise every
// store falls back to the shared in-memory implementation inside app.New.
func buildStores(cfg config.Config, log *logger.Logger) (app.Stores, func(), error) {
	if cfg.Database.DSN == "" {
		log.Warn("no database configured, using in-memory storage")
		return app.Stores{}, func() {}, nil
	}

	db, err := postgres.Open(cfg.Database.DSN)
	if err != nil {
		return app.Stores{}, nil, err
	}
	if cfg.Database.Migrate {
		if err := postgres.Migrate(db); err != nil {
			db.Close()
			return app.Stores{}, nil, err
		}
		log.Info("database migrations applied")
	}

	store := postgres.New(db)
	return app.Stores{
		Tenants:    store,
		Catalog:    store,
		Components: store,
		Content:    store,
	}, func() { db.Close() }, nil
}

// buildCache selects Redis when configured, otherwise an in-process cache
// with a janitor sweeping expired entries.
func buildCache(cfg config.Config, log *logger.Logger) (cache.Cache, *system.Manager) {
	manager := system.NewManager()

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		log.WithField("addr", cfg.Redis.Addr).Info("using redis cache")
		return cache.NewRedis(client), manager
	}

	mem := cache.NewMemory()
	janitor := cache.NewJanitor(mem, cfg.Cache.JanitorSchedule, log.WithField("component", "cache-janitor"))
	if err := manager.Register(janitor); err != nil {
		log.WithError(err).Warn("failed to register cache janitor")
	}
	return mem, manager
}
