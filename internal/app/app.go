// Package app provides the main application struct for centralized dependency
// management and lifecycle control of the article service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"trendpress/config"
	"trendpress/internal/history"
	"trendpress/internal/httpclient"
	"trendpress/internal/ratelimit"
	"trendpress/internal/search"
	"trendpress/internal/server"
	"trendpress/internal/storage"
	"trendpress/internal/trends"
	"trendpress/internal/writer"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config  *config.Config
	logger  *slog.Logger
	store   storage.Storage
	history history.Store
	trends  *trends.Service
	server  *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{
		config: cfg,
		logger: logger,
	}

	trendSvc, err := buildTrendService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize trend service: %w", err)
	}
	app.trends = trendSvc

	// History persistence. Memory needs no backing storage.
	if cfg.History.Storage != "memory" {
		store, err := storage.New(ctx, storage.Config{
			Type: cfg.History.Storage,
			SQLite: storage.SQLiteConfig{
				Path: cfg.History.SQLitePath,
			},
			PostgreSQL: storage.PostgreSQLConfig{
				URL:      cfg.History.PostgresURL,
				MaxConns: cfg.History.MaxConns,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		app.store = store
	}

	hist, err := history.NewStore(app.store, cfg.History.RetentionDays)
	if err != nil {
		closeErr := app.closeStores()
		if closeErr != nil {
			return nil, fmt.Errorf("failed to initialize history: %w (also: close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize history: %w", err)
	}
	app.history = hist

	app.logStartupInfo()

	handler := server.NewHandler(server.HandlerConfig{
		Trends:          trendSvc,
		Writer:          writer.New(cfg.Anthropic.APIKey, cfg.Anthropic.Model),
		Search:          search.NewClient(httpclient.NewFetchHTTPClient(), logger),
		History:         hist,
		Logger:          logger,
		GenerateLimiter: ratelimit.New("generate", cfg.RateLimit.GenerateMax, cfg.RateLimit.Window),
		TrendsLimiter:   ratelimit.New("trends", cfg.RateLimit.TrendsMax, cfg.RateLimit.Window),
	})

	app.server = server.New(handler, &server.Config{
		MasterKey:       cfg.Server.MasterKey,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		BodySizeLimit:   cfg.Server.BodySizeLimit,
	})

	return app, nil
}

// buildTrendService assembles the source chain and cache backend.
func buildTrendService(cfg *config.Config) (*trends.Service, error) {
	client := httpclient.NewFetchHTTPClient()

	var sources []trends.Source
	if cfg.Trends.CSVEnabled {
		sources = append(sources, trends.NewCSVSource(client))
	}
	sources = append(sources, trends.NewRSSSource(client))

	var store trends.Store
	if cfg.Trends.RedisURL != "" {
		redisStore, err := trends.NewRedisStore(trends.RedisConfig{URL: cfg.Trends.RedisURL})
		if err != nil {
			return nil, err
		}
		store = redisStore
	}

	return trends.NewService(trends.Config{
		TTL:           cfg.Trends.TTL,
		MaxLimit:      cfg.Trends.MaxLimit,
		SourceTimeout: cfg.Trends.SourceTimeout,
		Sources:       sources,
		Store:         store,
	})
}

func (a *App) logStartupInfo() {
	if a.config.Server.MasterKey == "" {
		a.logger.Warn("MASTER_KEY not set, API is unauthenticated",
			"recommendation", "set MASTER_KEY to secure this service")
	} else {
		a.logger.Info("authentication enabled", "mode", "master_key")
	}

	if a.config.Anthropic.APIKey == "" {
		a.logger.Warn("ANTHROPIC_API_KEY not set, clients must supply their own key per request")
	}

	a.logger.Info("history storage", "backend", a.config.History.Storage,
		"retention_days", a.config.History.RetentionDays)

	if a.config.Trends.RedisURL != "" {
		a.logger.Info("trend cache backend", "type", "redis")
	} else {
		a.logger.Info("trend cache backend", "type", "memory")
	}
}

// Start runs the HTTP server. It blocks until the server stops.
func (a *App) Start() error {
	addr := ":" + a.config.Server.Port
	a.logger.Info("starting server", "address", addr)

	if err := a.server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and releases all resources.
// Safe to call multiple times.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	defer a.shutdownMu.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}
	if err := a.closeStores(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeStores() error {
	var errs []error
	if a.trends != nil {
		if err := a.trends.Close(); err != nil {
			errs = append(errs, fmt.Errorf("trend cache close: %w", err))
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			errs = append(errs, fmt.Errorf("history close: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Server exposes the HTTP server, used by tests.
func (a *App) Server() *server.Server {
	return a.server
}
