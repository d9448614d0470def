package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	_ "modernc.org/sqlite"

	"github.com/KonoNeko/MeowBuling/internal/adapters/catalog"
	"github.com/KonoNeko/MeowBuling/internal/adapters/decks"
	"github.com/KonoNeko/MeowBuling/internal/adapters/history"
	httpadapter "github.com/KonoNeko/MeowBuling/internal/adapters/http"
	"github.com/KonoNeko/MeowBuling/internal/adapters/llm/openrouter"
	"github.com/KonoNeko/MeowBuling/internal/app"
	"github.com/KonoNeko/MeowBuling/internal/config"
	"github.com/KonoNeko/MeowBuling/internal/metrics"
	"github.com/KonoNeko/MeowBuling/internal/ports"
)

// stdRNG delegates to math/rand/v2 (auto-seeded).
type stdRNG struct{}

func (stdRNG) Intn(n int) int   { return rand.IntN(n) }
func (stdRNG) Float64() float64 { return rand.Float64() }

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	spreads, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}

	store, closer, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Error("close history store", "error", err)
		}
	}()

	var interpreter ports.Interpreter
	if cfg.LLMProvider == config.ProviderOpenRouter {
		interpreter = openrouter.NewClient(
			&http.Client{Timeout: cfg.LLMTimeout},
			cfg.OpenRouterAPIKey,
			cfg.OpenRouterBaseURL,
			cfg.LLMModel,
			cfg.LLMFallbackModels,
			logger,
		)
	} else {
		logger.Warn("no LLM provider configured, readings are journaled without interpretation")
	}

	m := metrics.NewCollector()
	svc := app.NewTarotService(app.Deps{
		Cards:       decks.NewEmbeddedStore(),
		Catalog:     spreads,
		Interpreter: interpreter,
		Store:       store,
		RNG:         stdRNG{},
		Metrics:     m,
		Logger:      logger,
	}, app.Options{
		ReversedProbability: cfg.ReversedProbability,
		InterpretTimeout:    cfg.InterpretTimeout,
		DrawTTL:             cfg.DrawTTL,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(httpadapter.RequestIDMiddleware())
	e.Use(httpadapter.LoggingMiddleware(logger))
	e.Use(httpadapter.MetricsMiddleware(m))
	if cfg.RateLimitRPS > 0 {
		limiter := httpadapter.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		defer limiter.Close()
		e.Use(limiter.Middleware())
	}

	httpadapter.NewHandler(svc, m).Register(e)

	// Graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"addr", cfg.HTTPAddr,
			"llm_provider", cfg.LLMProvider,
			"history_backend", cfg.HistoryBackend,
		)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	// The server is down, so no new draw can complete while pending
	// interpretations drain.
	if err := svc.Close(shutdownCtx); err != nil {
		logger.Error("pending readings abandoned", "error", err)
	}
	return nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Embedded()
	}
	c, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return c, nil
}

func openStore(cfg config.Config) (ports.SessionStore, io.Closer, error) {
	switch cfg.HistoryBackend {
	case config.HistorySQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		db.SetMaxOpenConns(1)
		store, err := history.NewSQLiteStore(db, cfg.HistoryLimit)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, db, nil

	case config.HistoryRedis:
		store := history.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.HistoryLimit)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
		return store, store, nil

	default:
		return history.NewMemoryStore(cfg.HistoryLimit), io.NopCloser(nil), nil
	}
}
