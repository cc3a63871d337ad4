package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/getreach/internal/a2a"
	"github.com/BerylCAtieno/getreach/internal/api"
	"github.com/BerylCAtieno/getreach/internal/checkout"
	"github.com/BerylCAtieno/getreach/internal/config"
	"github.com/BerylCAtieno/getreach/internal/logging"
	"github.com/BerylCAtieno/getreach/internal/metrics"
	"github.com/BerylCAtieno/getreach/internal/profiler"
	"github.com/BerylCAtieno/getreach/internal/relay"
	"github.com/BerylCAtieno/getreach/internal/research"
	"github.com/BerylCAtieno/getreach/internal/store"
	"github.com/BerylCAtieno/getreach/internal/tips"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("getreach: %v", err)
	}
}

func run() error {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()

	gin.SetMode(cfg.Gin.Mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Generation ──────────────────────────────────────────────────────────
	var search research.Searcher
	if cfg.Tavily.APIKey != "" {
		search = research.NewTavilyClient(cfg.Tavily.APIKey, "")
	} else {
		logger.Info("TAVILY_API_KEY not set, reports will use the product page only")
	}
	researcher := research.NewResearcher(research.ReadabilityReader{Timeout: 10 * time.Second}, search, logger.Named("research"))

	var gen relay.Generator
	if cfg.Gemini.APIKey != "" {
		gc, err := profiler.NewGeminiClient(ctx, profiler.Config{
			APIKey:      cfg.Gemini.APIKey,
			Model:       cfg.Gemini.Model,
			Temperature: float32(cfg.Gemini.Temperature),
		}, researcher, logger.Named("profiler"))
		if err != nil {
			return fmt.Errorf("gemini client: %w", err)
		}
		defer gc.Close()
		gen = gc
	} else {
		logger.Warn("GEMINI_API_KEY not set, analyze requests will fail until it is configured")
	}
	rel := relay.New(gen, cfg.Upstream.Timeout, logger.Named("relay"))

	// ── Storage ─────────────────────────────────────────────────────────────
	var reports store.Reports = store.NewMemory()
	if cfg.Database.URL != "" {
		pool, err := store.NewPostgresPool(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		pg := store.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
		reports = pg
		logger.Info("postgres connected")
	} else {
		logger.Info("DATABASE_URL not set, reports are kept in memory")
	}

	var (
		hub      store.Hub  = store.NewMemoryHub()
		tipStore tips.Store = tips.NewMemoryStore()
	)
	if cfg.Redis.URL != "" {
		rdb, err := store.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		hub = store.NewRedisHub(rdb, logger.Named("hub"))
		tipStore = tips.NewRedisStore(rdb)
		logger.Info("redis connected")
	}

	// ── HTTP ────────────────────────────────────────────────────────────────
	var limiter *api.RateLimiter
	if cfg.RateLimit.RPM > 0 {
		limiter = api.NewRateLimiter(cfg.RateLimit.RPM, cfg.RateLimit.Burst, logger.Named("ratelimit"))
		if err := limiter.Start(); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		defer limiter.Stop()
	}

	router := api.NewRouter(api.Deps{
		Relay:            rel,
		Reports:          reports,
		Hub:              hub,
		Tips:             tipStore,
		Checkout:         checkout.NewClient(cfg.Payments.APIKey, cfg.Payments.BaseURL, cfg.Payments.ReturnURL),
		Agent:            a2a.NewHandler(rel, logger.Named("a2a")),
		Limiter:          limiter,
		Metrics:          metrics.New(),
		Logger:           logger,
		WebhookSecret:    cfg.Payments.WebhookSecret,
		DefaultProductID: cfg.Payments.ProductID,
	})

	// No write timeout: analyze streams and live report views stay open.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("getreach listening",
			zap.String("addr", srv.Addr),
			zap.String("model", cfg.Gemini.Model),
			zap.Duration("upstream_timeout", cfg.Upstream.Timeout))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown did not complete cleanly", zap.Error(err))
	}
	logger.Info("stopped")
	return nil
}
