package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/tlnguyen/price-radar/internal/api"
	"github.com/tlnguyen/price-radar/internal/cache"
	"github.com/tlnguyen/price-radar/internal/catalog"
	"github.com/tlnguyen/price-radar/internal/config"
	"github.com/tlnguyen/price-radar/internal/database"
	"github.com/tlnguyen/price-radar/internal/events"
	"github.com/tlnguyen/price-radar/internal/fetch"
	"github.com/tlnguyen/price-radar/internal/refresher"
	"github.com/tlnguyen/price-radar/internal/scraper"
	"github.com/tlnguyen/price-radar/internal/strategy"
	"github.com/tlnguyen/price-radar/internal/urls"
)

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func main() {
	// Setup logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger = newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database connection
	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis client, shared by the cache backend and the outbox relay
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	// Price cache over the configured key-value backend
	var storage cache.Storage
	switch cfg.Cache.Backend {
	case "file":
		fileStorage, err := cache.NewFileStorage(cfg.Cache.FilePath)
		if err != nil {
			logger.Error("failed to open cache file", "path", cfg.Cache.FilePath, "error", err)
			os.Exit(1)
		}
		storage = fileStorage
	default:
		storage = cache.NewRedisStorage(redisClient)
	}
	priceCache := cache.NewPriceCache(storage, cfg.Cache.KeyPrefix, logger)

	// Extraction strategies; the generic catch-all must come last
	fetcher := fetch.NewHTTPFetcher(fetch.Options{
		UserAgent:    cfg.Scraper.UserAgent,
		Timeout:      cfg.Scraper.FetchTimeout,
		DebugDumpDir: cfg.Scraper.DebugDumpDir,
	}, logger)

	registry := strategy.NewRegistry(logger)
	registry.Register(strategy.NewLazadaStrategy(fetcher, logger))
	registry.Register(strategy.NewShopeeStrategy(fetcher, logger))
	registry.Register(strategy.NewTikiStrategy(fetcher, logger))
	registry.Register(strategy.NewGenericStrategy(fetcher, logger))

	// Repositories and event publishing
	urlRepo := urls.NewPostgresRepository(db, logger)
	catalogRepo := catalog.NewPostgresRepository(db)
	publisher := events.NewPublisher(db, logger)

	// Outbox relay drains price events to the Redis stream
	relay := database.NewRelay(db, redisClient, logger, database.RelayConfig{
		PollInterval: cfg.Relay.PollInterval,
		BatchSize:    cfg.Relay.BatchSize,
	})
	go func() {
		if err := relay.Start(ctx); err != nil && err != context.Canceled {
			logger.Error("relay stopped with error", "error", err)
		}
	}()

	// Orchestrator and background refresher
	scraperService := scraper.NewService(registry, urlRepo, priceCache, publisher, logger, scraper.Options{
		FetchTimeout: cfg.Scraper.FetchTimeout,
	})

	refresherService := refresher.New(scraperService, catalogRepo, urlRepo, refresher.Config{
		ScanInterval: cfg.Refresher.ScanInterval,
		MinDelay:     cfg.Refresher.MinDelay,
		MaxDelay:     cfg.Refresher.MaxDelay,
	}, logger)
	if cfg.Refresher.Enabled {
		go refresherService.Start(ctx)
	}

	handlers := api.NewHandlers(scraperService, catalogRepo, refresherService, logger)

	// Setup Chi router
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(90 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		pendingCount, _ := relay.GetPendingCount(context.Background())
		deadLetterCount, _ := relay.GetDeadLetterCount(context.Background())

		health := map[string]interface{}{
			"status": "ok",
			"outbox": map[string]interface{}{
				"pending":     pendingCount,
				"dead_letter": deadLetterCount,
			},
			"refresh_queue": refresherService.QueueSize(),
		}

		status := http.StatusOK
		if deadLetterCount > 100 {
			health["status"] = "error"
			health["message"] = "High number of dead letter events"
			status = http.StatusServiceUnavailable
		}

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(health)
	})

	// API Routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/products/{productID}/prices", func(r chi.Router) {
			r.Get("/", handlers.GetPrices)
			r.Post("/refresh", handlers.RefreshPrices)
			r.Post("/refresh-async", handlers.RefreshPricesAsync)
			r.Delete("/", handlers.ClearPrices)
		})
		r.Delete("/prices", handlers.ClearAllPrices)
		r.Get("/stats", handlers.GetStats)
	})

	// Start server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
