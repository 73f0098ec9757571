package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/pitchside/internal/api/http"
	"github.com/i474232898/pitchside/internal/config"
	"github.com/i474232898/pitchside/internal/location"
	"github.com/i474232898/pitchside/internal/scheduler"
	"github.com/i474232898/pitchside/internal/session"
	"github.com/i474232898/pitchside/internal/store"
	"github.com/i474232898/pitchside/internal/venue/providers"
	"github.com/i474232898/pitchside/internal/weather"
	weatherproviders "github.com/i474232898/pitchside/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Providers with resilience (backoff + circuit breaker).
	places, err := providers.NewGooglePlaces(cfg.GoogleMapsAPIKey, httpClient, logger)
	if err != nil {
		logger.Fatal("venue search unavailable; set GOOGLE_MAPS_API_KEY", zap.Error(err))
	}

	var current weather.Provider
	switch cfg.WeatherProvider {
	case config.ProviderWeatherAPI:
		current = weatherproviders.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey, logger)
	default:
		current = weatherproviders.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey, logger)
	}

	deps := session.Deps{
		Venues:            places,
		Weather:           current,
		History:           weatherproviders.NewOpenMeteoProvider(httpClient, logger),
		EnrichConcurrency: cfg.EnrichConcurrency,
		Logger:            logger,
	}
	// Reverse geocoding names cells the weather provider leaves unnamed.
	if cfg.GoogleMapsAPIKey != "" {
		deps.Names = weatherproviders.NewGeocoderResolver(cfg.GoogleMapsAPIKey)
	}

	// In-memory session store with configured retention.
	sessions := store.NewMemoryStore(cfg.MaxSessions, cfg.SessionMaxIdle)
	defer sessions.CloseAll()

	// Scheduler that periodically expires idle sessions.
	sched := scheduler.New(sessions, cfg.SessionSweepInterval, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// Basic app configuration. Session creation runs the first search and weather
	// fetch inline, so writes get more time than reads.
	app := fiber.New(fiber.Config{
		AppName:               "pitchside",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "pitchside",
			"sessions": sessions.Len(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Dependencies{
		Store:    sessions,
		Session:  deps,
		Resolver: location.NewResolver(cfg.LocationTimeout, cfg.Fallback, logger),
		Locator: func(c *fiber.Ctx) location.Provider {
			return location.IPLookup{Client: httpClient, URL: cfg.IPLookupURL, IP: c.IP()}
		},
		Logger: logger,
	})

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", zap.Error(err))
		}
	}()
	logger.Info("listening", zap.String("port", cfg.Port), zap.String("weather", current.Name()))

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
