package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/surface-temperature/internal/api/http"
	"github.com/i474232898/surface-temperature/internal/config"
	"github.com/i474232898/surface-temperature/internal/logging"
	"github.com/i474232898/surface-temperature/internal/scheduler"
	"github.com/i474232898/surface-temperature/internal/store"
	"github.com/i474232898/surface-temperature/internal/surface"
	"github.com/i474232898/surface-temperature/internal/weather"
	"github.com/i474232898/surface-temperature/internal/weather/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "json")
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	estimator := surface.NewEstimator()
	service := weather.NewService(buildStrategy(cfg, httpClient), estimator, cfg.Location, log,
		memStore,
		weather.LogSink{Logger: log.With().Str("component", "reports").Logger()},
	)
	log.Info().Str("strategy", service.StrategyName()).Str("timezone", cfg.Location.String()).Msg("service configured")

	sched := scheduler.New(cfg.Locations, cfg.FetchInterval, service, log)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "surface-temperature",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout + 10*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(logger.New(logger.Config{Output: os.Stdout}))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "surface-temperature",
			"strategy": service.StrategyName(),
		})
	})

	httpapi.RegisterRoutes(app, service, memStore, estimator)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
}

// buildStrategy assembles the configured strategy from the providers the
// available keys allow.
func buildStrategy(cfg *config.AppConfig, client *http.Client) weather.Strategy {
	openMeteo := providers.NewOpenMeteoProvider(client)

	if cfg.CWAAPIKey == "" {
		return weather.AreaStrategy{Forecasts: openMeteo}
	}
	cwa := providers.NewCWAProvider(client, cfg.CWAAPIKey)

	area := weather.AreaStrategy{
		Forecasts: weather.EnsembleForecaster{Members: []weather.AreaForecaster{cwa, openMeteo}},
	}
	station := weather.NearestStationStrategy{Stations: cwa, Forecasts: cwa}

	var geocode weather.Strategy
	if cfg.GeocoderAPIKey != "" {
		geocode = weather.GeocodeStrategy{
			Resolver:  providers.NewGoogleRegionResolver(cfg.GeocoderAPIKey),
			Forecasts: cwa,
		}
	}

	switch cfg.Strategy {
	case config.StrategyStation:
		return station
	case config.StrategyGeocode:
		return geocode
	case config.StrategyArea:
		return area
	}

	chain := []weather.Strategy{area, station}
	if geocode != nil {
		chain = append(chain, geocode)
	}
	return weather.FallbackStrategy{Strategies: chain}
}
