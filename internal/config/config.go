package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve in minimal containers

	"github.com/joho/godotenv"

	"github.com/i474232898/surface-temperature/internal/geo"
)

// Strategy names accepted by FORECAST_STRATEGY.
const (
	StrategyArea     = "area"
	StrategyStation  = "station"
	StrategyGeocode  = "geocode"
	StrategyFallback = "fallback"
)

type AppConfig struct {
	Port        string
	HTTPTimeout time.Duration

	LogLevel  string
	LogFormat string // "json" or "console"

	CWAAPIKey      string
	GeocoderAPIKey string

	// Strategy selects how the day's high/low is obtained for a coordinate.
	Strategy string

	// Location is the time zone whose calendar day feeds the estimator.
	Location *time.Location

	// Locations are refreshed by the scheduler every FetchInterval.
	Locations     []geo.Coordinate
	FetchInterval time.Duration

	// In-memory store retention.
	StoreMaxHistory int           // max number of reports per coordinate (0 = unlimited)
	StoreMaxAge     time.Duration // max age of reports (0 = unlimited)
}

// Load reads configuration from the environment (and .env when present)
// with sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env is normal outside development; a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &AppConfig{
		Port:           getenvDefault("PORT", "8080"),
		LogLevel:       getenvDefault("LOG_LEVEL", "info"),
		LogFormat:      getenvDefault("LOG_FORMAT", "json"),
		CWAAPIKey:      os.Getenv("CWA_API_KEY"),
		GeocoderAPIKey: os.Getenv("GOOGLE_GEOCODER_API_KEY"),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "60m"); err != nil {
		return nil, err
	}
	if cfg.FetchInterval < time.Minute {
		return nil, fmt.Errorf("FETCH_INTERVAL must be at least 1m, got %s", cfg.FetchInterval)
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "48h"); err != nil {
		return nil, err
	}
	if cfg.StoreMaxHistory, err = getenvInt("STORE_MAX_HISTORY", 48); err != nil {
		return nil, err
	}

	tz := getenvDefault("TIMEZONE", "Asia/Taipei")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	cfg.Strategy = strings.ToLower(getenvDefault("FORECAST_STRATEGY", defaultStrategy(cfg)))
	switch cfg.Strategy {
	case StrategyArea, StrategyStation, StrategyGeocode, StrategyFallback:
	default:
		return nil, fmt.Errorf("invalid FORECAST_STRATEGY %q", cfg.Strategy)
	}
	if (cfg.Strategy == StrategyStation || cfg.Strategy == StrategyGeocode) && cfg.CWAAPIKey == "" {
		return nil, fmt.Errorf("FORECAST_STRATEGY=%s requires CWA_API_KEY", cfg.Strategy)
	}
	if cfg.Strategy == StrategyGeocode && cfg.GeocoderAPIKey == "" {
		return nil, fmt.Errorf("FORECAST_STRATEGY=geocode requires GOOGLE_GEOCODER_API_KEY")
	}

	if cfg.Locations, err = ParseLocations(os.Getenv("LOCATIONS")); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultStrategy falls back through every source the keys allow; without a
// CWA key only Open-Meteo's area forecast is usable.
func defaultStrategy(cfg *AppConfig) string {
	if cfg.CWAAPIKey == "" {
		return StrategyArea
	}
	return StrategyFallback
}

// ParseLocations parses "lat,lon;lat,lon". Empty input yields no locations.
func ParseLocations(s string) ([]geo.Coordinate, error) {
	var locs []geo.Coordinate
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ",")
		if len(fields) != 2 {
			return nil, fmt.Errorf("invalid LOCATIONS entry %q: want lat,lon", part)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil || lat < -90 || lat > 90 {
			return nil, fmt.Errorf("invalid latitude in LOCATIONS entry %q", part)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil || lon < -180 || lon > 180 {
			return nil, fmt.Errorf("invalid longitude in LOCATIONS entry %q", part)
		}
		locs = append(locs, geo.Coordinate{Lat: lat, Lon: lon})
	}
	return locs, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
