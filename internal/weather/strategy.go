package weather

import (
	"context"
	"errors"
	"fmt"

	"github.com/i474232898/surface-temperature/internal/geo"
)

// Strategy obtains the day's high/low for a coordinate. Implementations
// differ only in how they get there; the estimator never sees which one ran.
type Strategy interface {
	Name() string
	Observe(ctx context.Context, coord geo.Coordinate) (Observation, error)
}

// AreaStrategy asks a provider directly for the forecast at the coordinate.
type AreaStrategy struct {
	Forecasts AreaForecaster
}

func (s AreaStrategy) Name() string { return "area" }

func (s AreaStrategy) Observe(ctx context.Context, coord geo.Coordinate) (Observation, error) {
	f, err := s.Forecasts.AreaForecast(ctx, coord)
	if err != nil {
		return Observation{}, fmt.Errorf("area forecast: %w", err)
	}
	return Observation{Forecast: f}, nil
}

// NearestStationStrategy picks the closest station and forecasts for its region.
type NearestStationStrategy struct {
	Stations  StationLister
	Forecasts RegionForecaster
}

func (s NearestStationStrategy) Name() string { return "station" }

func (s NearestStationStrategy) Observe(ctx context.Context, coord geo.Coordinate) (Observation, error) {
	stations, err := s.Stations.Stations(ctx)
	if err != nil {
		return Observation{}, fmt.Errorf("list stations: %w", err)
	}

	st, err := geo.FindNearest(coord, stations)
	if err != nil {
		return Observation{}, fmt.Errorf("nearest station: %w", err)
	}
	if st.Region == "" {
		return Observation{Station: &st}, fmt.Errorf("station %s has no region: %w", st.Name, ErrNoData)
	}

	f, err := s.Forecasts.RegionForecast(ctx, st.Region)
	if err != nil {
		return Observation{Station: &st, Region: st.Region}, fmt.Errorf("region forecast for %s: %w", st.Region, err)
	}
	return Observation{Forecast: f, Station: &st, Region: st.Region}, nil
}

// GeocodeStrategy reverse geocodes the coordinate and forecasts for that region.
type GeocodeStrategy struct {
	Resolver  RegionResolver
	Forecasts RegionForecaster
}

func (s GeocodeStrategy) Name() string { return "geocode" }

func (s GeocodeStrategy) Observe(ctx context.Context, coord geo.Coordinate) (Observation, error) {
	region, err := s.Resolver.ResolveRegion(ctx, coord)
	if err != nil {
		return Observation{}, fmt.Errorf("resolve region: %w", err)
	}

	f, err := s.Forecasts.RegionForecast(ctx, region)
	if err != nil {
		return Observation{Region: region}, fmt.Errorf("region forecast for %s: %w", region, err)
	}
	return Observation{Forecast: f, Region: region}, nil
}

// FallbackStrategy tries each strategy in order and returns the first success.
type FallbackStrategy struct {
	Strategies []Strategy
}

func (s FallbackStrategy) Name() string { return "fallback" }

func (s FallbackStrategy) Observe(ctx context.Context, coord geo.Coordinate) (Observation, error) {
	if len(s.Strategies) == 0 {
		return Observation{}, errors.New("fallback: no strategies configured")
	}

	var errs []error
	for _, st := range s.Strategies {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		obs, err := st.Observe(ctx, coord)
		if err == nil {
			return obs, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", st.Name(), err))
	}
	return Observation{}, errors.Join(errs...)
}
