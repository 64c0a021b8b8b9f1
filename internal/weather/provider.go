package weather

import (
	"context"
	"errors"

	"github.com/i474232898/surface-temperature/internal/geo"
)

// ErrNoData is returned by providers that answered but had nothing usable
// for the requested place.
var ErrNoData = errors.New("weather: no data for location")

// AreaForecaster returns the daily forecast for the area containing a coordinate.
type AreaForecaster interface {
	AreaForecast(ctx context.Context, coord geo.Coordinate) (DailyForecast, error)
}

// StationLister returns the current set of observation stations.
type StationLister interface {
	Stations(ctx context.Context) ([]geo.Station, error)
}

// RegionForecaster returns the daily forecast for a named administrative region.
type RegionForecaster interface {
	RegionForecast(ctx context.Context, region string) (DailyForecast, error)
}

// RegionResolver maps a coordinate to the administrative region containing it.
type RegionResolver interface {
	ResolveRegion(ctx context.Context, coord geo.Coordinate) (string, error)
}

// ReportSink receives every report the Service produces.
type ReportSink interface {
	Publish(ctx context.Context, report Report) error
}

// Store is the read side of a report sink, used by the HTTP API.
type Store interface {
	ReportSink
	Latest(coord geo.Coordinate) (Report, error)
}
