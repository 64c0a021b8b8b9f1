package weather

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/surface-temperature/internal/geo"
	"github.com/i474232898/surface-temperature/internal/surface"
)

type recordingSink struct {
	mu      sync.Mutex
	reports []Report
	err     error
}

func (r *recordingSink) Publish(_ context.Context, report Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return r.err
}

func TestServiceEstimate(t *testing.T) {
	fc := new(MockAreaForecaster)
	coord := geo.Coordinate{Lat: 25.0, Lon: 121.5}
	fc.On("AreaForecast", mock.Anything, coord).Return(DailyForecast{HighC: 34, LowC: 26, Source: "test"}, nil)

	sink := &recordingSink{}
	failing := &recordingSink{err: errors.New("sink down")}
	taipeiTZ := time.FixedZone("CST", 8*60*60)
	svc := NewService(AreaStrategy{Forecasts: fc}, surface.NewEstimator(), taipeiTZ, zerolog.Nop(), sink, failing)

	// 2025-06-20 17:00 UTC is June 21st (day 172) in Taipei.
	at := time.Date(2025, time.June, 20, 17, 0, 0, 0, time.UTC)
	report, err := svc.Estimate(context.Background(), coord, at)
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, 172, report.DayOfYear)
	assert.Equal(t, "area", report.Strategy)
	assert.Equal(t, time.Date(2025, time.June, 21, 0, 0, 0, 0, taipeiTZ), report.Date)
	require.Len(t, report.Estimates(), 4)
	assert.Equal(t, 68.9, report.Estimates()[0].TemperatureC)

	require.Len(t, sink.reports, 1)
	assert.Equal(t, report.ID, sink.reports[0].ID)
	assert.Len(t, failing.reports, 1)
	fc.AssertExpectations(t)
}

func TestServiceEstimateCoreErrors(t *testing.T) {
	tests := []struct {
		name     string
		coord    geo.Coordinate
		forecast DailyForecast
		expected error
	}{
		{
			name:     "flat day",
			coord:    geo.Coordinate{Lat: 25, Lon: 121},
			forecast: DailyForecast{HighC: 28, LowC: 28},
			expected: surface.ErrNonPositiveRadiation,
		},
		{
			name:     "latitude out of range",
			coord:    geo.Coordinate{Lat: 95, Lon: 121},
			forecast: DailyForecast{HighC: 30, LowC: 20},
			expected: surface.ErrInvalidLatitude,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := new(MockAreaForecaster)
			fc.On("AreaForecast", mock.Anything, tt.coord).Return(tt.forecast, nil)
			sink := &recordingSink{}
			svc := NewService(AreaStrategy{Forecasts: fc}, nil, nil, zerolog.Nop(), sink)

			_, err := svc.Estimate(context.Background(), tt.coord, time.Date(2025, 6, 21, 4, 0, 0, 0, time.UTC))
			assert.ErrorIs(t, err, tt.expected)
			assert.Empty(t, sink.reports)
		})
	}
}

func TestServiceEstimateStrategyError(t *testing.T) {
	fc := new(MockAreaForecaster)
	fc.On("AreaForecast", mock.Anything, mock.Anything).Return(DailyForecast{}, ErrNoData)
	svc := NewService(AreaStrategy{Forecasts: fc}, nil, nil, zerolog.Nop())

	_, err := svc.Estimate(context.Background(), geo.Coordinate{Lat: 25, Lon: 121}, time.Time{})
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, "area", svc.StrategyName())
}

func TestServiceEstimateDefaultsToNow(t *testing.T) {
	fc := new(MockAreaForecaster)
	fc.On("AreaForecast", mock.Anything, mock.Anything).Return(DailyForecast{HighC: 34, LowC: 26}, nil)
	svc := NewService(AreaStrategy{Forecasts: fc}, nil, nil, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC) }

	report, err := svc.Estimate(context.Background(), geo.Coordinate{Lat: 10, Lon: 0}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.DayOfYear)
	assert.Equal(t, svc.now(), report.CreatedAt)
}

func TestLogSink(t *testing.T) {
	st := geo.Station{Name: "臺北"}
	r := Report{
		ID:          "abc",
		Observation: Observation{Station: &st},
		Breakdown:   surface.Breakdown{Estimates: []surface.Estimate{{Material: "Asphalt", TemperatureC: 50}}},
	}
	assert.NoError(t, LogSink{Logger: zerolog.Nop()}.Publish(context.Background(), r))
}
