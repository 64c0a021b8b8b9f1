package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/surface-temperature/internal/geo"
)

// AggregateForecasts combines several forecasts for the same place by
// averaging high and low. The newest issue time wins; sources are joined
// with "+" in input order.
func AggregateForecasts(forecasts []DailyForecast) (DailyForecast, error) {
	if len(forecasts) == 0 {
		return DailyForecast{}, ErrNoData
	}

	var (
		sumHigh, sumLow float64
		sources         = make([]string, 0, len(forecasts))
		newest          time.Time
	)
	for _, f := range forecasts {
		sumHigh += f.HighC
		sumLow += f.LowC
		sources = append(sources, f.Source)
		if f.IssuedAt.After(newest) {
			newest = f.IssuedAt
		}
	}

	n := float64(len(forecasts))
	return DailyForecast{
		HighC:    sumHigh / n,
		LowC:     sumLow / n,
		Source:   strings.Join(sources, "+"),
		IssuedAt: newest,
	}, nil
}

// EnsembleForecaster queries every member concurrently and averages the ones
// that answer. It fails only when all members fail.
type EnsembleForecaster struct {
	Members []AreaForecaster
}

func (e EnsembleForecaster) AreaForecast(ctx context.Context, coord geo.Coordinate) (DailyForecast, error) {
	if len(e.Members) == 0 {
		return DailyForecast{}, errors.New("ensemble: no forecasters configured")
	}

	var (
		wg      sync.WaitGroup
		results = make([]DailyForecast, len(e.Members))
		errs    = make([]error, len(e.Members))
	)
	for i, m := range e.Members {
		wg.Add(1)
		go func(i int, m AreaForecaster) {
			defer wg.Done()
			results[i], errs[i] = m.AreaForecast(ctx, coord)
		}(i, m)
	}
	wg.Wait()

	// Keep member order so the aggregate is deterministic.
	var ok []DailyForecast
	for i := range e.Members {
		if errs[i] == nil {
			ok = append(ok, results[i])
		}
	}
	if len(ok) == 0 {
		return DailyForecast{}, fmt.Errorf("ensemble: all forecasters failed: %w", errors.Join(errs...))
	}
	return AggregateForecasts(ok)
}
