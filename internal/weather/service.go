package weather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/i474232898/surface-temperature/internal/geo"
	"github.com/i474232898/surface-temperature/internal/surface"
)

// Service runs a Strategy, feeds its forecast to the estimator and hands the
// resulting report to every configured sink.
type Service struct {
	strategy  Strategy
	estimator *surface.Estimator
	location  *time.Location
	sinks     []ReportSink
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService creates a new Service. Day-of-year is taken from the request
// time as seen in loc; a nil loc means UTC.
func NewService(strategy Strategy, estimator *surface.Estimator, loc *time.Location, logger zerolog.Logger, sinks ...ReportSink) *Service {
	if estimator == nil {
		estimator = surface.NewEstimator()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		strategy:  strategy,
		estimator: estimator,
		location:  loc,
		sinks:     sinks,
		logger:    logger.With().Str("component", "service").Logger(),
		now:       time.Now,
	}
}

// Location is the time zone whose calendar day feeds the estimator.
func (s *Service) Location() *time.Location {
	return s.location
}

// StrategyName reports which strategy the service is configured with.
func (s *Service) StrategyName() string {
	return s.strategy.Name()
}

// Estimate observes coord, estimates surface temperatures for the calendar day
// of at, and publishes the report. A zero at means now.
//
// Errors from the estimator are wrapped and still match the surface sentinels.
func (s *Service) Estimate(ctx context.Context, coord geo.Coordinate, at time.Time) (Report, error) {
	if at.IsZero() {
		at = s.now()
	}
	local := at.In(s.location)

	obs, err := s.strategy.Observe(ctx, coord)
	if err != nil {
		return Report{}, fmt.Errorf("observe %s via %s: %w", coord.Key(), s.strategy.Name(), err)
	}

	day := surface.DayOfYear(local)
	b, err := s.estimator.Compute(coord.Lat, day, obs.Forecast.HighC, obs.Forecast.LowC)
	if err != nil {
		return Report{}, fmt.Errorf("estimate %s: %w", coord.Key(), err)
	}

	report := Report{
		ID:          uuid.NewString(),
		Coordinate:  coord,
		Date:        time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location),
		DayOfYear:   day,
		Strategy:    s.strategy.Name(),
		Observation: obs,
		Breakdown:   b,
		CreatedAt:   s.now().UTC(),
	}

	s.logger.Debug().
		Str("coord", coord.Key()).
		Int("day", day).
		Float64("high", obs.Forecast.HighC).
		Float64("low", obs.Forecast.LowC).
		Float64("cloud", b.CloudCoefficient).
		Msg("estimated surface temperatures")

	s.publish(ctx, report)
	return report, nil
}

// publish fans the report out to all sinks. A failing sink is logged and
// does not affect the others or the caller.
func (s *Service) publish(ctx context.Context, report Report) {
	var wg sync.WaitGroup
	for _, sink := range s.sinks {
		wg.Add(1)
		go func(sink ReportSink) {
			defer wg.Done()
			if err := sink.Publish(ctx, report); err != nil {
				s.logger.Warn().Err(err).Str("report", report.ID).Msg("sink publish failed")
			}
		}(sink)
	}
	wg.Wait()
}

// LogSink writes a one-line summary of each report.
type LogSink struct {
	Logger zerolog.Logger
}

func (l LogSink) Publish(_ context.Context, r Report) error {
	ev := l.Logger.Info().
		Str("report", r.ID).
		Str("coord", r.Coordinate.Key()).
		Str("strategy", r.Strategy).
		Str("source", r.Observation.Forecast.Source)
	if r.Observation.Station != nil {
		ev = ev.Str("station", r.Observation.Station.Name)
	}
	for _, e := range r.Estimates() {
		ev = ev.Float64(e.Material, e.TemperatureC)
	}
	ev.Msg("surface temperature report")
	return nil
}
