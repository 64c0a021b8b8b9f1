package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/i474232898/surface-temperature/internal/geo"
	"github.com/i474232898/surface-temperature/internal/weather"
)

// Estimator is the part of weather.Service the scheduler drives.
type Estimator interface {
	Estimate(ctx context.Context, coord geo.Coordinate, at time.Time) (weather.Report, error)
}

// Scheduler periodically refreshes surface temperature reports for
// configured coordinates.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	service    Estimator
	locations  []geo.Coordinate
	interval   time.Duration
	jobTimeout time.Duration
	logger     zerolog.Logger
}

// New creates a new Scheduler.
func New(locations []geo.Coordinate, interval time.Duration, service Estimator, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		scheduler:  gocron.NewScheduler(time.UTC),
		service:    service,
		locations:  locations,
		interval:   interval,
		jobTimeout: 30 * time.Second,
		logger:     logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start schedules the refresh job, runs it once immediately and starts the
// underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		s.logger.Info().Msg("no locations configured; nothing to schedule")
		return nil
	}

	if _, err := s.scheduler.Every(s.every()).Do(s.RunOnce); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// every is the job period; an unset interval means hourly.
func (s *Scheduler) every() time.Duration {
	if s.interval <= 0 {
		return time.Hour
	}
	return s.interval
}

// RunOnce refreshes every location concurrently and waits for all of them.
func (s *Scheduler) RunOnce() {
	s.logger.Debug().Int("locations", len(s.locations)).Msg("running surface temperature job")

	var wg sync.WaitGroup
	for _, loc := range s.locations {
		wg.Add(1)
		go func(loc geo.Coordinate) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
			defer cancel()

			if _, err := s.service.Estimate(ctx, loc, time.Time{}); err != nil {
				s.logger.Warn().Err(err).Str("coord", loc.Key()).Msg("refresh failed")
			}
		}(loc)
	}
	wg.Wait()

	s.logger.Debug().Msg("completed surface temperature job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
