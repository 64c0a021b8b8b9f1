package weather

import (
	"time"

	"github.com/i474232898/surface-temperature/internal/geo"
	"github.com/i474232898/surface-temperature/internal/surface"
)

// DailyForecast is the day's high/low air temperature for one place, in °C.
type DailyForecast struct {
	HighC    float64   `json:"highC"`
	LowC     float64   `json:"lowC"`
	Source   string    `json:"source"`
	IssuedAt time.Time `json:"issuedAt,omitempty"`
}

// Observation is what a Strategy learned about a coordinate: the forecast
// and, when the strategy went through one, the station and region it used.
type Observation struct {
	Forecast DailyForecast `json:"forecast"`
	Station  *geo.Station  `json:"station,omitempty"`
	Region   string        `json:"region,omitempty"`
}

// Report is the result of one end-to-end estimation for a coordinate.
type Report struct {
	ID          string            `json:"id"`
	Coordinate  geo.Coordinate    `json:"coordinate"`
	Date        time.Time         `json:"date"`
	DayOfYear   int               `json:"dayOfYear"`
	Strategy    string            `json:"strategy"`
	Observation Observation       `json:"observation"`
	Breakdown   surface.Breakdown `json:"breakdown"`
	CreatedAt   time.Time         `json:"createdAt"` // always UTC
}

// Estimates is a shorthand for r.Breakdown.Estimates.
func (r Report) Estimates() []surface.Estimate {
	return r.Breakdown.Estimates
}
