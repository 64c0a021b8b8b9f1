package surface

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidLatitude is returned for a latitude outside [-90, 90] or NaN.
	ErrInvalidLatitude = errors.New("surface: invalid latitude")
	// ErrInvalidDayOfYear is returned for a day outside [1, 366].
	ErrInvalidDayOfYear = errors.New("surface: invalid day of year")
	// ErrInvalidTemperatureRange is returned when high or low is not finite.
	ErrInvalidTemperatureRange = errors.New("surface: invalid temperature range")
	// ErrNonPositiveRadiation is returned when the absorbed radiation is not
	// positive, so no equilibrium temperature exists. This covers polar night
	// and a zero or inverted observed temperature range.
	ErrNonPositiveRadiation = errors.New("surface: non-positive radiation input")
)

// Constants are the coefficients of the estimation formulas.
type Constants struct {
	SolarConstant         float64 // GSC, W/m²
	StefanBoltzmann       float64 // σ, W/(m²K⁴)
	DeclinationAmplitude  float64 // degrees
	EquinoxDayOffset      float64
	YearLength            float64 // days
	EccentricityAmplitude float64
	DiurnalRangeSlope     float64 // °C per W/m²
	DiurnalRangeIntercept float64 // °C
	KelvinOffset          float64
}

// DefaultConstants returns the canonical coefficient set.
func DefaultConstants() Constants {
	return Constants{
		SolarConstant:         1367,
		StefanBoltzmann:       5.67e-8,
		DeclinationAmplitude:  23.45,
		EquinoxDayOffset:      81,
		YearLength:            365,
		EccentricityAmplitude: 0.033,
		DiurnalRangeSlope:     0.005,
		DiurnalRangeIntercept: 6,
		KelvinOffset:          273.15,
	}
}

// Estimate is the equilibrium temperature of one material, rounded to 0.1 °C.
type Estimate struct {
	Material     string  `json:"material"`
	Albedo       float64 `json:"albedo"`
	TemperatureC float64 `json:"temperatureC"`
}

// Breakdown holds every intermediate value of one estimation run.
// Angles are in radians, radiation in W/m², temperatures in °C.
type Breakdown struct {
	Latitude           float64    `json:"latitude"`
	DayOfYear          int        `json:"dayOfYear"`
	HighC              float64    `json:"highC"`
	LowC               float64    `json:"lowC"`
	Declination        float64    `json:"declination"`
	NoonElevation      float64    `json:"noonElevation"`
	EccentricityFactor float64    `json:"eccentricityFactor"`
	ClearSkyRadiation  float64    `json:"clearSkyRadiation"`
	MaxDiurnalRange    float64    `json:"maxDiurnalRange"`
	ObservedRange      float64    `json:"observedRange"`
	CloudCoefficient   float64    `json:"cloudCoefficient"`
	ObservedRadiation  float64    `json:"observedRadiation"`
	Estimates          []Estimate `json:"estimates"`
}

// Estimator turns a latitude, day and temperature range into per-material
// surface temperatures. It holds no mutable state and is safe for concurrent
// use once constructed.
type Estimator struct {
	materials []Material
	constants Constants
}

// NewEstimator returns an estimator over the default materials and constants.
func NewEstimator() *Estimator {
	return NewEstimatorWith(DefaultMaterials(), DefaultConstants())
}

// NewEstimatorWith returns an estimator over the given table and constants.
func NewEstimatorWith(materials []Material, constants Constants) *Estimator {
	m := make([]Material, len(materials))
	copy(m, materials)
	return &Estimator{materials: m, constants: constants}
}

// Materials returns a copy of the estimator's material table.
func (e *Estimator) Materials() []Material {
	m := make([]Material, len(e.materials))
	copy(m, e.materials)
	return m
}

// Estimate returns one estimate per material, in table order.
func (e *Estimator) Estimate(latitude float64, dayOfYear int, high, low float64) ([]Estimate, error) {
	b, err := e.Compute(latitude, dayOfYear, high, low)
	if err != nil {
		return nil, err
	}
	return b.Estimates, nil
}

// Compute runs the full pipeline and returns its intermediate values.
func (e *Estimator) Compute(latitude float64, dayOfYear int, high, low float64) (Breakdown, error) {
	if math.IsNaN(latitude) || latitude < -90 || latitude > 90 {
		return Breakdown{}, fmt.Errorf("%w: %v", ErrInvalidLatitude, latitude)
	}
	if dayOfYear < 1 || dayOfYear > 366 {
		return Breakdown{}, fmt.Errorf("%w: %d", ErrInvalidDayOfYear, dayOfYear)
	}
	if !isFinite(high) || !isFinite(low) {
		return Breakdown{}, fmt.Errorf("%w: high=%v low=%v", ErrInvalidTemperatureRange, high, low)
	}

	k := e.constants
	n := float64(dayOfYear)
	b := Breakdown{
		Latitude:  latitude,
		DayOfYear: dayOfYear,
		HighC:     high,
		LowC:      low,
	}

	b.Declination = radians(k.DeclinationAmplitude) * math.Sin(radians(360/k.YearLength*(n-k.EquinoxDayOffset)))
	b.NoonElevation = radians(90) - math.Abs(radians(latitude)-b.Declination)
	b.EccentricityFactor = 1 + k.EccentricityAmplitude*math.Cos(radians(360*n/k.YearLength))
	b.ClearSkyRadiation = k.SolarConstant * b.EccentricityFactor * math.Sin(b.NoonElevation)
	if b.ClearSkyRadiation <= 0 {
		return b, fmt.Errorf("%w: sun below horizon at noon (clear-sky %.2f W/m²)", ErrNonPositiveRadiation, b.ClearSkyRadiation)
	}

	b.MaxDiurnalRange = k.DiurnalRangeSlope*b.ClearSkyRadiation + k.DiurnalRangeIntercept
	b.ObservedRange = high - low
	b.CloudCoefficient = math.Min(b.ObservedRange/b.MaxDiurnalRange, 1)
	b.ObservedRadiation = b.ClearSkyRadiation * b.CloudCoefficient
	if b.ObservedRadiation <= 0 {
		return b, fmt.Errorf("%w: observed %.2f W/m²", ErrNonPositiveRadiation, b.ObservedRadiation)
	}

	b.Estimates = make([]Estimate, 0, len(e.materials))
	for _, m := range e.materials {
		kelvin := math.Pow(m.Emissivity()*b.ObservedRadiation/k.StefanBoltzmann, 0.25)
		b.Estimates = append(b.Estimates, Estimate{
			Material:     m.Name,
			Albedo:       m.Albedo,
			TemperatureC: roundTenth(kelvin - k.KelvinOffset),
		})
	}
	return b, nil
}

var defaultEstimator = NewEstimator()

// Compute runs the default estimator.
func Compute(latitude float64, dayOfYear int, high, low float64) (Breakdown, error) {
	return defaultEstimator.Compute(latitude, dayOfYear, high, low)
}

// EstimateTemperatures runs the default estimator and returns only the estimates.
func EstimateTemperatures(latitude float64, dayOfYear int, high, low float64) ([]Estimate, error) {
	return defaultEstimator.Estimate(latitude, dayOfYear, high, low)
}

// DayOfYear returns the ordinal day of t in its own location, 1 on January 1st.
func DayOfYear(t time.Time) int {
	return t.YearDay()
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
