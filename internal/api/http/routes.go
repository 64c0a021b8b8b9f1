package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/surface-temperature/internal/geo"
	"github.com/i474232898/surface-temperature/internal/store"
	"github.com/i474232898/surface-temperature/internal/surface"
	"github.com/i474232898/surface-temperature/internal/weather"
)

var validate = validator.New()

// Service is the part of weather.Service the API needs.
type Service interface {
	Estimate(ctx context.Context, coord geo.Coordinate, at time.Time) (weather.Report, error)
	Location() *time.Location
}

// Reports is the read side of the report store.
type Reports interface {
	Latest(coord geo.Coordinate) (weather.Report, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service Service, reports Reports, estimator *surface.Estimator) {
	if estimator == nil {
		estimator = surface.NewEstimator()
	}
	v1 := app.Group("/api/v1")

	v1.Get("/materials", func(c *fiber.Ctx) error {
		return c.JSON(estimator.Materials())
	})

	v1.Get("/estimate", func(c *fiber.Ctx) error {
		var req estimateQuery
		if err := req.bind(c); err != nil {
			if errors.Is(err, surface.ErrInvalidTemperatureRange) {
				return coreError(err)
			}
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		b, err := estimator.Compute(req.lat, req.day, req.high, req.low)
		if err != nil {
			return coreError(err)
		}
		return c.JSON(b)
	})

	v1.Post("/stations/nearest", func(c *fiber.Ctx) error {
		var req nearestRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		st, dist, err := geo.FindNearestWithDistance(req.Query, req.Candidates)
		if err != nil {
			return coreError(err)
		}
		return c.JSON(fiber.Map{
			"station":    st,
			"distanceKm": dist,
		})
	})

	v1.Get("/surface-temperature", func(c *fiber.Ctx) error {
		coord, err := parseCoordinate(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var at time.Time
		if d := c.Query("date"); d != "" {
			if at, err = time.ParseInLocation(time.DateOnly, d, service.Location()); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid date; use YYYY-MM-DD")
			}
		}

		report, err := service.Estimate(c.UserContext(), coord, at)
		if err != nil {
			return coreError(err)
		}
		return c.JSON(report)
	})

	v1.Get("/surface-temperature/latest", func(c *fiber.Ctx) error {
		coord, err := parseCoordinate(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := reports.Latest(coord)
		if err != nil {
			return coreError(err)
		}
		return c.JSON(report)
	})
}

// coreError maps every error kind to its own status and user message.
func coreError(err error) error {
	switch {
	case errors.Is(err, surface.ErrInvalidLatitude):
		return fiber.NewError(fiber.StatusBadRequest, "latitude must be between -90 and 90 degrees")
	case errors.Is(err, surface.ErrInvalidDayOfYear):
		return fiber.NewError(fiber.StatusBadRequest, "day of year must be between 1 and 366")
	case errors.Is(err, surface.ErrInvalidTemperatureRange):
		return fiber.NewError(fiber.StatusBadRequest, "high and low temperatures must be finite numbers")
	case errors.Is(err, surface.ErrNonPositiveRadiation):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "no net solar radiation for this day and temperature range; surface temperature is undefined")
	case errors.Is(err, geo.ErrEmptyCandidateSet):
		return fiber.NewError(fiber.StatusBadRequest, "at least one candidate station is required")
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "no surface temperature report for requested location")
	case errors.Is(err, weather.ErrNoData):
		return fiber.NewError(fiber.StatusNotFound, "no forecast available for requested location")
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "weather provider timed out")
	default:
		return fiber.NewError(fiber.StatusBadGateway, "failed to fetch weather data")
	}
}

// coordinateQuery holds query parameters for identifying a location.
type coordinateQuery struct {
	Lat string `validate:"required,latitude"`
	Lon string `validate:"required,longitude"`
}

func parseCoordinate(c *fiber.Ctx) (geo.Coordinate, error) {
	q := coordinateQuery{Lat: c.Query("lat"), Lon: c.Query("lon")}
	if err := validate.Struct(q); err != nil {
		return geo.Coordinate{}, err
	}

	lat, err := strconv.ParseFloat(q.Lat, 64)
	if err != nil {
		return geo.Coordinate{}, err
	}
	lon, err := strconv.ParseFloat(q.Lon, 64)
	if err != nil {
		return geo.Coordinate{}, err
	}
	return geo.Coordinate{Lat: lat, Lon: lon}, nil
}

// estimateQuery holds query parameters for the pure estimation endpoint.
// Range checks are left to the estimator so its error kinds reach the caller.
// High and low are only parsed; NaN and Inf are rejected by the estimator.
type estimateQuery struct {
	Lat  string `validate:"required,numeric"`
	Day  string `validate:"required,number"`
	High string `validate:"required"`
	Low  string `validate:"required"`

	lat, high, low float64
	day            int
}

func (q *estimateQuery) bind(c *fiber.Ctx) error {
	q.Lat = c.Query("lat")
	q.Day = c.Query("day")
	q.High = c.Query("high")
	q.Low = c.Query("low")
	if err := validate.Struct(q); err != nil {
		return err
	}

	var err error
	if q.lat, err = strconv.ParseFloat(q.Lat, 64); err != nil {
		return err
	}
	if q.day, err = strconv.Atoi(q.Day); err != nil {
		return err
	}
	if q.high, err = strconv.ParseFloat(q.High, 64); err != nil {
		return fmt.Errorf("high %q: %w", q.High, surface.ErrInvalidTemperatureRange)
	}
	if q.low, err = strconv.ParseFloat(q.Low, 64); err != nil {
		return fmt.Errorf("low %q: %w", q.Low, surface.ErrInvalidTemperatureRange)
	}
	return nil
}

// nearestRequest is the body of POST /stations/nearest.
type nearestRequest struct {
	Query      geo.Coordinate `json:"query"`
	Candidates []geo.Station  `json:"candidates"`
}
