package geo

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusKm is the spherical Earth radius used for distance computation.
const EarthRadiusKm = 6371.0

// ErrEmptyCandidateSet is returned when FindNearest is given no candidates.
var ErrEmptyCandidateSet = errors.New("geo: empty candidate set")

// Coordinate is a point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Key returns a canonical string key for indexing this coordinate in stores.
func (c Coordinate) Key() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// Station is an observation site. Readings are optional and Region names the
// administrative area used to look up a regional forecast.
type Station struct {
	ID           string     `json:"id,omitempty"`
	Name         string     `json:"name"`
	Region       string     `json:"region,omitempty"`
	Coordinate   Coordinate `json:"coordinate"`
	TemperatureC *float64   `json:"temperatureC,omitempty"`
	HumidityPct  *float64   `json:"humidityPercent,omitempty"`
}

// DistanceKm returns the great-circle (haversine) distance between a and b.
func DistanceKm(a, b Coordinate) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	// Rounding can push h a hair above 1 for antipodal points.
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// FindNearest returns the candidate closest to query. On equal distance the
// earlier candidate wins.
func FindNearest(query Coordinate, candidates []Station) (Station, error) {
	st, _, err := FindNearestWithDistance(query, candidates)
	return st, err
}

// FindNearestWithDistance is FindNearest that also reports the distance in km.
func FindNearestWithDistance(query Coordinate, candidates []Station) (Station, float64, error) {
	if len(candidates) == 0 {
		return Station{}, 0, ErrEmptyCandidateSet
	}

	best := 0
	bestDist := DistanceKm(query, candidates[0].Coordinate)
	for i := 1; i < len(candidates); i++ {
		d := DistanceKm(query, candidates[i].Coordinate)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return candidates[best], bestDist, nil
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
