package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/i474232898/surface-temperature/internal/geo"
	"github.com/i474232898/surface-temperature/internal/weather"
)

// reverseFunc matches geocoder.GeocodingReverse so tests can stub it.
type reverseFunc func(geocoder.Location) ([]geocoder.Address, error)

// the geocoder package keeps its key in a package variable.
var geocoderKeyMu sync.Mutex

// GoogleRegionResolver implements weather.RegionResolver with Google reverse
// geocoding. The region is the first-level administrative area, which for
// Taiwan is the county or special municipality CWA forecasts are keyed by.
type GoogleRegionResolver struct {
	apiKey  string
	reverse reverseFunc
	circuit *gobreaker.CircuitBreaker
}

func NewGoogleRegionResolver(apiKey string) *GoogleRegionResolver {
	return &GoogleRegionResolver{
		apiKey:  apiKey,
		reverse: geocoder.GeocodingReverse,
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "google-geocoder",
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
	}
}

func (r *GoogleRegionResolver) ResolveRegion(ctx context.Context, coord geo.Coordinate) (string, error) {
	if r.apiKey == "" {
		return "", errors.New("google geocoder api key is not configured")
	}

	type result struct {
		addrs []geocoder.Address
		err   error
	}
	done := make(chan result, 1)

	// The library has no context support; run it aside and stop waiting on cancel.
	go func() {
		out, err := r.circuit.Execute(func() (interface{}, error) {
			geocoderKeyMu.Lock()
			geocoder.ApiKey = r.apiKey
			addrs, err := r.reverse(geocoder.Location{Latitude: coord.Lat, Longitude: coord.Lon})
			geocoderKeyMu.Unlock()
			return addrs, err
		})
		addrs, _ := out.([]geocoder.Address)
		done <- result{addrs: addrs, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("reverse geocode %s: %w", coord.Key(), res.err)
		}
		return regionFromAddresses(res.addrs)
	}
}

func regionFromAddresses(addrs []geocoder.Address) (string, error) {
	for _, a := range addrs {
		for _, name := range []string{a.State, a.City, a.County} {
			if name != "" {
				return normalizeCountyName(name), nil
			}
		}
	}
	return "", weather.ErrNoData
}
