package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/surface-temperature/internal/geo"
	"github.com/i474232898/surface-temperature/internal/weather"
)

var fastBackoff = BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func TestJSONClientRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newJSONClient("test", srv.Client(), fastBackoff)
	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.getJSON(context.Background(), srv.URL, nil, &out))
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestJSONClientDoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newJSONClient("test", srv.Client(), fastBackoff)
	err := c.getJSON(context.Background(), srv.URL, nil, &struct{}{})
	assert.ErrorIs(t, err, errUnexpected)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestJSONClientGivesUpAfterMaxRetries(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newJSONClient("test", srv.Client(), fastBackoff)
	err := c.getJSON(context.Background(), srv.URL, nil, &struct{}{})
	assert.ErrorIs(t, err, errRateLimited)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestJSONClientInvalidConfig(t *testing.T) {
	c := newJSONClient("test", nil, BackoffConfig{MaxRetries: 1})
	assert.ErrorIs(t, c.getJSON(context.Background(), "http://example.invalid", nil, &struct{}{}), errInvalidConfig)
}

func TestOpenMeteoAreaForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "25.0330", q.Get("latitude"))
		assert.Equal(t, "121.5654", q.Get("longitude"))
		assert.Equal(t, "temperature_2m_max,temperature_2m_min", q.Get("daily"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"daily":{"time":["2025-06-21"],"temperature_2m_max":[34.2],"temperature_2m_min":[26.4]}}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client()).WithBaseURL(srv.URL)
	f, err := p.AreaForecast(context.Background(), geo.Coordinate{Lat: 25.0330, Lon: 121.5654})
	require.NoError(t, err)
	assert.Equal(t, 34.2, f.HighC)
	assert.Equal(t, 26.4, f.LowC)
	assert.Equal(t, "openmeteo", f.Source)
	assert.Equal(t, time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC), f.IssuedAt)
}

func TestOpenMeteoMissingValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"daily":{"time":["2025-06-21"],"temperature_2m_max":[null],"temperature_2m_min":[20]}}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client()).WithBaseURL(srv.URL)
	_, err := p.AreaForecast(context.Background(), geo.Coordinate{Lat: 25, Lon: 121})
	assert.ErrorIs(t, err, weather.ErrNoData)
}

const cwaAreaBody = `{
  "success": "true",
  "records": {
    "locations": [{
      "location": [{
        "locationName": "中正區",
        "weatherElement": [
          {"elementName": "MinT", "time": [{"startTime": "2025-06-21 06:00:00", "elementValue": [{"value": "26"}]}]},
          {"elementName": "MaxT", "time": [{"startTime": "2025-06-21 06:00:00", "elementValue": [{"value": "34"}]}]}
        ]
      }]
    }]
  }
}`

const cwaStationBody = `{
  "records": {
    "Station": [
      {
        "StationName": "臺北", "StationId": "466920",
        "GeoInfo": {"CountyName": "臺北市", "Coordinates": [
          {"CoordinateName": "TWD67", "StationLatitude": 25.0, "StationLongitude": 121.0},
          {"CoordinateName": "WGS84", "StationLatitude": 25.0377, "StationLongitude": 121.5149}
        ]},
        "WeatherElement": {"AirTemperature": 31.2, "RelativeHumidity": 68}
      },
      {
        "StationName": "高雄", "StationId": "467440",
        "GeoInfo": {"CountyName": "高雄市", "Coordinates": [
          {"CoordinateName": "WGS84", "StationLatitude": 22.6273, "StationLongitude": 120.3014}
        ]},
        "WeatherElement": {"AirTemperature": -99, "RelativeHumidity": 75}
      },
      {
        "StationName": "nowhere", "StationId": "000000",
        "GeoInfo": {"CountyName": "", "Coordinates": []},
        "WeatherElement": {"AirTemperature": 20, "RelativeHumidity": 50}
      }
    ]
  }
}`

const cwaCountyBody = `{
  "records": {
    "location": [{
      "locationName": "臺北市",
      "weatherElement": [
        {"elementName": "MaxT", "time": [{"startTime": "2025-06-21 06:00:00", "parameter": {"parameterName": "35"}}]},
        {"elementName": "MinT", "time": [{"startTime": "2025-06-21 06:00:00", "parameter": {"parameterName": "27"}}]}
      ]
    }]
  }
}`

func newCWATestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("Authorization") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/" + cwaAreaDataset:
			assert.Equal(t, "121.565400,25.033000", q.Get("geocode"))
			w.Write([]byte(cwaAreaBody))
		case "/" + cwaStationDataset:
			w.Write([]byte(cwaStationBody))
		case "/" + cwaCountyDataset:
			if q.Get("locationName") != "臺北市" {
				w.Write([]byte(`{"records":{"location":[]}}`))
				return
			}
			w.Write([]byte(cwaCountyBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestCWAAreaForecast(t *testing.T) {
	srv := newCWATestServer(t)
	defer srv.Close()

	p := NewCWAProvider(srv.Client(), "test-key").WithBaseURL(srv.URL + "/")
	f, err := p.AreaForecast(context.Background(), geo.Coordinate{Lat: 25.033, Lon: 121.5654})
	require.NoError(t, err)
	assert.Equal(t, 34.0, f.HighC)
	assert.Equal(t, 26.0, f.LowC)
	assert.Equal(t, time.Date(2025, 6, 20, 22, 0, 0, 0, time.UTC), f.IssuedAt)
}

func TestCWAStations(t *testing.T) {
	srv := newCWATestServer(t)
	defer srv.Close()

	p := NewCWAProvider(srv.Client(), "test-key").WithBaseURL(srv.URL)
	stations, err := p.Stations(context.Background())
	require.NoError(t, err)
	require.Len(t, stations, 2)

	assert.Equal(t, "466920", stations[0].ID)
	assert.Equal(t, "臺北市", stations[0].Region)
	assert.Equal(t, geo.Coordinate{Lat: 25.0377, Lon: 121.5149}, stations[0].Coordinate)
	require.NotNil(t, stations[0].TemperatureC)
	assert.Equal(t, 31.2, *stations[0].TemperatureC)

	assert.Nil(t, stations[1].TemperatureC)
	require.NotNil(t, stations[1].HumidityPct)
	assert.Equal(t, 75.0, *stations[1].HumidityPct)
}

func TestCWARegionForecast(t *testing.T) {
	srv := newCWATestServer(t)
	defer srv.Close()

	p := NewCWAProvider(srv.Client(), "test-key").WithBaseURL(srv.URL)
	f, err := p.RegionForecast(context.Background(), "台北市")
	require.NoError(t, err)
	assert.Equal(t, weather.DailyForecast{
		HighC:    35,
		LowC:     27,
		Source:   "cwa-county",
		IssuedAt: time.Date(2025, 6, 20, 22, 0, 0, 0, time.UTC),
	}, f)

	_, err = p.RegionForecast(context.Background(), "花蓮縣")
	assert.ErrorIs(t, err, weather.ErrNoData)
}

func TestCWARequiresKey(t *testing.T) {
	p := NewCWAProvider(nil, "")
	_, err := p.Stations(context.Background())
	assert.Error(t, err)
}

func TestCWAWithStrategy(t *testing.T) {
	srv := newCWATestServer(t)
	defer srv.Close()

	p := NewCWAProvider(srv.Client(), "test-key").WithBaseURL(srv.URL)
	obs, err := weather.NearestStationStrategy{Stations: p, Forecasts: p}.
		Observe(context.Background(), geo.Coordinate{Lat: 25.033, Lon: 121.5654})
	require.NoError(t, err)
	assert.Equal(t, "臺北", obs.Station.Name)
	assert.Equal(t, 35.0, obs.Forecast.HighC)
}

func TestGoogleRegionResolver(t *testing.T) {
	r := NewGoogleRegionResolver("key")
	r.reverse = func(loc geocoder.Location) ([]geocoder.Address, error) {
		assert.Equal(t, 25.033, loc.Latitude)
		assert.Equal(t, "key", geocoder.ApiKey)
		return []geocoder.Address{{City: "中正區", State: "台北市", Country: "Taiwan"}}, nil
	}

	region, err := r.ResolveRegion(context.Background(), geo.Coordinate{Lat: 25.033, Lon: 121.5654})
	require.NoError(t, err)
	assert.Equal(t, "臺北市", region)
}

func TestGoogleRegionResolverErrors(t *testing.T) {
	_, err := NewGoogleRegionResolver("").ResolveRegion(context.Background(), geo.Coordinate{})
	assert.Error(t, err)

	r := NewGoogleRegionResolver("key")
	r.reverse = func(geocoder.Location) ([]geocoder.Address, error) { return nil, nil }
	_, err = r.ResolveRegion(context.Background(), geo.Coordinate{})
	assert.ErrorIs(t, err, weather.ErrNoData)

	r.reverse = func(geocoder.Location) ([]geocoder.Address, error) { return nil, assert.AnError }
	_, err = r.ResolveRegion(context.Background(), geo.Coordinate{})
	assert.ErrorIs(t, err, assert.AnError)
}
