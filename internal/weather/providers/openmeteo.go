package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/i474232898/surface-temperature/internal/geo"
	"github.com/i474232898/surface-temperature/internal/weather"
)

// OpenMeteoProvider implements weather.AreaForecaster on Open-Meteo's daily
// forecast. No API key is needed.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	client  *jsonClient
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		client:  newJSONClient("openmeteo", client, DefaultBackoff),
	}
}

// WithBaseURL points the provider at another endpoint, e.g. a test server.
func (p *OpenMeteoProvider) WithBaseURL(u string) *OpenMeteoProvider {
	p.baseURL = u
	return p
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) AreaForecast(ctx context.Context, coord geo.Coordinate) (weather.DailyForecast, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(coord.Lat, 'f', 4, 64))
	values.Set("longitude", strconv.FormatFloat(coord.Lon, 'f', 4, 64))
	values.Set("daily", "temperature_2m_max,temperature_2m_min")
	values.Set("timezone", "auto")
	values.Set("forecast_days", "1")

	var payload struct {
		Daily struct {
			Time []string   `json:"time"`
			Max  []*float64 `json:"temperature_2m_max"`
			Min  []*float64 `json:"temperature_2m_min"`
		} `json:"daily"`
	}
	if err := p.client.getJSON(ctx, p.baseURL, values, &payload); err != nil {
		return weather.DailyForecast{}, fmt.Errorf("%s: %w", p.name, err)
	}

	d := payload.Daily
	if len(d.Max) == 0 || len(d.Min) == 0 || d.Max[0] == nil || d.Min[0] == nil {
		return weather.DailyForecast{}, fmt.Errorf("%s: %w", p.name, weather.ErrNoData)
	}

	issued := time.Now().UTC()
	if len(d.Time) > 0 {
		if ts, err := time.Parse("2006-01-02", d.Time[0]); err == nil {
			issued = ts
		}
	}

	return weather.DailyForecast{
		HighC:    *d.Max[0],
		LowC:     *d.Min[0],
		Source:   p.name,
		IssuedAt: issued,
	}, nil
}
