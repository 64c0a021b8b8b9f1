package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/surface-temperature/internal/geo"
	"github.com/i474232898/surface-temperature/internal/weather"
)

const (
	cwaAreaDataset    = "F-D0047-091" // township forecast, looked up by geocode
	cwaStationDataset = "O-A0001-001" // automatic station observations
	cwaCountyDataset  = "F-C0032-001" // 36-hour county/city forecast

	// CWA reports missing readings as -99 (sometimes -999).
	cwaMissing = -90.0
)

// CWAProvider reads the Taiwan Central Weather Administration open data API.
// It implements weather.AreaForecaster, weather.StationLister and
// weather.RegionForecaster.
type CWAProvider struct {
	name    string
	apiKey  string
	baseURL string
	client  *jsonClient
}

func NewCWAProvider(client *http.Client, apiKey string) *CWAProvider {
	return &CWAProvider{
		name:    "cwa",
		apiKey:  apiKey,
		baseURL: "https://opendata.cwa.gov.tw/api/v1/rest/datastore",
		client:  newJSONClient("cwa", client, DefaultBackoff),
	}
}

// WithBaseURL points the provider at another endpoint, e.g. a test server.
func (p *CWAProvider) WithBaseURL(u string) *CWAProvider {
	p.baseURL = strings.TrimRight(u, "/")
	return p
}

func (p *CWAProvider) Name() string {
	return p.name
}

func (p *CWAProvider) get(ctx context.Context, dataset string, values url.Values, out any) error {
	if p.apiKey == "" {
		return fmt.Errorf("cwa api key is not configured")
	}
	values.Set("Authorization", p.apiKey)
	values.Set("format", "JSON")
	if err := p.client.getJSON(ctx, p.baseURL+"/"+dataset, values, out); err != nil {
		return fmt.Errorf("%s %s: %w", p.name, dataset, err)
	}
	return nil
}

type cwaElementValue struct {
	Value string `json:"value"`
}

type cwaTimeSlot struct {
	StartTime    string            `json:"startTime"`
	ElementValue []cwaElementValue `json:"elementValue"`
}

type cwaWeatherElement struct {
	ElementName string        `json:"elementName"`
	Time        []cwaTimeSlot `json:"time"`
}

// AreaForecast returns the first MaxT/MinT slot of the township containing coord.
func (p *CWAProvider) AreaForecast(ctx context.Context, coord geo.Coordinate) (weather.DailyForecast, error) {
	values := url.Values{}
	values.Set("limit", "1")
	values.Set("geocode", fmt.Sprintf("%f,%f", coord.Lon, coord.Lat))

	var payload struct {
		Records struct {
			Locations []struct {
				Location []struct {
					LocationName   string              `json:"locationName"`
					WeatherElement []cwaWeatherElement `json:"weatherElement"`
				} `json:"location"`
			} `json:"locations"`
		} `json:"records"`
	}
	if err := p.get(ctx, cwaAreaDataset, values, &payload); err != nil {
		return weather.DailyForecast{}, err
	}

	locs := payload.Records.Locations
	if len(locs) == 0 || len(locs[0].Location) == 0 {
		return weather.DailyForecast{}, fmt.Errorf("%s: %w", p.name, weather.ErrNoData)
	}
	elements := locs[0].Location[0].WeatherElement

	high, issued, err := firstAreaValue(elements, "MaxT")
	if err != nil {
		return weather.DailyForecast{}, fmt.Errorf("%s: MaxT: %w", p.name, err)
	}
	low, _, err := firstAreaValue(elements, "MinT")
	if err != nil {
		return weather.DailyForecast{}, fmt.Errorf("%s: MinT: %w", p.name, err)
	}

	return weather.DailyForecast{HighC: high, LowC: low, Source: p.name, IssuedAt: issued}, nil
}

func firstAreaValue(elements []cwaWeatherElement, name string) (float64, time.Time, error) {
	for _, el := range elements {
		if el.ElementName != name {
			continue
		}
		if len(el.Time) == 0 || len(el.Time[0].ElementValue) == 0 {
			return 0, time.Time{}, weather.ErrNoData
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(el.Time[0].ElementValue[0].Value), 64)
		if err != nil {
			return 0, time.Time{}, fmt.Errorf("parse %q: %w", el.Time[0].ElementValue[0].Value, err)
		}
		return v, parseCWATime(el.Time[0].StartTime), nil
	}
	return 0, time.Time{}, weather.ErrNoData
}

// Stations returns every automatic station with WGS84 coordinates. Missing
// readings are left nil.
func (p *CWAProvider) Stations(ctx context.Context) ([]geo.Station, error) {
	var payload struct {
		Records struct {
			Station []struct {
				StationName string `json:"StationName"`
				StationID   string `json:"StationId"`
				GeoInfo     struct {
					CountyName  string          `json:"CountyName"`
					Coordinates []cwaCoordinate `json:"Coordinates"`
				} `json:"GeoInfo"`
				WeatherElement struct {
					AirTemperature   float64 `json:"AirTemperature"`
					RelativeHumidity float64 `json:"RelativeHumidity"`
				} `json:"WeatherElement"`
			} `json:"Station"`
		} `json:"records"`
	}
	if err := p.get(ctx, cwaStationDataset, url.Values{}, &payload); err != nil {
		return nil, err
	}

	stations := make([]geo.Station, 0, len(payload.Records.Station))
	for _, s := range payload.Records.Station {
		coord, ok := pickWGS84(s.GeoInfo.Coordinates)
		if !ok {
			continue
		}
		stations = append(stations, geo.Station{
			ID:           s.StationID,
			Name:         s.StationName,
			Region:       s.GeoInfo.CountyName,
			Coordinate:   coord,
			TemperatureC: reading(s.WeatherElement.AirTemperature),
			HumidityPct:  reading(s.WeatherElement.RelativeHumidity),
		})
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("%s: %w", p.name, weather.ErrNoData)
	}
	return stations, nil
}

type cwaCoordinate struct {
	CoordinateName   string  `json:"CoordinateName"`
	StationLatitude  float64 `json:"StationLatitude"`
	StationLongitude float64 `json:"StationLongitude"`
}

func pickWGS84(coords []cwaCoordinate) (geo.Coordinate, bool) {
	for _, c := range coords {
		if c.CoordinateName == "WGS84" {
			return geo.Coordinate{Lat: c.StationLatitude, Lon: c.StationLongitude}, true
		}
	}
	return geo.Coordinate{}, false
}

func reading(v float64) *float64 {
	if v <= cwaMissing {
		return nil
	}
	return &v
}

// RegionForecast returns the first MaxT/MinT period of a county forecast.
// region is a county or city name such as 臺北市.
func (p *CWAProvider) RegionForecast(ctx context.Context, region string) (weather.DailyForecast, error) {
	region = normalizeCountyName(region)
	values := url.Values{}
	values.Set("locationName", region)
	values.Set("elementName", "MaxT,MinT")

	var payload struct {
		Records struct {
			Location []struct {
				LocationName   string `json:"locationName"`
				WeatherElement []struct {
					ElementName string `json:"elementName"`
					Time        []struct {
						StartTime string `json:"startTime"`
						Parameter struct {
							ParameterName string `json:"parameterName"`
						} `json:"parameter"`
					} `json:"time"`
				} `json:"weatherElement"`
			} `json:"location"`
		} `json:"records"`
	}
	if err := p.get(ctx, cwaCountyDataset, values, &payload); err != nil {
		return weather.DailyForecast{}, err
	}

	for _, loc := range payload.Records.Location {
		if loc.LocationName != region {
			continue
		}
		f := weather.DailyForecast{Source: p.name + "-county"}
		var found int
		for _, el := range loc.WeatherElement {
			if len(el.Time) == 0 {
				continue
			}
			v, err := strconv.ParseFloat(el.Time[0].Parameter.ParameterName, 64)
			if err != nil {
				return weather.DailyForecast{}, fmt.Errorf("%s: parse %s: %w", p.name, el.ElementName, err)
			}
			switch el.ElementName {
			case "MaxT":
				f.HighC = v
				f.IssuedAt = parseCWATime(el.Time[0].StartTime)
				found++
			case "MinT":
				f.LowC = v
				found++
			}
		}
		if found == 2 {
			return f, nil
		}
	}
	return weather.DailyForecast{}, fmt.Errorf("%s: region %s: %w", p.name, region, weather.ErrNoData)
}

// normalizeCountyName maps the simplified 台 to the official 臺 used by CWA.
func normalizeCountyName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), "台", "臺")
}

var cwaLocalZone = time.FixedZone("CST", 8*60*60)

func parseCWATime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.ParseInLocation(layout, s, cwaLocalZone); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
