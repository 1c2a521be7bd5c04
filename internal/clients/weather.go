package clients

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"backend/internal/models"
)

// WeatherClient fetches current conditions from an open-meteo compatible
// forecast API.
type WeatherClient struct {
	client *resty.Client
}

func NewWeatherClient(baseURL string) *WeatherClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second)

	return &WeatherClient{client: c}
}

type currentConditions struct {
	Temperature              *float64 `json:"temperature_2m"`
	Humidity                 *float64 `json:"relative_humidity_2m"`
	WeatherCode              *int     `json:"weather_code"`
	WindSpeed                *float64 `json:"wind_speed_10m"`
	PrecipitationProbability *float64 `json:"precipitation_probability"`
}

type forecastResponse struct {
	Current currentConditions `json:"current"`
}

// weatherCodeText maps WMO weather codes onto short condition labels.
var weatherCodeText = map[int]string{
	0: "clear", 1: "mostly clear", 2: "partly cloudy", 3: "overcast",
	45: "fog", 48: "fog", 51: "drizzle", 53: "drizzle", 55: "drizzle",
	61: "rain", 63: "rain", 65: "heavy rain", 71: "snow", 73: "snow",
	75: "heavy snow", 80: "showers", 81: "showers", 82: "heavy showers",
	95: "thunderstorm", 96: "thunderstorm", 99: "thunderstorm",
}

// Current returns the present weather at the coordinates, shaped for the
// user context store.
func (w *WeatherClient) Current(ctx context.Context, latitude, longitude float64) (*models.Weather, error) {
	var out forecastResponse
	resp, err := w.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":  strconv.FormatFloat(latitude, 'f', 4, 64),
			"longitude": strconv.FormatFloat(longitude, 'f', 4, 64),
			"current":   "temperature_2m,relative_humidity_2m,weather_code,wind_speed_10m,precipitation_probability",
		}).
		SetResult(&out).
		Get("/v1/forecast")
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("weather status %d: %s", resp.StatusCode(), resp.String())
	}

	weather := &models.Weather{
		Temperature:              out.Current.Temperature,
		Humidity:                 out.Current.Humidity,
		WindSpeed:                out.Current.WindSpeed,
		PrecipitationProbability: out.Current.PrecipitationProbability,
		Source:                   "open-meteo",
	}
	if out.Current.WeatherCode != nil {
		weather.Condition = weatherCodeText[*out.Current.WeatherCode]
	}
	return weather, nil
}
