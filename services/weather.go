package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"closetapi/models"
)

const DefaultWeatherURL = "https://api.open-meteo.com/v1/forecast"

// FallbackWeather is used when a profile has no location or the lookup fails.
var FallbackWeather = models.Weather{Temperature: 72, Description: "Unknown"}

var weatherCodes = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Rime fog",
	51: "Light drizzle",
	53: "Drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Rain",
	65: "Heavy rain",
	71: "Slight snow fall",
	73: "Snow fall",
	75: "Heavy snow fall",
	80: "Rain showers",
	95: "Thunderstorm",
}

type WeatherProvider interface {
	Current(ctx context.Context, lat, lon float64) (models.Weather, error)
}

// OpenMeteoService reads the current weather in fahrenheit from Open-Meteo.
type OpenMeteoService struct {
	Client  *http.Client
	BaseURL string
}

func NewOpenMeteoService(baseURL string) *OpenMeteoService {
	if baseURL == "" {
		baseURL = DefaultWeatherURL
	}
	return &OpenMeteoService{
		Client:  &http.Client{Timeout: 10 * time.Second},
		BaseURL: baseURL,
	}
}

type openMeteoResponse struct {
	CurrentWeather *struct {
		Temperature float64 `json:"temperature"`
		WeatherCode int     `json:"weathercode"`
	} `json:"current_weather"`
}

func (s *OpenMeteoService) Current(ctx context.Context, lat, lon float64) (models.Weather, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	query.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	query.Set("current_weather", "true")
	query.Set("temperature_unit", "fahrenheit")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return models.Weather{}, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return models.Weather{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.Weather{}, fmt.Errorf("weather API error: %d", resp.StatusCode)
	}

	var payload openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.Weather{}, fmt.Errorf("decode weather: %w", err)
	}
	if payload.CurrentWeather == nil {
		return models.Weather{}, fmt.Errorf("weather response without current_weather")
	}

	description, ok := weatherCodes[payload.CurrentWeather.WeatherCode]
	if !ok {
		description = "Unknown"
	}
	return models.Weather{
		Temperature: payload.CurrentWeather.Temperature,
		Description: description,
	}, nil
}
