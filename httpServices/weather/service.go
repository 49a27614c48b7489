package httpServices

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

type WeatherClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string) *WeatherClient {
	return &WeatherClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

// RequestDailyForecast fetches the daily forecast for the given coordinates
// covering today through today+days.
func (c *WeatherClient) RequestDailyForecast(latitude, longitude float64, days int) (*ForecastResponse, error) {
	url := fmt.Sprintf(
		"%s/v1/forecast?latitude=%.4f&longitude=%.4f&daily=weathercode,temperature_2m_max,temperature_2m_min,precipitation_probability_max&forecast_days=%d&timezone=auto",
		c.baseURL, latitude, longitude, days,
	)

	httpReq, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("Weather API returned non-OK status: " + resp.Status)
	}

	var apiResp ForecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, err
	}

	return &apiResp, nil
}

// ForecastForDate flattens the daily arrays for one date (format 2006-01-02).
// Returns nil when the date is outside the forecast horizon.
func (c *WeatherClient) ForecastForDate(forecast *ForecastResponse, date string) *DayForecast {
	for i, d := range forecast.Daily.Time {
		if d != date {
			continue
		}
		day := &DayForecast{Date: d}
		if i < len(forecast.Daily.WeatherCode) {
			day.WeatherCode = forecast.Daily.WeatherCode[i]
		}
		if i < len(forecast.Daily.TemperatureMax) {
			day.TemperatureMax = forecast.Daily.TemperatureMax[i]
		}
		if i < len(forecast.Daily.TemperatureMin) {
			day.TemperatureMin = forecast.Daily.TemperatureMin[i]
		}
		if i < len(forecast.Daily.PrecipitationProbability) {
			day.PrecipitationProbability = forecast.Daily.PrecipitationProbability[i]
		}
		return day
	}
	return nil
}
