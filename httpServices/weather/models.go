package httpServices

// ForecastResponse mirrors the Open-Meteo daily forecast payload, limited to
// the fields the slot listing actually surfaces.
type ForecastResponse struct {
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Daily     ForecastDaily `json:"daily"`
}

type ForecastDaily struct {
	Time                     []string  `json:"time"`
	WeatherCode              []int     `json:"weathercode"`
	TemperatureMax           []float64 `json:"temperature_2m_max"`
	TemperatureMin           []float64 `json:"temperature_2m_min"`
	PrecipitationProbability []int     `json:"precipitation_probability_max"`
}

// DayForecast is the flattened forecast for a single date.
type DayForecast struct {
	Date                     string  `json:"date"`
	WeatherCode              int     `json:"weather_code"`
	TemperatureMax           float64 `json:"temperature_max"`
	TemperatureMin           float64 `json:"temperature_min"`
	PrecipitationProbability int     `json:"precipitation_probability"`
}
