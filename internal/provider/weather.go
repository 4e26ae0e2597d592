package provider

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// WeatherStatus is a day/night aware weather category.
type WeatherStatus string

const (
	ClearDay       WeatherStatus = "clear_day"
	ClearNight     WeatherStatus = "clear_night"
	CloudyDay      WeatherStatus = "cloudy_day"
	CloudyNight    WeatherStatus = "cloudy_night"
	LightRainDay   WeatherStatus = "light_rain_day"
	LightRainNight WeatherStatus = "light_rain_night"
	HeavyRainDay   WeatherStatus = "heavy_rain_day"
	HeavyRainNight WeatherStatus = "heavy_rain_night"
	SnowDay        WeatherStatus = "snow_day"
	SnowNight      WeatherStatus = "snow_night"
	ThunderDay     WeatherStatus = "thunder_day"
	ThunderNight   WeatherStatus = "thunder_night"
)

// ClassifyWeather maps a WMO weather code to a status. Bands:
// 0 clear, 1-50 cloudy, 51-62 light rain, 63-70 heavy rain, 71-79 snow,
// 80-84 heavy rain (showers), 85-94 snow (showers), 95+ thunder.
func ClassifyWeather(code int, isDaytime bool) WeatherStatus {
	pick := func(day, night WeatherStatus) WeatherStatus {
		if isDaytime {
			return day
		}
		return night
	}

	switch {
	case code <= 0:
		return pick(ClearDay, ClearNight)
	case code <= 50:
		return pick(CloudyDay, CloudyNight)
	case code <= 62:
		return pick(LightRainDay, LightRainNight)
	case code <= 70:
		return pick(HeavyRainDay, HeavyRainNight)
	case code <= 79:
		return pick(SnowDay, SnowNight)
	case code <= 84:
		return pick(HeavyRainDay, HeavyRainNight)
	case code <= 94:
		return pick(SnowDay, SnowNight)
	default:
		return pick(ThunderDay, ThunderNight)
	}
}

// CelsiusToFahrenheit converts a temperature.
func CelsiusToFahrenheit(celsius float64) float64 {
	return celsius*9/5 + 32
}

type openMeteoResponse struct {
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
		WeatherCode int     `json:"weathercode"`
		IsDay       int     `json:"is_day"`
	} `json:"current_weather"`
}

type weatherProvider struct {
	base
	latitude  *float64
	longitude *float64
	client    *http.Client
	endpoint  string
	ip        *ipProvider
}

func newWeatherProvider(b base, cfg WeatherConfig, client *http.Client, endpoint string, ip *ipProvider) *weatherProvider {
	return &weatherProvider{
		base:      b,
		latitude:  cfg.Latitude,
		longitude: cfg.Longitude,
		client:    client,
		endpoint:  endpoint,
		ip:        ip,
	}
}

func (p *weatherProvider) Refresh(ctx context.Context) (Output, error) {
	lat, lon, err := p.coordinates(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("temperature_unit", "celsius")
	query.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("current_weather", "true")
	query.Set("daily", "sunset,sunrise")
	query.Set("timezone", "auto")

	endpoint, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, refreshFailed(err)
	}
	endpoint.RawQuery = query.Encode()

	var res openMeteoResponse
	if err := getJSON(ctx, p.client, endpoint.String(), &res); err != nil {
		return nil, refreshFailed(err)
	}

	current := res.CurrentWeather
	isDaytime := current.IsDay == 1

	return WeatherOutput{
		IsDaytime:      isDaytime,
		Status:         ClassifyWeather(current.WeatherCode, isDaytime),
		CelsiusTemp:    current.Temperature,
		FahrenheitTemp: round2(CelsiusToFahrenheit(current.Temperature)),
		WindSpeed:      current.WindSpeed,
	}, nil
}

// coordinates uses the configured position, or a one-shot IP lookup.
func (p *weatherProvider) coordinates(ctx context.Context) (float64, float64, error) {
	if p.latitude != nil && p.longitude != nil {
		return *p.latitude, *p.longitude, nil
	}

	loc, err := p.ip.lookup(ctx)
	if err != nil {
		return 0, 0, err
	}

	return loc.ApproxLatitude, loc.ApproxLongitude, nil
}
