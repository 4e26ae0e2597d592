package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/mutker/sysfeed/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyWeather(t *testing.T) {
	tests := []struct {
		code     int
		day      bool
		expected WeatherStatus
	}{
		{0, true, ClearDay},
		{0, false, ClearNight},
		{1, true, CloudyDay},
		{50, false, CloudyNight},
		{51, true, LightRainDay},
		{62, false, LightRainNight},
		{63, true, HeavyRainDay},
		{65, true, HeavyRainDay},
		{70, false, HeavyRainNight},
		{71, true, SnowDay},
		{79, false, SnowNight},
		{80, true, HeavyRainDay},
		{84, false, HeavyRainNight},
		{85, true, SnowDay},
		{94, false, SnowNight},
		{95, true, ThunderDay},
		{96, false, ThunderNight},
		{1000, false, ThunderNight},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ClassifyWeather(tt.code, tt.day), "code %d day %v", tt.code, tt.day)
	}
}

func TestCelsiusToFahrenheit(t *testing.T) {
	assert.InDelta(t, 32.0, CelsiusToFahrenheit(0), 0.0001)
	assert.InDelta(t, 212.0, CelsiusToFahrenheit(100), 0.0001)
	assert.InDelta(t, -40.0, CelsiusToFahrenheit(-40), 0.0001)
}

func TestWeatherRefreshWithConfiguredCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "48.8566", q.Get("latitude"))
		assert.Equal(t, "2.3522", q.Get("longitude"))
		assert.Equal(t, "true", q.Get("current_weather"))
		assert.Equal(t, "celsius", q.Get("temperature_unit"))
		_, _ = w.Write([]byte(`{"current_weather":{"temperature":20,"windspeed":11.5,"weathercode":65,"is_day":1}}`))
	}))
	defer server.Close()

	lat, lon := 48.8566, 2.3522
	cfg := WeatherConfig{Common: Common{RefreshInterval: 1000}, Latitude: &lat, Longitude: &lon}
	p := newWeatherProvider(base{kind: KindWeather}, cfg, server.Client(), server.URL, nil)

	out, err := p.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, WeatherOutput{
		IsDaytime:      true,
		Status:         HeavyRainDay,
		CelsiusTemp:    20,
		FahrenheitTemp: 68,
		WindSpeed:      11.5,
	}, out)
}

func TestWeatherRefreshFallsBackToIPLookup(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ip", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ip":"1.2.3.4","city":"Oslo","country":"NO","loc":"59.9,10.7"}`))
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "59.9", r.URL.Query().Get("latitude"))
		_, _ = w.Write([]byte(`{"current_weather":{"temperature":-3,"windspeed":2,"weathercode":96,"is_day":0}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ip := newIPProvider(base{kind: KindIP}, server.Client(), server.URL+"/ip")
	p := newWeatherProvider(base{kind: KindWeather}, WeatherConfig{}, server.Client(), server.URL+"/forecast", ip)

	out, err := p.Refresh(context.Background())
	require.NoError(t, err)

	weather := out.(WeatherOutput)
	assert.Equal(t, ThunderNight, weather.Status)
	assert.False(t, weather.IsDaytime)
}

func TestWeatherRefreshUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	lat, lon := 0.0, 0.0
	cfg := WeatherConfig{Latitude: &lat, Longitude: &lon}
	p := newWeatherProvider(base{kind: KindWeather}, cfg, server.Client(), server.URL, nil)

	_, err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsRefreshError(err))
}
