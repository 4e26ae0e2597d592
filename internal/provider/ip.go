package provider

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

type ipinfoResponse struct {
	IP      string `json:"ip"`
	City    string `json:"city"`
	Country string `json:"country"`
	Loc     string `json:"loc"`
}

type ipProvider struct {
	base
	client   *http.Client
	endpoint string
}

func newIPProvider(b base, client *http.Client, endpoint string) *ipProvider {
	return &ipProvider{base: b, client: client, endpoint: endpoint}
}

func (p *ipProvider) Refresh(ctx context.Context) (Output, error) {
	out, err := p.lookup(ctx)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// lookup performs one geolocation query. The weather provider calls it
// directly when no coordinates are configured.
func (p *ipProvider) lookup(ctx context.Context) (IPOutput, error) {
	var res ipinfoResponse
	if err := getJSON(ctx, p.client, p.endpoint, &res); err != nil {
		return IPOutput{}, refreshFailed(err)
	}

	lat, lon, err := ParseLocation(res.Loc)
	if err != nil {
		return IPOutput{}, err
	}

	return IPOutput{
		Address:         res.IP,
		ApproxCity:      res.City,
		ApproxCountry:   res.Country,
		ApproxLatitude:  lat,
		ApproxLongitude: lon,
	}, nil
}

// ParseLocation splits a "lat,long" pair. Anything else is a refresh error.
func ParseLocation(loc string) (float64, float64, error) {
	parts := strings.Split(loc, ",")
	if len(parts) != 2 {
		return 0, 0, refreshFailedMsg("failed to parse location: " + strconv.Quote(loc))
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, refreshFailedMsg("failed to parse latitude: " + strconv.Quote(parts[0]))
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, refreshFailedMsg("failed to parse longitude: " + strconv.Quote(parts[1]))
	}

	return lat, lon, nil
}
