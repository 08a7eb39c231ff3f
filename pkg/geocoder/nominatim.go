package geocoder

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/dblive/pkg/ctdf"
	"golang.org/x/time/rate"
	resty "gopkg.in/resty.v1"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	defaultUserAgent    = "DB-Live-Tracker/1.0"
	defaultTimeout      = 10 * time.Second
)

type nominatimResult struct {
	Latitude  string `json:"lat"`
	Longitude string `json:"lon"`
}

// Nominatim geocodes German station names against OpenStreetMap. Requests are
// limited to one per second as the public instance requires.
type Nominatim struct {
	client  *resty.Client
	limiter *rate.Limiter
	Country string
}

func NewNominatim(baseURL string) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}

	client := resty.New().
		SetHostURL(baseURL).
		SetTimeout(defaultTimeout).
		SetLogger(log.Logger).
		SetHeader("User-Agent", defaultUserAgent)

	return &Nominatim{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		Country: "Germany",
	}
}

func (n *Nominatim) queries(stationName string) []string {
	return []string{
		fmt.Sprintf("%s, %s", stationName, n.Country),
		fmt.Sprintf("%s Bahnhof, %s", stationName, n.Country),
		fmt.Sprintf("Bahnhof %s, %s", stationName, n.Country),
	}
}

// Geocode returns the location of a station, or nil when no query variant finds it
func (n *Nominatim) Geocode(ctx context.Context, stationName string) (*ctdf.Location, error) {
	for _, query := range n.queries(stationName) {
		if err := n.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		location, err := n.search(ctx, query)
		if err != nil {
			log.Warn().Err(err).Str("query", query).Msg("Geocoding failed")
			continue
		}

		if location != nil {
			log.Debug().Str("station", stationName).Float64("lat", location.Latitude()).Float64("lon", location.Longitude()).Msg("Geocoded station")
			return location, nil
		}
	}

	return nil, nil
}

func (n *Nominatim) search(ctx context.Context, query string) (*ctdf.Location, error) {
	var results []nominatimResult

	resp, err := n.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":            query,
			"format":       "json",
			"limit":        "1",
			"countrycodes": "de",
		}).
		SetResult(&results).
		Get("/search")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("nominatim returned HTTP %d", resp.StatusCode())
	}

	if len(results) == 0 {
		return nil, nil
	}

	latitude, err := strconv.ParseFloat(results[0].Latitude, 64)
	if err != nil {
		return nil, err
	}
	longitude, err := strconv.ParseFloat(results[0].Longitude, 64)
	if err != nil {
		return nil, err
	}

	return ctdf.NewLocation(latitude, longitude), nil
}
