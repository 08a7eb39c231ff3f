package timetables

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/dblive/pkg/ctdf"
	"github.com/travigo/dblive/pkg/util"
	"golang.org/x/time/rate"
)

// NewStationGate returns the limiter shared by everything issuing station searches.
// The station endpoint allows roughly one request per second.
func NewStationGate() *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Second), 1)
}

type stationSearchStrategy struct {
	Name   string
	Format Format
	Parse  func([]byte) ([]ctdf.Station, error)
}

var stationSearchStrategies = []stationSearchStrategy{
	{Name: "json", Format: FormatJSON, Parse: parseStationsJSON},
	{Name: "xml", Format: FormatXML, Parse: parseStationsXML},
}

// Client exposes the three Timetables endpoints the pipeline needs
type Client struct {
	fetcher     *Fetcher
	stationGate *rate.Limiter
}

type ClientOption func(*Client)

// WithStationGate shares a station search limiter between clients
func WithStationGate(gate *rate.Limiter) ClientOption {
	return func(c *Client) {
		c.stationGate = gate
	}
}

func NewClient(fetcher *Fetcher, options ...ClientOption) *Client {
	client := &Client{
		fetcher:     fetcher,
		stationGate: NewStationGate(),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// SearchStations looks up stations matching pattern. JSON is asked for first and
// XML is used when the API refuses JSON or returns nothing usable.
func (c *Client) SearchStations(ctx context.Context, pattern string) ([]ctdf.Station, error) {
	path := "/station/" + url.PathEscape(pattern)

	for i, strategy := range stationSearchStrategies {
		last := i == len(stationSearchStrategies)-1

		if c.stationGate != nil {
			if err := c.stationGate.Wait(ctx); err != nil {
				return nil, err
			}
		}

		body, err := c.fetcher.Fetch(ctx, path, strategy.Format)
		if err != nil {
			if !last && canFallBack(err) {
				log.Debug().Err(err).Str("pattern", pattern).Str("format", strategy.Name).Msg("Station search falling back")
				continue
			}

			return nil, err
		}

		stations, err := strategy.Parse(body)
		if err != nil {
			if !last {
				log.Debug().Err(err).Str("pattern", pattern).Str("format", strategy.Name).Msg("Station search response unusable, falling back")
				continue
			}

			return nil, &FetchError{Kind: MalformedError, URL: path, Err: err}
		}

		if len(stations) == 0 && !last {
			continue
		}

		log.Debug().Str("pattern", pattern).Str("format", strategy.Name).Int("stations", len(stations)).Msg("Station search complete")

		return stations, nil
	}

	return []ctdf.Station{}, nil
}

func canFallBack(err error) bool {
	var fetchError *FetchError
	if !errors.As(err, &fetchError) {
		return false
	}

	return fetchError.Kind == MalformedError ||
		(fetchError.Kind == ClientError && fetchError.StatusCode == http.StatusNotAcceptable)
}

// PlanBucket is one hourly slice of the /plan endpoint in Europe/Berlin local time
type PlanBucket struct {
	Date string
	Hour string
}

func (b PlanBucket) Path() string {
	return b.Date + "/" + b.Hour
}

func (b PlanBucket) String() string {
	return b.Path()
}

// PlanBuckets lists the distinct local hours touched by [start, start+duration]
func PlanBuckets(start time.Time, duration time.Duration) []PlanBucket {
	end := start.Add(duration)
	seen := map[PlanBucket]bool{}
	buckets := []PlanBucket{}

	for current := util.StartOfHour(start.In(Location)); !current.After(end); current = current.Add(time.Hour) {
		local := current.In(Location)
		bucket := PlanBucket{
			Date: local.Format(planDateFormat),
			Hour: local.Format(planHourFormat),
		}

		if seen[bucket] {
			continue
		}
		seen[bucket] = true

		buckets = append(buckets, bucket)
	}

	return buckets
}

// FetchPlan downloads one plan payload per hour bucket of the window, in order
func (c *Client) FetchPlan(ctx context.Context, station ctdf.Station, start time.Time, duration time.Duration) ([][]byte, error) {
	buckets := PlanBuckets(start, duration)
	payloads := make([][]byte, 0, len(buckets))

	for _, bucket := range buckets {
		body, err := c.fetcher.Fetch(ctx, fmt.Sprintf("/plan/%s/%s", station.EVA, bucket.Path()), FormatXML)
		if err != nil {
			return nil, fmt.Errorf("plan %s for %s: %w", bucket, station.EVA, err)
		}

		payloads = append(payloads, body)
	}

	return payloads, nil
}

// FetchChanges downloads the full change feed for a station
func (c *Client) FetchChanges(ctx context.Context, station ctdf.Station) ([]byte, error) {
	return c.fetcher.Fetch(ctx, "/fchg/"+station.EVA, FormatXML)
}
