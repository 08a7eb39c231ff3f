package connections

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/dblive/pkg/ctdf"
	"github.com/travigo/dblive/pkg/timetables"
)

var ErrNoSink = errors.New("pipeline has no sink configured")

type StationResolver interface {
	Resolve(ctx context.Context, pattern string) (ctdf.Station, error)
}

type TimetableSource interface {
	FetchPlan(ctx context.Context, station ctdf.Station, start time.Time, duration time.Duration) ([][]byte, error)
	FetchChanges(ctx context.Context, station ctdf.Station) ([]byte, error)
}

// Sink persists the departures found for a route
type Sink interface {
	Store(ctx context.Context, origin ctdf.Station, destination ctdf.Station, departures []ctdf.Departure) (ctdf.UpsertResult, error)
}

type Result struct {
	Origin      ctdf.Station
	Destination ctdf.Station
	Window      Window
	Departures  []ctdf.Departure
}

type Pipeline struct {
	resolver StationResolver
	source   TimetableSource
	sink     Sink
}

func NewPipeline(resolver StationResolver, source TimetableSource, sink Sink) *Pipeline {
	return &Pipeline{
		resolver: resolver,
		source:   source,
		sink:     sink,
	}
}

// Run resolves both stations and returns the direct departures inside window
func (p *Pipeline) Run(ctx context.Context, originName string, destinationName string, window Window) (*Result, error) {
	origin, err := p.resolver.Resolve(ctx, originName)
	if err != nil {
		return nil, fmt.Errorf("resolving origin: %w", err)
	}

	destination, err := p.resolver.Resolve(ctx, destinationName)
	if err != nil {
		return nil, fmt.Errorf("resolving destination: %w", err)
	}

	departures, err := p.FindDirectDepartures(ctx, origin, destination, window)
	if err != nil {
		return nil, err
	}

	return &Result{
		Origin:      origin,
		Destination: destination,
		Window:      window,
		Departures:  departures,
	}, nil
}

// RunAndStore runs the pipeline and hands the departures to the sink
func (p *Pipeline) RunAndStore(ctx context.Context, originName string, destinationName string, window Window) (*Result, ctdf.UpsertResult, error) {
	if p.sink == nil {
		return nil, ctdf.UpsertResult{}, ErrNoSink
	}

	result, err := p.Run(ctx, originName, destinationName, window)
	if err != nil {
		return nil, ctdf.UpsertResult{}, err
	}

	if len(result.Departures) == 0 {
		return result, ctdf.UpsertResult{}, nil
	}

	upsertResult, err := p.sink.Store(ctx, result.Origin, result.Destination, result.Departures)
	if err != nil {
		return result, upsertResult, fmt.Errorf("storing %s -> %s: %w", result.Origin.Name, result.Destination.Name, err)
	}

	return result, upsertResult, nil
}

// FindDirectDepartures fetches the plan for window, keeps the direct departures and
// overlays the change feed onto them
func (p *Pipeline) FindDirectDepartures(ctx context.Context, origin ctdf.Station, destination ctdf.Station, window Window) ([]ctdf.Departure, error) {
	payloads, err := p.source.FetchPlan(ctx, origin, window.Start, window.Duration)
	if err != nil {
		return nil, err
	}

	planned := []ctdf.Departure{}
	for _, payload := range payloads {
		departures, err := timetables.ParsePlan(payload)
		if err != nil {
			return nil, fmt.Errorf("parsing plan for %s: %w", origin.EVA, err)
		}

		planned = append(planned, departures...)
	}

	direct := SelectDirect(planned, destination, window)

	log.Debug().
		Str("origin", origin.EVA).
		Str("destination", destination.EVA).
		Int("planned", len(planned)).
		Int("direct", len(direct)).
		Msg("Filtered plan")

	if len(direct) == 0 {
		return direct, nil
	}

	changePayload, err := p.source.FetchChanges(ctx, origin)
	if err != nil {
		return nil, err
	}

	changes, err := timetables.ParseChanges(changePayload)
	if err != nil {
		return nil, fmt.Errorf("parsing changes for %s: %w", origin.EVA, err)
	}

	merged := MergeRealtime(direct, changes)
	SortByEffectiveTime(merged)

	return merged, nil
}
