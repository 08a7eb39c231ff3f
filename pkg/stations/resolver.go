package stations

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/travigo/dblive/pkg/ctdf"
)

// CandidateSource finds stations matching a free text pattern
type CandidateSource interface {
	SearchStations(ctx context.Context, pattern string) ([]ctdf.Station, error)
}

type Resolver struct {
	source CandidateSource
	cache  *Cache
}

func NewResolver(source CandidateSource, cache *Cache) *Resolver {
	if cache == nil {
		cache = NewCache(nil, nil)
	}

	return &Resolver{
		source: source,
		cache:  cache,
	}
}

// Candidates returns every station the provider lists for pattern, cached or fresh
func (r *Resolver) Candidates(ctx context.Context, pattern string) ([]ctdf.Station, error) {
	if stations, ok := r.cache.Get(ctx, pattern); ok {
		log.Debug().Str("pattern", pattern).Int("candidates", len(stations)).Msg("Station cache hit")
		return stations, nil
	}

	found, err := r.source.SearchStations(ctx, strings.TrimSpace(pattern))
	if err != nil {
		return nil, fmt.Errorf("searching station %q: %w", pattern, err)
	}

	stations := make([]ctdf.Station, 0, len(found))
	for _, station := range found {
		station.EVA = ctdf.NormaliseEVA(station.EVA)
		stations = append(stations, station)
	}

	if err := r.cache.Put(ctx, pattern, stations); err != nil {
		log.Warn().Err(err).Str("pattern", pattern).Msg("Failed to cache station candidates")
	}

	return stations, nil
}

// Resolve maps a free text pattern onto a single station
func (r *Resolver) Resolve(ctx context.Context, pattern string) (ctdf.Station, error) {
	candidates, err := r.Candidates(ctx, pattern)
	if err != nil {
		return ctdf.Station{}, err
	}

	station, ok := Choose(pattern, candidates)
	if !ok {
		return ctdf.Station{}, &StationNotFoundError{Pattern: pattern}
	}

	log.Debug().Str("pattern", pattern).Str("eva", station.EVA).Str("name", station.Name).Msg("Resolved station")

	return station, nil
}

// Choose prefers an exact case insensitive name match and otherwise takes the first candidate
func Choose(pattern string, candidates []ctdf.Station) (ctdf.Station, bool) {
	if len(candidates) == 0 {
		return ctdf.Station{}, false
	}

	trimmed := strings.TrimSpace(pattern)
	for _, candidate := range candidates {
		if strings.EqualFold(candidate.Name, trimmed) {
			return candidate, true
		}
	}

	return candidates[0], true
}
