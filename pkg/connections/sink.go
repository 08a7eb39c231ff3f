package connections

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/travigo/dblive/pkg/ctdf"
)

// MirroredSink stores departures in Primary and then copies them to every mirror.
// The result is the primary's. A failing mirror is logged and does not fail the store.
type MirroredSink struct {
	Primary Sink
	Mirrors []Sink
}

func (m *MirroredSink) Store(ctx context.Context, origin ctdf.Station, destination ctdf.Station, departures []ctdf.Departure) (ctdf.UpsertResult, error) {
	result, err := m.Primary.Store(ctx, origin, destination, departures)
	if err != nil {
		return result, err
	}

	for _, mirror := range m.Mirrors {
		if _, err := mirror.Store(ctx, origin, destination, departures); err != nil {
			log.Error().Err(err).
				Str("origin", origin.EVA).
				Str("destination", destination.EVA).
				Msg("Failed to mirror departures")
		}
	}

	return result, nil
}
