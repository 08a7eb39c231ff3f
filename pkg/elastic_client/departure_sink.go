package elastic_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/dblive/pkg/connections"
	"github.com/travigo/dblive/pkg/ctdf"
)

type DepartureDocument struct {
	Origin      ctdf.Station `json:"Origin"`
	Destination ctdf.Station `json:"Destination"`

	ServiceID string `json:"ServiceID"`
	Train     string `json:"Train"`

	PlannedTime   time.Time `json:"PlannedTime"`
	EffectiveTime time.Time `json:"EffectiveTime"`
	Delay         int       `json:"Delay"`
	Platform      string    `json:"Platform"`
	Status        string    `json:"Status,omitempty"`

	RecordedAt time.Time `json:"RecordedAt"`
}

func NewDepartureDocument(origin ctdf.Station, destination ctdf.Station, departure *ctdf.Departure, recordedAt time.Time) DepartureDocument {
	return DepartureDocument{
		Origin:        origin,
		Destination:   destination,
		ServiceID:     departure.ServiceID,
		Train:         fmt.Sprintf("%s %s", departure.Category, departure.Number),
		PlannedTime:   departure.PlannedTime,
		EffectiveTime: departure.EffectiveTime(),
		Delay:         departure.Delay(),
		Platform:      departure.Platform(),
		Status:        string(departure.Status),
		RecordedAt:    recordedAt,
	}
}

// DepartureIndexName is the weekly index a departure planned at t is written to
func DepartureIndexName(t time.Time) string {
	yearNumber, weekNumber := t.ISOWeek()
	return fmt.Sprintf("dblive-departures-%d-%d", yearNumber, weekNumber)
}

func departureDocumentID(origin ctdf.Station, destination ctdf.Station, departure *ctdf.Departure) string {
	return fmt.Sprintf("%s-%s-%s-%d", origin.EVA, destination.EVA, departure.ServiceID, departure.PlannedTime.Unix())
}

// IndexingSink stores departures in the wrapped sink and then queues them for indexing
type IndexingSink struct {
	Sink connections.Sink
}

func (s *IndexingSink) Store(ctx context.Context, origin ctdf.Station, destination ctdf.Station, departures []ctdf.Departure) (ctdf.UpsertResult, error) {
	result, err := s.Sink.Store(ctx, origin, destination, departures)
	if err != nil || !Enabled() {
		return result, err
	}

	now := time.Now()
	for i := range departures {
		departure := &departures[i]

		documentJSON, err := json.Marshal(NewDepartureDocument(origin, destination, departure, now))
		if err != nil {
			log.Error().Err(err).Str("service", departure.ServiceID).Msg("Failed to encode departure document")
			continue
		}

		IndexRequest(
			DepartureIndexName(departure.PlannedTime),
			departureDocumentID(origin, destination, departure),
			bytes.NewReader(documentJSON),
		)
	}

	return result, nil
}
