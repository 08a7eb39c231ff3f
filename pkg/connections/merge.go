package connections

import (
	"github.com/travigo/dblive/pkg/ctdf"
)

// MergeRealtime overlays change feed deltas onto planned departures by exact service id.
// The input slice is left untouched.
func MergeRealtime(departures []ctdf.Departure, changes map[string]ctdf.DepartureChange) []ctdf.Departure {
	merged := make([]ctdf.Departure, 0, len(departures))

	for _, departure := range departures {
		change, ok := changes[departure.ServiceID]
		if ok {
			if !change.RealtimeTime.IsZero() {
				departure.RealtimeTime = change.RealtimeTime
			}
			if change.RealtimePlatform != "" {
				departure.RealtimePlatform = change.RealtimePlatform
			}
			if change.Status != ctdf.DepartureStatusNormal {
				departure.Status = change.Status
			}
		}

		merged = append(merged, departure)
	}

	return merged
}
