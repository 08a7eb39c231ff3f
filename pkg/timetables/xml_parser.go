package timetables

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/travigo/dblive/pkg/ctdf"
)

type timetableStop struct {
	ID string `xml:"id,attr"`

	TripLabel *timetableTripLabel `xml:"tl"`
	Arrival   *timetableEvent     `xml:"ar"`
	Departure *timetableEvent     `xml:"dp"`
}

type timetableTripLabel struct {
	Category string `xml:"c,attr"`
	Number   string `xml:"n,attr"`
	Operator string `xml:"o,attr"`
}

type timetableEvent struct {
	PlannedTime     string `xml:"pt,attr"`
	PlannedPlatform string `xml:"pp,attr"`
	PlannedPath     string `xml:"ppth,attr"`
	Line            string `xml:"l,attr"`

	ChangedTime     string `xml:"ct,attr"`
	ChangedPlatform string `xml:"cp,attr"`
	ChangedStatus   string `xml:"cs,attr"`
}

// plannedDeparture builds the planned side of a departure. Stops that only arrive here
// or carry no usable planned time are reported as not ok.
func (s *timetableStop) plannedDeparture() (ctdf.Departure, bool) {
	if s.Departure == nil {
		return ctdf.Departure{}, false
	}

	plannedTime, err := ParseTimestamp(s.Departure.PlannedTime)
	if err != nil {
		return ctdf.Departure{}, false
	}

	departure := ctdf.Departure{
		ServiceID:       s.ID,
		PlannedTime:     plannedTime,
		PlannedPlatform: s.Departure.PlannedPlatform,
		PlannedPath:     SplitPath(s.Departure.PlannedPath),
	}

	if s.TripLabel != nil {
		departure.Category = s.TripLabel.Category
		departure.Number = s.TripLabel.Number
	}

	return departure, true
}

func (s *timetableStop) departureChange() (ctdf.DepartureChange, bool) {
	if s.ID == "" || s.Departure == nil {
		return ctdf.DepartureChange{}, false
	}

	change := ctdf.DepartureChange{
		RealtimePlatform: s.Departure.ChangedPlatform,
	}

	if s.Departure.ChangedTime != "" {
		if changedTime, err := ParseTimestamp(s.Departure.ChangedTime); err == nil {
			change.RealtimeTime = changedTime
		} else {
			log.Debug().Str("id", s.ID).Str("ct", s.Departure.ChangedTime).Msg("Ignoring malformed changed time")
		}
	}

	if status, ok := ctdf.ParseDepartureStatus(s.Departure.ChangedStatus); ok {
		change.Status = status
	}

	return change, true
}

// SplitPath turns a ppth attribute into upper cased station names. IRIS separates
// names with '|', older dumps use ';'.
func SplitPath(path string) []string {
	stations := []string{}

	for _, name := range strings.FieldsFunc(path, func(r rune) bool { return r == '|' || r == ';' }) {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name != "" {
			stations = append(stations, name)
		}
	}

	return stations
}

// ParsePlan extracts the planned departures from a /plan payload
func ParsePlan(raw []byte) ([]ctdf.Departure, error) {
	departures := []ctdf.Departure{}
	skipped := 0

	err := decodeTimetableStops(raw, func(stop *timetableStop) {
		departure, ok := stop.plannedDeparture()
		if !ok {
			skipped++
			return
		}

		departures = append(departures, departure)
	})
	if err != nil {
		return nil, err
	}

	log.Debug().Int("departures", len(departures)).Int("skipped", skipped).Msg("Parsed plan")

	return departures, nil
}

// ParseChanges indexes the departure deltas of a /fchg payload by service id
func ParseChanges(raw []byte) (map[string]ctdf.DepartureChange, error) {
	changes := map[string]ctdf.DepartureChange{}

	err := decodeTimetableStops(raw, func(stop *timetableStop) {
		if change, ok := stop.departureChange(); ok {
			changes[stop.ID] = change
		}
	})
	if err != nil {
		return nil, err
	}

	log.Debug().Int("changes", len(changes)).Msg("Parsed change feed")

	return changes, nil
}

func decodeTimetableStops(raw []byte, handle func(*timetableStop)) error {
	d := newXMLDecoder(bytes.NewReader(raw))
	sawRoot := false
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			return &FetchError{Kind: MalformedError, Err: err}
		}

		ty, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true

		if ty.Name.Local == "s" {
			var stop timetableStop

			if err = d.DecodeElement(&stop, &ty); err != nil {
				return &FetchError{Kind: MalformedError, Err: err}
			}

			handle(&stop)
		}
	}

	if !sawRoot {
		return &FetchError{Kind: MalformedError, Err: errors.New("XML document has no root element")}
	}

	return nil
}
