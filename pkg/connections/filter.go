package connections

import (
	"strings"
	"time"

	"github.com/travigo/dblive/pkg/ctdf"
	"github.com/travigo/dblive/pkg/util"
	"golang.org/x/exp/slices"
)

// Window is the closed interval [Start, Start+Duration] of planned departure times
type Window struct {
	Start    time.Time
	Duration time.Duration
}

// LookbackWindow is the window of the given length ending at now
func LookbackWindow(now time.Time, duration time.Duration) Window {
	return Window{Start: now.Add(-duration), Duration: duration}
}

func (w Window) End() time.Time {
	return w.Start.Add(w.Duration)
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End())
}

// DestinationMatcher decides whether a planned path passes through a destination.
// Partial name overlaps count as a match.
type DestinationMatcher struct {
	full string
	base string
}

func NewDestinationMatcher(destination ctdf.Station) DestinationMatcher {
	full := strings.ToUpper(strings.TrimSpace(destination.Name))

	// "Frankfurt (Main) Hbf" has the base FRANKFURT(MAIN)
	base := strings.ReplaceAll(strings.ReplaceAll(full, " HBF", ""), " (", "")

	return DestinationMatcher{
		full: full,
		base: base,
	}
}

func (m DestinationMatcher) MatchesToken(token string) bool {
	token = strings.ToUpper(token)
	if token == "" {
		return false
	}

	if m.full != "" && (strings.Contains(token, m.full) || strings.Contains(m.full, token)) {
		return true
	}

	if m.base != "" && (strings.Contains(token, m.base) || strings.HasPrefix(token, m.base)) {
		return true
	}

	return false
}

func (m DestinationMatcher) Matches(path []string) bool {
	for _, token := range path {
		if m.MatchesToken(token) {
			return true
		}
	}

	return false
}

// SelectDirect keeps the departures planned inside window whose path reaches destination
func SelectDirect(departures []ctdf.Departure, destination ctdf.Station, window Window) []ctdf.Departure {
	matcher := NewDestinationMatcher(destination)

	selected := make([]ctdf.Departure, len(departures))
	copy(selected, departures)

	util.InPlaceFilter(&selected, func(departure ctdf.Departure) bool {
		return window.Contains(departure.PlannedTime) && matcher.Matches(departure.PlannedPath)
	})

	return selected
}

// SortByEffectiveTime orders departures by realtime, falling back to planned time
func SortByEffectiveTime(departures []ctdf.Departure) {
	slices.SortStableFunc(departures, func(a, b ctdf.Departure) int {
		return a.EffectiveTime().Compare(b.EffectiveTime())
	})
}
