package ctdf

import (
	"math"
	"time"
)

type DepartureStatus string

const (
	DepartureStatusNormal     DepartureStatus = ""
	DepartureStatusCancelled  DepartureStatus = "c"
	DepartureStatusPartial    DepartureStatus = "p"
	DepartureStatusAdditional DepartureStatus = "a"
)

// ParseDepartureStatus maps an IRIS cs attribute onto a status. Unknown codes report false.
func ParseDepartureStatus(code string) (DepartureStatus, bool) {
	switch DepartureStatus(code) {
	case DepartureStatusCancelled, DepartureStatusPartial, DepartureStatusAdditional:
		return DepartureStatus(code), true
	default:
		return DepartureStatusNormal, false
	}
}

type Departure struct {
	ServiceID string `groups:"basic" csv:"service_id"`
	Category  string `groups:"basic" csv:"category"`
	Number    string `groups:"basic" csv:"number"`

	PlannedTime  time.Time `groups:"basic" csv:"planned_dt"`
	RealtimeTime time.Time `groups:"basic" csv:"realtime_dt"`

	PlannedPlatform  string `groups:"basic" csv:"planned_platform"`
	RealtimePlatform string `groups:"basic" csv:"realtime_platform"`

	PlannedPath []string `groups:"detailed" csv:"-"`

	Status DepartureStatus `groups:"basic" csv:"status"`
}

func (d *Departure) HasRealtime() bool {
	return !d.RealtimeTime.IsZero()
}

// Delay is the departure delay in whole minutes, rounded down. Early departures are negative.
func (d *Departure) Delay() int {
	if !d.HasRealtime() {
		return 0
	}

	return int(math.Floor(d.RealtimeTime.Sub(d.PlannedTime).Seconds() / 60))
}

// EffectiveTime is when the train actually leaves as far as we know
func (d *Departure) EffectiveTime() time.Time {
	if d.HasRealtime() {
		return d.RealtimeTime
	}

	return d.PlannedTime
}

// Platform prefers the changed platform over the planned one
func (d *Departure) Platform() string {
	if d.RealtimePlatform != "" {
		return d.RealtimePlatform
	}

	return d.PlannedPlatform
}

func (d *Departure) IsCancelled() bool {
	return d.Status == DepartureStatusCancelled
}

func (d *Departure) IsPartial() bool {
	return d.Status == DepartureStatusPartial
}

func (d *Departure) IsAdditional() bool {
	return d.Status == DepartureStatusAdditional
}

// DepartureChange is a single realtime delta from the change feed. Zero values mean not reported.
type DepartureChange struct {
	RealtimeTime     time.Time
	RealtimePlatform string
	Status           DepartureStatus
}
