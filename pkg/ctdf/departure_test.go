package ctdf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDepartureDelay(t *testing.T) {
	berlin, _ := time.LoadLocation("Europe/Berlin")
	planned := time.Date(2025, 9, 23, 10, 0, 0, 0, berlin)

	tests := []struct {
		name     string
		realtime time.Time
		expected int
	}{
		{"late", time.Date(2025, 9, 23, 10, 7, 0, 0, berlin), 7},
		{"no realtime", time.Time{}, 0},
		{"early", time.Date(2025, 9, 23, 9, 58, 0, 0, berlin), -2},
		{"partial minute rounds down", time.Date(2025, 9, 23, 10, 2, 30, 0, berlin), 2},
		{"early partial minute rounds down", time.Date(2025, 9, 23, 9, 59, 30, 0, berlin), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			departure := Departure{PlannedTime: planned, RealtimeTime: tt.realtime}
			assert.Equal(t, tt.expected, departure.Delay())
		})
	}
}

func TestDepartureEffectiveTime(t *testing.T) {
	planned := time.Date(2025, 9, 23, 10, 0, 0, 0, time.UTC)
	realtime := planned.Add(3 * time.Minute)

	departure := Departure{PlannedTime: planned}
	assert.Equal(t, planned, departure.EffectiveTime())

	departure.RealtimeTime = realtime
	assert.Equal(t, realtime, departure.EffectiveTime())
}

func TestDeparturePlatform(t *testing.T) {
	departure := Departure{PlannedPlatform: "7"}
	assert.Equal(t, "7", departure.Platform())

	departure.RealtimePlatform = "8"
	assert.Equal(t, "8", departure.Platform())
}

func TestParseDepartureStatus(t *testing.T) {
	status, ok := ParseDepartureStatus("c")
	assert.True(t, ok)
	assert.Equal(t, DepartureStatusCancelled, status)

	departure := Departure{Status: status}
	assert.True(t, departure.IsCancelled())
	assert.False(t, departure.IsPartial())
	assert.False(t, departure.IsAdditional())

	_, ok = ParseDepartureStatus("x")
	assert.False(t, ok)
}

func TestNormaliseEVA(t *testing.T) {
	assert.Equal(t, "0800105", NormaliseEVA("800105"))
	assert.Equal(t, "8011160", NormaliseEVA("8011160"))
	assert.Equal(t, "8011160", NormaliseEVA(" 8011160 "))
}
