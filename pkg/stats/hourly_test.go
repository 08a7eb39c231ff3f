package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/dblive/pkg/database"
	"github.com/travigo/dblive/pkg/timetables"
)

func sampleAt(hour int, delay int) database.DelaySample {
	return database.DelaySample{
		PlannedTime:  time.Date(2025, 9, 23, hour, 10, 0, 0, timetables.Location),
		DelayMinutes: delay,
	}
}

func TestCalculateHourly(t *testing.T) {
	hourly := CalculateHourly([]database.DelaySample{
		sampleAt(8, 5),
		sampleAt(8, 1),
		sampleAt(8, 12),
		sampleAt(8, 2),
		sampleAt(17, -1),
	})

	require.Len(t, hourly, 24)

	morning := hourly[8]
	assert.Equal(t, 8, morning.Hour)
	assert.Equal(t, []int{1, 2, 5, 12}, morning.Delays)
	assert.Equal(t, 4, morning.Count)
	assert.Equal(t, 1, *morning.Min)
	assert.Equal(t, 12, *morning.Max)
	assert.Equal(t, 5, *morning.Median)
	assert.InDelta(t, 5.0, *morning.Mean, 0.0001)

	evening := hourly[17]
	assert.Equal(t, -1, *evening.Median)

	empty := hourly[3]
	assert.Equal(t, 0, empty.Count)
	assert.Empty(t, empty.Delays)
	assert.Nil(t, empty.Min)
	assert.Nil(t, empty.Median)
	assert.Nil(t, empty.Mean)
}

func TestCalculateHourlyUsesBerlinHours(t *testing.T) {
	hourly := CalculateHourly([]database.DelaySample{{
		PlannedTime:  time.Date(2025, 9, 23, 12, 0, 0, 0, time.UTC),
		DelayMinutes: 3,
	}})

	assert.Equal(t, 1, hourly[14].Count)
	assert.Equal(t, 0, hourly[12].Count)
}
