package stats

import (
	"sort"

	"github.com/travigo/dblive/pkg/database"
	"github.com/travigo/dblive/pkg/timetables"
)

// HourlyStats summarises the recorded delays of departures planned in one local hour
type HourlyStats struct {
	Hour   int      `groups:"basic" json:"hour"`
	Delays []int    `groups:"basic" json:"delays"`
	Count  int      `groups:"basic" json:"count"`
	Min    *int     `groups:"basic" json:"min"`
	Max    *int     `groups:"basic" json:"max"`
	Median *int     `groups:"basic" json:"median"`
	Mean   *float64 `groups:"basic" json:"mean"`
}

// CalculateHourly buckets samples by planned hour in Europe/Berlin and returns all 24 hours.
// Hours without samples report a zero count and no values.
func CalculateHourly(samples []database.DelaySample) []HourlyStats {
	delaysByHour := make([][]int, 24)
	for _, sample := range samples {
		hour := sample.PlannedTime.In(timetables.Location).Hour()
		delaysByHour[hour] = append(delaysByHour[hour], sample.DelayMinutes)
	}

	hourlyStats := make([]HourlyStats, 0, 24)
	for hour, delays := range delaysByHour {
		hourlyStats = append(hourlyStats, summarise(hour, delays))
	}

	return hourlyStats
}

func summarise(hour int, delays []int) HourlyStats {
	stats := HourlyStats{
		Hour:   hour,
		Delays: []int{},
	}

	n := len(delays)
	if n == 0 {
		return stats
	}

	sorted := make([]int, n)
	copy(sorted, delays)
	sort.Ints(sorted)

	total := 0
	for _, delay := range sorted {
		total += delay
	}

	minimum := sorted[0]
	maximum := sorted[n-1]
	median := sorted[n/2]
	mean := float64(total) / float64(n)

	stats.Delays = sorted
	stats.Count = n
	stats.Min = &minimum
	stats.Max = &maximum
	stats.Median = &median
	stats.Mean = &mean

	return stats
}
