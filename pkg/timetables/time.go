package timetables

import (
	"time"

	_ "time/tzdata"
)

const (
	planDateFormat  = "060102"
	planHourFormat  = "15"
	timestampFormat = "0601021504"
)

// Location is the zone every IRIS timestamp is expressed in
var Location = mustLoadLocation("Europe/Berlin")

func mustLoadLocation(name string) *time.Location {
	location, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}

	return location
}

// ParseTimestamp parses an IRIS YYMMddHHmm timestamp in Europe/Berlin
func ParseTimestamp(value string) (time.Time, error) {
	return time.ParseInLocation(timestampFormat, value, Location)
}
