package connections

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/travigo/dblive/pkg/ctdf"
	"github.com/travigo/dblive/pkg/timetables"
)

// FormatRow renders a departure as a fixed width console line
func FormatRow(departure ctdf.Departure) string {
	realtime := "-"
	delay := "-"
	if departure.HasRealtime() {
		realtime = departure.RealtimeTime.In(timetables.Location).Format("15:04")
		delay = strconv.Itoa(departure.Delay())
	}

	train := strings.TrimSpace(departure.Category + " " + departure.Number)

	row := fmt.Sprintf("%s  %5s  %3s  %3s  %-6s  id=%s",
		departure.PlannedTime.In(timetables.Location).Format("15:04"),
		realtime,
		delay,
		departure.Platform(),
		train,
		departure.ServiceID,
	)

	switch {
	case departure.IsCancelled():
		row += "  cancelled"
	case departure.IsPartial():
		row += "  partially cancelled"
	case departure.IsAdditional():
		row += "  additional"
	}

	return row
}
