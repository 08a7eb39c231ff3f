package export

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/travigo/dblive/pkg/database"
	"github.com/travigo/dblive/pkg/timetables"
)

// DepartureRow is the CSV shape of a stored departure
type DepartureRow struct {
	RouteID          int64  `csv:"route_id"`
	Origin           string `csv:"origin_name"`
	Destination      string `csv:"dest_name"`
	ServiceID        string `csv:"service_id"`
	Category         string `csv:"category"`
	Number           string `csv:"number"`
	PlannedTime      string `csv:"planned_dt"`
	RealtimeTime     string `csv:"realtime_dt"`
	DelayMinutes     string `csv:"delay_min"`
	PlannedPlatform  string `csv:"planned_platform"`
	RealtimePlatform string `csv:"realtime_platform"`
	Status           string `csv:"status"`
}

func NewDepartureRow(record *database.DepartureRecord) *DepartureRow {
	row := &DepartureRow{
		RouteID:          record.RouteID,
		Origin:           record.OriginName,
		Destination:      record.DestinationName,
		ServiceID:        record.ServiceID,
		Category:         record.Category,
		Number:           record.Number,
		PlannedTime:      record.PlannedTime.In(timetables.Location).Format(time.RFC3339),
		PlannedPlatform:  record.PlannedPlatform,
		RealtimePlatform: record.RealtimePlatform,
		Status:           record.Status,
	}

	if record.RealtimeTime != nil {
		row.RealtimeTime = record.RealtimeTime.In(timetables.Location).Format(time.RFC3339)
	}
	if record.DelayMinutes != nil {
		row.DelayMinutes = strconv.Itoa(*record.DelayMinutes)
	}

	return row
}

type DepartureQuerier interface {
	QueryDepartures(ctx context.Context, query database.DepartureQuery) ([]*database.DepartureRecord, int, error)
}

// WriteDepartures writes every departure matching query to out as CSV with a header row.
// Limit and Offset on query are ignored.
func WriteDepartures(ctx context.Context, store DepartureQuerier, query database.DepartureQuery, out io.Writer) (int, error) {
	query.Limit = 0
	query.Offset = 0

	records, _, err := store.QueryDepartures(ctx, query)
	if err != nil {
		return 0, err
	}

	rows := make([]*DepartureRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, NewDepartureRow(record))
	}

	if err := gocsv.Marshal(rows, out); err != nil {
		return 0, err
	}

	return len(rows), nil
}
