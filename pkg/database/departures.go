package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/dblive/pkg/ctdf"
	"github.com/travigo/dblive/pkg/timetables"
)

// DepartureRecord is a stored departure joined with its route names
type DepartureRecord struct {
	ID              int64  `groups:"basic" json:"id"`
	RouteID         int64  `groups:"basic" json:"route_id"`
	OriginName      string `groups:"basic" json:"origin_name"`
	DestinationName string `groups:"basic" json:"dest_name"`

	ServiceID string `groups:"basic" json:"service_id"`
	Category  string `groups:"basic" json:"category"`
	Number    string `groups:"basic" json:"number"`

	PlannedTime  time.Time  `groups:"basic" json:"planned_dt"`
	RealtimeTime *time.Time `groups:"basic" json:"realtime_dt"`
	DelayMinutes *int       `groups:"basic" json:"delay_min"`

	PlannedPlatform  string `groups:"basic" json:"planned_platform"`
	RealtimePlatform string `groups:"basic" json:"realtime_platform"`
	Status           string `groups:"basic" json:"status"`

	InsertedAt time.Time `groups:"detailed" json:"inserted_at"`
}

// DepartureQuery filters stored departures. A zero From/To leaves that side open.
type DepartureQuery struct {
	RouteID *int64
	From    time.Time
	To      time.Time
	Search  string

	Limit  int
	Offset int
}

// DelaySample is one recorded delay of a route
type DelaySample struct {
	PlannedTime  time.Time
	DelayMinutes int
}

func formatTimestamp(t time.Time) string {
	return t.In(timetables.Location).Format(time.RFC3339)
}

func nullableTimestamp(t time.Time) any {
	if t.IsZero() {
		return nil
	}

	return formatTimestamp(t)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}

	return value
}

// Store upserts the departures of a route in a single transaction. A departure is
// identified by route, service id and planned time; repeats overwrite every other field.
func (s *SQLiteStore) Store(ctx context.Context, origin ctdf.Station, destination ctdf.Station, departures []ctdf.Departure) (ctdf.UpsertResult, error) {
	var result ctdf.UpsertResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, err
	}
	defer tx.Rollback()

	routeID, err := ensureRoute(ctx, tx, origin, destination)
	if err != nil {
		return result, fmt.Errorf("error ensuring route: %w", err)
	}

	for i := range departures {
		departure := &departures[i]
		plannedTime := formatTimestamp(departure.PlannedTime)

		var existingID int64
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM departures WHERE route_id = ? AND service_id = ? AND planned_dt = ?",
			routeID, departure.ServiceID, plannedTime,
		).Scan(&existingID)

		switch {
		case err == nil:
			_, err = tx.ExecContext(ctx,
				`UPDATE departures
				SET category = ?, number = ?, realtime_dt = ?, delay_min = ?, planned_platform = ?, realtime_platform = ?, status = ?
				WHERE id = ?`,
				nullableString(departure.Category),
				nullableString(departure.Number),
				nullableTimestamp(departure.RealtimeTime),
				departure.Delay(),
				nullableString(departure.PlannedPlatform),
				nullableString(departure.RealtimePlatform),
				nullableString(string(departure.Status)),
				existingID,
			)
			if err != nil {
				return ctdf.UpsertResult{}, fmt.Errorf("error updating departure %s: %w", departure.ServiceID, err)
			}
			result.Updated++
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx,
				`INSERT INTO departures
				(route_id, service_id, category, number, planned_dt, realtime_dt, delay_min, planned_platform, realtime_platform, status)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				routeID,
				departure.ServiceID,
				nullableString(departure.Category),
				nullableString(departure.Number),
				plannedTime,
				nullableTimestamp(departure.RealtimeTime),
				departure.Delay(),
				nullableString(departure.PlannedPlatform),
				nullableString(departure.RealtimePlatform),
				nullableString(string(departure.Status)),
			)
			if err != nil {
				return ctdf.UpsertResult{}, fmt.Errorf("error inserting departure %s: %w", departure.ServiceID, err)
			}
			result.Inserted++
		default:
			return ctdf.UpsertResult{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return ctdf.UpsertResult{}, err
	}

	log.Debug().
		Int64("route", routeID).
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Msg("Stored departures")

	return result, nil
}

func (q *DepartureQuery) where() (string, []any) {
	clauses := []string{}
	params := []any{}

	if !q.From.IsZero() {
		clauses = append(clauses, "datetime(d.planned_dt) >= datetime(?)")
		params = append(params, formatTimestamp(q.From))
	}
	if !q.To.IsZero() {
		clauses = append(clauses, "datetime(d.planned_dt) <= datetime(?)")
		params = append(params, formatTimestamp(q.To))
	}
	if q.RouteID != nil {
		clauses = append(clauses, "d.route_id = ?")
		params = append(params, *q.RouteID)
	}
	if q.Search != "" {
		clauses = append(clauses, `(IFNULL(d.category,'') || ' ' || IFNULL(d.number,'') LIKE ?
			OR IFNULL(d.service_id,'') LIKE ?
			OR IFNULL(d.planned_platform,'') LIKE ?
			OR IFNULL(d.realtime_platform,'') LIKE ?)`)
		like := "%" + q.Search + "%"
		params = append(params, like, like, like, like)
	}

	if len(clauses) == 0 {
		return "1=1", params
	}

	return strings.Join(clauses, " AND "), params
}

// QueryDepartures returns one page of matching departures, latest effective time first,
// together with the total number of matches
func (s *SQLiteStore) QueryDepartures(ctx context.Context, query DepartureQuery) ([]*DepartureRecord, int, error) {
	whereSQL, params := query.where()

	var total int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM departures d JOIN routes r ON r.id = d.route_id WHERE "+whereSQL,
		params...,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	limit := query.Limit
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.route_id, r.origin_name, r.dest_name, d.service_id, d.category, d.number,
			d.planned_dt, d.realtime_dt, d.delay_min, d.planned_platform, d.realtime_platform, d.status, d.inserted_at
		FROM departures d
		JOIN routes r ON r.id = d.route_id
		WHERE `+whereSQL+`
		ORDER BY datetime(COALESCE(d.realtime_dt, d.planned_dt)) DESC, d.id DESC
		LIMIT ? OFFSET ?`,
		append(params, limit, query.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records := []*DepartureRecord{}
	for rows.Next() {
		record, err := scanDepartureRecord(rows)
		if err != nil {
			return nil, 0, err
		}

		records = append(records, record)
	}

	return records, total, rows.Err()
}

func scanDepartureRecord(row rowScanner) (*DepartureRecord, error) {
	var record DepartureRecord
	var category, number, plannedPlatform, realtimePlatform, status sql.NullString
	var realtimeTime sql.NullTime
	var insertedAt sql.NullTime
	var delay sql.NullInt64

	err := row.Scan(
		&record.ID,
		&record.RouteID,
		&record.OriginName,
		&record.DestinationName,
		&record.ServiceID,
		&category,
		&number,
		&record.PlannedTime,
		&realtimeTime,
		&delay,
		&plannedPlatform,
		&realtimePlatform,
		&status,
		&insertedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Category = category.String
	record.Number = number.String
	record.PlannedPlatform = plannedPlatform.String
	record.RealtimePlatform = realtimePlatform.String
	record.Status = status.String
	record.PlannedTime = record.PlannedTime.In(timetables.Location)
	record.InsertedAt = insertedAt.Time

	if realtimeTime.Valid {
		realtime := realtimeTime.Time.In(timetables.Location)
		record.RealtimeTime = &realtime
	}
	if delay.Valid {
		delayMinutes := int(delay.Int64)
		record.DelayMinutes = &delayMinutes
	}

	return &record, nil
}

// DelaySamples lists every recorded delay of a route
func (s *SQLiteStore) DelaySamples(ctx context.Context, routeID int64) ([]DelaySample, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT planned_dt, delay_min FROM departures WHERE route_id = ? AND delay_min IS NOT NULL ORDER BY datetime(planned_dt)",
		routeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := []DelaySample{}
	for rows.Next() {
		var sample DelaySample
		if err := rows.Scan(&sample.PlannedTime, &sample.DelayMinutes); err != nil {
			return nil, err
		}

		sample.PlannedTime = sample.PlannedTime.In(timetables.Location)
		samples = append(samples, sample)
	}

	return samples, rows.Err()
}
