package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/travigo/dblive/pkg/ctdf"
)

var ErrRouteNotFound = errors.New("route not found")

type routeQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ensureRoute returns the id of the origin/destination route, creating it when missing
func ensureRoute(ctx context.Context, q routeQueryer, origin ctdf.Station, destination ctdf.Station) (int64, error) {
	var routeID int64

	err := q.QueryRowContext(ctx,
		"SELECT id FROM routes WHERE origin_eva = ? AND dest_eva = ?",
		origin.EVA, destination.EVA,
	).Scan(&routeID)
	if err == nil {
		return routeID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	result, err := q.ExecContext(ctx,
		"INSERT INTO routes (origin_name, dest_name, origin_eva, dest_eva) VALUES (?, ?, ?, ?)",
		origin.Name, destination.Name, origin.EVA, destination.EVA,
	)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

const routeColumns = "id, origin_name, dest_name, origin_eva, dest_eva, origin_lat, origin_lon, dest_lat, dest_lon"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoute(row rowScanner) (*ctdf.Route, error) {
	var route ctdf.Route
	var originLat, originLon, destinationLat, destinationLon sql.NullFloat64

	err := row.Scan(
		&route.ID,
		&route.Origin.Name,
		&route.Destination.Name,
		&route.Origin.EVA,
		&route.Destination.EVA,
		&originLat,
		&originLon,
		&destinationLat,
		&destinationLon,
	)
	if err != nil {
		return nil, err
	}

	if originLat.Valid && originLon.Valid {
		route.OriginLocation = ctdf.NewLocation(originLat.Float64, originLon.Float64)
	}
	if destinationLat.Valid && destinationLon.Valid {
		route.DestinationLocation = ctdf.NewLocation(destinationLat.Float64, destinationLon.Float64)
	}

	return &route, nil
}

// ListRoutes returns every known route ordered by origin then destination name
func (s *SQLiteStore) ListRoutes(ctx context.Context) ([]*ctdf.Route, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+routeColumns+" FROM routes ORDER BY origin_name, dest_name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	routes := []*ctdf.Route{}
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}

		routes = append(routes, route)
	}

	return routes, rows.Err()
}

func (s *SQLiteStore) GetRoute(ctx context.Context, id int64) (*ctdf.Route, error) {
	route, err := scanRoute(s.db.QueryRowContext(ctx, "SELECT "+routeColumns+" FROM routes WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRouteNotFound
	}

	return route, err
}

func (s *SQLiteStore) UpdateOriginLocation(ctx context.Context, id int64, location *ctdf.Location) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE routes SET origin_lat = ?, origin_lon = ? WHERE id = ?",
		location.Latitude(), location.Longitude(), id,
	)

	return err
}

func (s *SQLiteStore) UpdateDestinationLocation(ctx context.Context, id int64, location *ctdf.Location) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE routes SET dest_lat = ?, dest_lon = ? WHERE id = ?",
		location.Latitude(), location.Longitude(), id,
	)

	return err
}
