package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/travigo/dblive/pkg/ctdf"
)

// StationCache persists station candidate lists in the station_cache table
type StationCache struct {
	store *SQLiteStore
}

func (s *SQLiteStore) StationCache() *StationCache {
	return &StationCache{store: s}
}

func (c *StationCache) Load(ctx context.Context, pattern string) ([]ctdf.Station, bool, error) {
	var stationsJSON string

	err := c.store.db.QueryRowContext(ctx, "SELECT stations FROM station_cache WHERE pattern = ?", pattern).Scan(&stationsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}

	var stations []ctdf.Station
	if err := json.Unmarshal([]byte(stationsJSON), &stations); err != nil {
		return nil, false, err
	}

	return stations, true, nil
}

func (c *StationCache) Save(ctx context.Context, pattern string, stations []ctdf.Station) error {
	stationsJSON, err := json.Marshal(stations)
	if err != nil {
		return err
	}

	_, err = c.store.db.ExecContext(ctx,
		`INSERT INTO station_cache (pattern, stations, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(pattern) DO UPDATE SET stations = excluded.stations, updated_at = excluded.updated_at`,
		pattern, string(stationsJSON),
	)

	return err
}
