package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/dblive/pkg/ctdf"
	"github.com/travigo/dblive/pkg/timetables"
)

var (
	berlin  = ctdf.Station{Name: "Berlin Hbf", EVA: "8011160"}
	hamburg = ctdf.Station{Name: "Hamburg Hbf", EVA: "8002549"}
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 9, 23, hour, minute, 0, 0, timetables.Location)
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestStoreIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	departures := []ctdf.Departure{
		{ServiceID: "123", Category: "ICE", Number: "700", PlannedTime: at(14, 0), PlannedPlatform: "7"},
		{ServiceID: "456", Category: "RE", Number: "1", PlannedTime: at(14, 10)},
	}

	first, err := store.Store(ctx, berlin, hamburg, departures)
	require.NoError(t, err)
	assert.Equal(t, ctdf.UpsertResult{Inserted: 2}, first)

	departures[0].RealtimeTime = at(14, 5)
	departures[0].RealtimePlatform = "8"
	departures[1].Status = ctdf.DepartureStatusCancelled

	second, err := store.Store(ctx, berlin, hamburg, departures)
	require.NoError(t, err)
	assert.Equal(t, ctdf.UpsertResult{Updated: 2}, second)

	records, total, err := store.QueryDepartures(ctx, DepartureQuery{})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, records, 2)

	byService := map[string]*DepartureRecord{}
	for _, record := range records {
		byService[record.ServiceID] = record
	}

	updated := byService["123"]
	require.NotNil(t, updated.RealtimeTime)
	assert.True(t, updated.RealtimeTime.Equal(at(14, 5)))
	require.NotNil(t, updated.DelayMinutes)
	assert.Equal(t, 5, *updated.DelayMinutes)
	assert.Equal(t, "8", updated.RealtimePlatform)
	assert.Equal(t, "Berlin Hbf", updated.OriginName)
	assert.Equal(t, "Hamburg Hbf", updated.DestinationName)

	cancelled := byService["456"]
	assert.Equal(t, "c", cancelled.Status)
	require.NotNil(t, cancelled.DelayMinutes)
	assert.Equal(t, 0, *cancelled.DelayMinutes)
}

func TestStoreKeepsRoutesSeparate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	departure := []ctdf.Departure{{ServiceID: "123", PlannedTime: at(14, 0)}}

	_, err := store.Store(ctx, berlin, hamburg, departure)
	require.NoError(t, err)
	result, err := store.Store(ctx, hamburg, berlin, departure)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)

	routes, err := store.ListRoutes(ctx)
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, "Berlin Hbf", routes[0].Origin.Name)
	assert.Equal(t, "Hamburg Hbf", routes[1].Origin.Name)
}

func TestQueryDeparturesFilters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Store(ctx, berlin, hamburg, []ctdf.Departure{
		{ServiceID: "a", Category: "ICE", Number: "700", PlannedTime: at(10, 0)},
		{ServiceID: "b", Category: "ICE", Number: "702", PlannedTime: at(12, 0), RealtimeTime: at(12, 30)},
		{ServiceID: "c", Category: "RE", Number: "1", PlannedTime: at(12, 15)},
	})
	require.NoError(t, err)

	records, total, err := store.QueryDepartures(ctx, DepartureQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"b", "c", "a"}, serviceIDs(records))

	records, total, err = store.QueryDepartures(ctx, DepartureQuery{From: at(11, 0), To: at(12, 10)})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, []string{"b"}, serviceIDs(records))

	records, total, err = store.QueryDepartures(ctx, DepartureQuery{Search: "ICE 70"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	records, total, err = store.QueryDepartures(ctx, DepartureQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"c"}, serviceIDs(records))

	missingRoute := int64(99)
	_, total, err = store.QueryDepartures(ctx, DepartureQuery{RouteID: &missingRoute})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func serviceIDs(records []*DepartureRecord) []string {
	ids := []string{}
	for _, record := range records {
		ids = append(ids, record.ServiceID)
	}

	return ids
}

func TestDelaySamples(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Store(ctx, berlin, hamburg, []ctdf.Departure{
		{ServiceID: "a", PlannedTime: at(14, 0), RealtimeTime: at(14, 3)},
		{ServiceID: "b", PlannedTime: at(15, 0)},
	})
	require.NoError(t, err)

	routes, err := store.ListRoutes(ctx)
	require.NoError(t, err)

	samples, err := store.DelaySamples(ctx, routes[0].ID)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 3, samples[0].DelayMinutes)
	assert.Equal(t, 14, samples[0].PlannedTime.Hour())
	assert.Equal(t, 0, samples[1].DelayMinutes)
	assert.Equal(t, 15, samples[1].PlannedTime.Hour())
}

func TestOnTimeDepartureStoresZeroDelay(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Store(ctx, berlin, hamburg, []ctdf.Departure{
		{ServiceID: "on-time", PlannedTime: at(14, 0)},
	})
	require.NoError(t, err)

	records, _, err := store.QueryDepartures(ctx, DepartureQuery{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].RealtimeTime)
	require.NotNil(t, records[0].DelayMinutes)
	assert.Equal(t, 0, *records[0].DelayMinutes)

	samples, err := store.DelaySamples(ctx, records[0].RouteID)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 0, samples[0].DelayMinutes)
}

func TestRouteLocations(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Store(ctx, berlin, hamburg, []ctdf.Departure{{ServiceID: "a", PlannedTime: at(14, 0)}})
	require.NoError(t, err)

	routes, err := store.ListRoutes(ctx)
	require.NoError(t, err)
	assert.Nil(t, routes[0].OriginLocation)

	require.NoError(t, store.UpdateOriginLocation(ctx, routes[0].ID, ctdf.NewLocation(52.525, 13.369)))

	route, err := store.GetRoute(ctx, routes[0].ID)
	require.NoError(t, err)
	require.NotNil(t, route.OriginLocation)
	assert.Equal(t, 52.525, route.OriginLocation.Latitude())
	assert.Nil(t, route.DestinationLocation)

	_, err = store.GetRoute(ctx, 1234)
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestStationCache(t *testing.T) {
	cache := openTestStore(t).StationCache()
	ctx := context.Background()

	_, found, err := cache.Load(ctx, "berlin hbf")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Save(ctx, "berlin hbf", []ctdf.Station{berlin}))
	require.NoError(t, cache.Save(ctx, "berlin hbf", []ctdf.Station{berlin, hamburg}))

	stations, found, err := cache.Load(ctx, "berlin hbf")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []ctdf.Station{berlin, hamburg}, stations)
}
