package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/dblive/pkg/ctdf"
	"github.com/travigo/dblive/pkg/database"
	"github.com/travigo/dblive/pkg/timetables"
)

func TestWriteDepartures(t *testing.T) {
	store, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	planned := time.Date(2025, 9, 23, 14, 0, 0, 0, timetables.Location)

	_, err = store.Store(ctx,
		ctdf.Station{Name: "Berlin Hbf", EVA: "8011160"},
		ctdf.Station{Name: "Hamburg Hbf", EVA: "8002549"},
		[]ctdf.Departure{
			{ServiceID: "123", Category: "ICE", Number: "700", PlannedTime: planned, RealtimeTime: planned.Add(5 * time.Minute), PlannedPlatform: "7"},
			{ServiceID: "456", Category: "RE", Number: "1", PlannedTime: planned.Add(10 * time.Minute)},
		},
	)
	require.NoError(t, err)

	var out bytes.Buffer
	count, err := WriteDepartures(ctx, store, database.DepartureQuery{Limit: 1}, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "route_id,origin_name,dest_name,service_id,category,number,planned_dt,realtime_dt,delay_min,planned_platform,realtime_platform,status", lines[0])
	assert.Contains(t, out.String(), "123,ICE,700,2025-09-23T14:00:00+02:00,2025-09-23T14:05:00+02:00,5,7,")
	assert.Contains(t, out.String(), "456,RE,1,2025-09-23T14:10:00+02:00,,0,,,")
}
