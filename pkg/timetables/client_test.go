package timetables

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/dblive/pkg/ctdf"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(
		newTestFetcher(t, server, WithTimer(&recordingTimer{})),
		WithStationGate(rate.NewLimiter(rate.Inf, 1)),
	)
}

func TestSearchStationsJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/station/Berlin Hbf", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		_, _ = w.Write([]byte(`{"result":[{"name":"Berlin Hbf","evaNo":8011160,"ril100":"BL"},{"name":"no id"}]}`))
	})

	stations, err := client.SearchStations(context.Background(), "Berlin Hbf")
	require.NoError(t, err)
	assert.Equal(t, []ctdf.Station{{Name: "Berlin Hbf", EVA: "8011160", RIL100: "BL"}}, stations)
}

func TestSearchStationsFallsBackToXML(t *testing.T) {
	tests := []struct {
		name string
		json func(w http.ResponseWriter)
	}{
		{"not acceptable", func(w http.ResponseWriter) { w.WriteHeader(http.StatusNotAcceptable) }},
		{"empty list", func(w http.ResponseWriter) { _, _ = w.Write([]byte(`[]`)) }},
		{"unexpected shape", func(w http.ResponseWriter) { _, _ = w.Write([]byte(`"nope"`)) }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var formats []string
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				accept := r.Header.Get("Accept")
				formats = append(formats, accept)

				if accept == string(FormatJSON) {
					test.json(w)
					return
				}

				_, _ = w.Write([]byte(`<stations><station name="Hamburg Hbf" eva="8002549" ds100="AH"/></stations>`))
			})

			stations, err := client.SearchStations(context.Background(), "Hamburg Hbf")
			require.NoError(t, err)
			assert.Equal(t, []ctdf.Station{{Name: "Hamburg Hbf", EVA: "8002549", RIL100: "AH"}}, stations)
			assert.Equal(t, []string{string(FormatJSON), string(FormatXML)}, formats)
		})
	}
}

func TestSearchStationsDoesNotFallBackOnAuthFailure(t *testing.T) {
	requests := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.SearchStations(context.Background(), "Berlin")
	assert.True(t, IsKind(err, ClientError))
	assert.Equal(t, 1, requests)
}

func TestSearchStationsHonoursGate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"Berlin Hbf","eva":"8011160"}]`))
	})
	gate := rate.NewLimiter(rate.Every(time.Hour), 1)
	client.stationGate = gate

	_, err := client.SearchStations(context.Background(), "Berlin Hbf")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.SearchStations(ctx, "Berlin Hbf")
	assert.Error(t, err)
}

func TestPlanBuckets(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		duration time.Duration
		expected []PlanBucket
	}{
		{
			name:     "spans two hours",
			start:    time.Date(2025, 9, 23, 13, 30, 0, 0, Location),
			duration: time.Hour,
			expected: []PlanBucket{{"250923", "13"}, {"250923", "14"}},
		},
		{
			name:     "short window still reaches final hour",
			start:    time.Date(2025, 9, 23, 13, 50, 0, 0, Location),
			duration: 20 * time.Minute,
			expected: []PlanBucket{{"250923", "13"}, {"250923", "14"}},
		},
		{
			name:     "crosses midnight",
			start:    time.Date(2025, 9, 23, 23, 30, 0, 0, Location),
			duration: time.Hour,
			expected: []PlanBucket{{"250923", "23"}, {"250924", "00"}},
		},
		{
			name:     "converts from UTC",
			start:    time.Date(2025, 9, 23, 11, 30, 0, 0, time.UTC),
			duration: 0,
			expected: []PlanBucket{{"250923", "13"}},
		},
		{
			name:     "repeated hour at end of summer time",
			start:    time.Date(2025, 10, 25, 23, 30, 0, 0, time.UTC),
			duration: 3 * time.Hour,
			expected: []PlanBucket{{"251026", "01"}, {"251026", "02"}, {"251026", "03"}},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, PlanBuckets(test.start, test.duration))
		})
	}
}

func TestFetchPlanRequestsEachBucket(t *testing.T) {
	var mutex sync.Mutex
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mutex.Lock()
		paths = append(paths, r.URL.Path)
		mutex.Unlock()

		_, _ = w.Write([]byte(`<timetable/>`))
	})

	payloads, err := client.FetchPlan(
		context.Background(),
		ctdf.Station{Name: "Berlin Hbf", EVA: "8011160"},
		time.Date(2025, 9, 23, 13, 30, 0, 0, Location),
		time.Hour,
	)
	require.NoError(t, err)
	assert.Len(t, payloads, 2)
	assert.Equal(t, []string{"/plan/8011160/250923/13", "/plan/8011160/250923/14"}, paths)
}

func TestFetchPlanPropagatesFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/14") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`<timetable/>`))
	})

	_, err := client.FetchPlan(
		context.Background(),
		ctdf.Station{EVA: "8011160"},
		time.Date(2025, 9, 23, 13, 30, 0, 0, Location),
		time.Hour,
	)
	assert.True(t, IsKind(err, ClientError))
}

func TestFetchChanges(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fchg/8011160", r.URL.Path)
		_, _ = w.Write([]byte(sampleChanges))
	})

	body, err := client.FetchChanges(context.Background(), ctdf.Station{EVA: "8011160"})
	require.NoError(t, err)

	changes, err := ParseChanges(body)
	require.NoError(t, err)
	assert.Len(t, changes, 2)
}
