package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/travigo/dblive/pkg/ctdf"
	"github.com/travigo/dblive/pkg/timetables"
)

func TestNew(t *testing.T) {
	m := New()

	assert.NotNil(t, m.Registry)
	assert.NotNil(t, m.FetchAttemptsTotal)
	assert.NotNil(t, m.DeparturesStoredTotal)
	assert.NotNil(t, m.HTTPRequestsTotal)
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "plan", Endpoint("https://apis.example/timetables/v1/plan/8011160/250923/13"))
	assert.Equal(t, "station", Endpoint("https://apis.example/timetables/v1/station/Berlin%20Hbf"))
	assert.Equal(t, "fchg", Endpoint("https://apis.example/timetables/v1/fchg/8011160"))
	assert.Equal(t, "other", Endpoint("https://apis.example/"))
}

func TestObserveAttempt(t *testing.T) {
	m := New()

	m.ObserveAttempt(timetables.Attempt{URL: "http://x/plan/1/250923/13", Number: 1, Duration: time.Second})
	m.ObserveAttempt(timetables.Attempt{
		URL:    "http://x/plan/1/250923/13",
		Number: 2,
		Err:    &timetables.FetchError{Kind: timetables.ServerError},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchAttemptsTotal.WithLabelValues("plan", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchAttemptsTotal.WithLabelValues("plan", "ServerError")))
}

func TestObserveUpsertAndCycle(t *testing.T) {
	m := New()

	m.ObserveUpsert(ctdf.UpsertResult{Inserted: 3, Updated: 2})
	m.ObserveUpsert(ctdf.UpsertResult{Updated: 1})
	m.ObserveCycle(nil)
	m.ObserveCycle(errors.New("boom"))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.DeparturesStoredTotal.WithLabelValues("inserted")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DeparturesStoredTotal.WithLabelValues("updated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PollCyclesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PollCyclesTotal.WithLabelValues("failed")))
}
