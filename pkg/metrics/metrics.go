// Package metrics provides the Prometheus metrics exported by dblive.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/travigo/dblive/pkg/ctdf"
	"github.com/travigo/dblive/pkg/timetables"
)

type Metrics struct {
	Registry *prometheus.Registry

	// Timetables API
	FetchAttemptsTotal *prometheus.CounterVec
	FetchDuration      *prometheus.HistogramVec

	// Pipeline
	DeparturesStoredTotal *prometheus.CounterVec
	PollCyclesTotal       *prometheus.CounterVec
	RouteFailuresTotal    prometheus.Counter

	// Web API
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	fetchAttemptsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dblive_fetch_attempts_total",
			Help: "Requests made to the Timetables API by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	fetchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dblive_fetch_duration_seconds",
			Help:    "Timetables API request latency distribution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	departuresStoredTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dblive_departures_stored_total",
			Help: "Departures written to the store by result",
		},
		[]string{"result"},
	)

	pollCyclesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dblive_poll_cycles_total",
			Help: "Completed polling cycles by outcome",
		},
		[]string{"outcome"},
	)

	routeFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dblive_route_failures_total",
		Help: "Routes skipped in a polling cycle because of an error",
	})

	httpRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dblive_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dblive_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(
		fetchAttemptsTotal,
		fetchDuration,
		departuresStoredTotal,
		pollCyclesTotal,
		routeFailuresTotal,
		httpRequestsTotal,
		httpRequestDuration,
	)

	return &Metrics{
		Registry:              registry,
		FetchAttemptsTotal:    fetchAttemptsTotal,
		FetchDuration:         fetchDuration,
		DeparturesStoredTotal: departuresStoredTotal,
		PollCyclesTotal:       pollCyclesTotal,
		RouteFailuresTotal:    routeFailuresTotal,
		HTTPRequestsTotal:     httpRequestsTotal,
		HTTPRequestDuration:   httpRequestDuration,
	}
}

// Endpoint names the Timetables API endpoint a request URL belongs to
func Endpoint(url string) string {
	for _, endpoint := range []string{"station", "plan", "fchg", "rchg"} {
		if strings.Contains(url, "/"+endpoint+"/") {
			return endpoint
		}
	}

	return "other"
}

// ObserveAttempt records one Timetables API round trip
func (m *Metrics) ObserveAttempt(attempt timetables.Attempt) {
	endpoint := Endpoint(attempt.URL)

	m.FetchAttemptsTotal.WithLabelValues(endpoint, attempt.Outcome()).Inc()
	m.FetchDuration.WithLabelValues(endpoint).Observe(attempt.Duration.Seconds())
}

func (m *Metrics) ObserveUpsert(result ctdf.UpsertResult) {
	m.DeparturesStoredTotal.WithLabelValues("inserted").Add(float64(result.Inserted))
	m.DeparturesStoredTotal.WithLabelValues("updated").Add(float64(result.Updated))
}

func (m *Metrics) ObserveCycle(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}

	m.PollCyclesTotal.WithLabelValues(outcome).Inc()
}
