package timetables

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTimer struct {
	delays []time.Duration
	c      chan time.Time
}

func (t *recordingTimer) Start(duration time.Duration) {
	t.delays = append(t.delays, duration)
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *recordingTimer) Stop() {}

func (t *recordingTimer) C() <-chan time.Time {
	return t.c
}

func newTestFetcher(t *testing.T, server *httptest.Server, options ...FetcherOption) *Fetcher {
	t.Helper()

	fetcher, err := NewFetcher(Config{
		BaseURL:  server.URL,
		ClientID: "client",
		APIKey:   "secret",
		Timeout:  2 * time.Second,
	}, options...)
	require.NoError(t, err)

	return fetcher
}

func TestNewFetcherRequiresCredentials(t *testing.T) {
	_, err := NewFetcher(Config{ClientID: "only-id"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestFetchSendsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "client", r.Header.Get("DB-Client-Id"))
		assert.Equal(t, "secret", r.Header.Get("DB-Api-Key"))
		assert.Equal(t, "application/xml", r.Header.Get("Accept"))
		assert.Equal(t, "db-live-pipeline/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "/fchg/8011160", r.URL.Path)

		_, _ = w.Write([]byte(`<timetable/>`))
	}))
	defer server.Close()

	body, err := newTestFetcher(t, server).Fetch(context.Background(), "/fchg/8011160", FormatXML)
	require.NoError(t, err)
	assert.Equal(t, "<timetable/>", string(body))
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	timer := &recordingTimer{}
	var attempts []Attempt
	fetcher := newTestFetcher(t, server, WithTimer(timer), WithAttemptObserver(func(a Attempt) {
		attempts = append(attempts, a)
	}))

	_, err := fetcher.Fetch(context.Background(), "/plan/8011160/250923/13", FormatXML)
	require.Error(t, err)
	assert.True(t, IsKind(err, ServerError))

	assert.EqualValues(t, 3, requests.Load())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, timer.delays)
	require.Len(t, attempts, 3)
	assert.Equal(t, 3, attempts[2].Number)
	assert.Equal(t, "ServerError", attempts[2].Outcome())
}

func TestFetchRecoversAfterServerError(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`<timetable/>`))
	}))
	defer server.Close()

	timer := &recordingTimer{}
	_, err := newTestFetcher(t, server, WithTimer(timer)).Fetch(context.Background(), "/fchg/1", FormatXML)
	require.NoError(t, err)
	assert.EqualValues(t, 2, requests.Load())
	assert.Equal(t, []time.Duration{2 * time.Second}, timer.delays)
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	timer := &recordingTimer{}
	_, err := newTestFetcher(t, server, WithTimer(timer)).Fetch(context.Background(), "/fchg/1", FormatXML)

	var fetchError *FetchError
	require.ErrorAs(t, err, &fetchError)
	assert.Equal(t, ClientError, fetchError.Kind)
	assert.Equal(t, http.StatusUnauthorized, fetchError.StatusCode)
	assert.EqualValues(t, 1, requests.Load())
	assert.Empty(t, timer.delays)
}

func TestFetchDoesNotRetryMalformedBodies(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		format Format
	}{
		{"empty", "   ", FormatXML},
		{"broken xml", "<timetable><s>", FormatXML},
		{"broken json", "[{", FormatJSON},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var requests atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests.Add(1)
				_, _ = w.Write([]byte(test.body))
			}))
			defer server.Close()

			_, err := newTestFetcher(t, server, WithTimer(&recordingTimer{})).Fetch(context.Background(), "/x", test.format)
			assert.True(t, IsKind(err, MalformedError))
			assert.EqualValues(t, 1, requests.Load())
		})
	}
}

func TestFetchRetriesNetworkErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	timer := &recordingTimer{}
	_, err := newTestFetcher(t, server, WithTimer(timer)).Fetch(context.Background(), "/fchg/1", FormatXML)

	assert.True(t, IsKind(err, NetworkError))
	assert.Len(t, timer.delays, 2)
}

func TestFetchStopsOnCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestFetcher(t, server).Fetch(ctx, "/fchg/1", FormatXML)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCappedExponentialBackOff(t *testing.T) {
	b := &CappedExponentialBackOff{Base: 2, Cap: 60 * time.Second}

	var delays []time.Duration
	for i := 0; i < 7; i++ {
		delays = append(delays, b.NextBackOff())
	}

	assert.Equal(t, []time.Duration{
		2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
		32 * time.Second, 60 * time.Second, 60 * time.Second,
	}, delays)

	b.Reset()
	assert.Equal(t, 2*time.Second, b.NextBackOff())
}
