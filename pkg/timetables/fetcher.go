package timetables

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/travigo/dblive/pkg/util"
	resty "gopkg.in/resty.v1"
)

const DefaultBaseURL = "https://apis.deutschebahn.com/db-api-marketplace/apis/timetables/v1"

const (
	DefaultTimeout     = 20 * time.Second
	DefaultMaxAttempts = 3

	defaultBackoffBase = 2
	defaultBackoffCap  = 60 * time.Second
	defaultUserAgent   = "db-live-pipeline/1.0"
)

type Config struct {
	BaseURL   string
	ClientID  string
	APIKey    string
	UserAgent string

	Timeout     time.Duration
	MaxAttempts int
}

// Attempt describes a single HTTP round trip made by the Fetcher
type Attempt struct {
	URL      string
	Number   int
	Duration time.Duration
	Err      error
}

func (a Attempt) Outcome() string {
	if a.Err == nil {
		return "ok"
	}

	var fetchError *FetchError
	if errors.As(a.Err, &fetchError) {
		return fetchError.Kind.String()
	}

	return "aborted"
}

// CappedExponentialBackOff waits Base^n seconds before the nth retry but never longer than Cap
type CappedExponentialBackOff struct {
	Base float64
	Cap  time.Duration

	retries int
}

func (b *CappedExponentialBackOff) NextBackOff() time.Duration {
	b.retries++

	seconds := math.Pow(b.Base, float64(b.retries))
	if seconds >= b.Cap.Seconds() {
		return b.Cap
	}

	return time.Duration(seconds * float64(time.Second))
}

func (b *CappedExponentialBackOff) Reset() {
	b.retries = 0
}

type Fetcher struct {
	client  *resty.Client
	baseURL string

	maxAttempts int
	backoffBase float64
	backoffCap  time.Duration

	timer     backoff.Timer
	onAttempt func(Attempt)
}

type FetcherOption func(*Fetcher)

// WithTimer replaces the timer used to wait between attempts
func WithTimer(timer backoff.Timer) FetcherOption {
	return func(f *Fetcher) {
		f.timer = timer
	}
}

// WithAttemptObserver registers a callback invoked after every attempt
func WithAttemptObserver(observer func(Attempt)) FetcherOption {
	return func(f *Fetcher) {
		f.onAttempt = observer
	}
}

func NewFetcher(config Config, options ...FetcherOption) (*Fetcher, error) {
	if config.ClientID == "" || config.APIKey == "" {
		return nil, ErrMissingCredentials
	}

	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")

	client := resty.New().
		SetHostURL(baseURL).
		SetTimeout(config.Timeout).
		SetLogger(log.Logger).
		SetHeaders(map[string]string{
			"DB-Client-Id": config.ClientID,
			"DB-Api-Key":   config.APIKey,
			"User-Agent":   config.UserAgent,
		})

	fetcher := &Fetcher{
		client:      client,
		baseURL:     baseURL,
		maxAttempts: config.MaxAttempts,
		backoffBase: defaultBackoffBase,
		backoffCap:  defaultBackoffCap,
	}

	for _, option := range options {
		option(fetcher)
	}

	return fetcher, nil
}

// Fetch GETs path relative to the API base URL and returns the raw body.
// Server and network failures are retried with capped exponential backoff,
// client errors and malformed bodies fail straight away.
func (f *Fetcher) Fetch(ctx context.Context, path string, format Format) ([]byte, error) {
	url := f.baseURL + path
	attempt := 0

	operation := func() ([]byte, error) {
		attempt++
		startTime := time.Now()

		body, err := f.do(ctx, path, url, format)

		if f.onAttempt != nil {
			f.onAttempt(Attempt{
				URL:      url,
				Number:   attempt,
				Duration: time.Since(startTime),
				Err:      err,
			})
		}

		if err != nil {
			var fetchError *FetchError
			if errors.As(err, &fetchError) && fetchError.Kind.Retryable() {
				return nil, err
			}

			return nil, backoff.Permanent(err)
		}

		return body, nil
	}

	notify := func(err error, wait time.Duration) {
		log.Warn().
			Err(err).
			Str("url", url).
			Int("attempt", attempt).
			Int("maxattempts", f.maxAttempts).
			Str("retryin", wait.String()).
			Msg("Timetables request failed, retrying")
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			&CappedExponentialBackOff{Base: f.backoffBase, Cap: f.backoffCap},
			uint64(f.maxAttempts-1),
		),
		ctx,
	)

	body, err := backoff.RetryNotifyWithTimerAndData(operation, policy, notify, f.timer)
	if err != nil {
		log.Error().Err(err).Str("url", url).Int("attempts", attempt).Msg("Timetables request failed")
		return nil, err
	}

	return body, nil
}

func (f *Fetcher) do(ctx context.Context, path string, url string, format Format) ([]byte, error) {
	log.Debug().Str("url", url).Str("accept", string(format)).Msg("Fetching from timetables API")

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", string(format)).
		Get(path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, &FetchError{Kind: NetworkError, URL: url, Err: err}
	}

	status := resp.StatusCode()
	switch {
	case status >= 400 && status < 500:
		return nil, &FetchError{Kind: ClientError, StatusCode: status, URL: url, Err: errors.New(http.StatusText(status))}
	case status >= 500:
		return nil, &FetchError{Kind: ServerError, StatusCode: status, URL: url, Err: errors.New(http.StatusText(status))}
	case status < 200 || status >= 300:
		return nil, &FetchError{Kind: MalformedError, StatusCode: status, URL: url, Err: fmt.Errorf("unexpected status %d", status)}
	}

	body := resp.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &FetchError{Kind: MalformedError, StatusCode: status, URL: url, Err: ErrEmptyResponse}
	}

	if err := format.validate(body); err != nil {
		log.Error().Str("url", url).Str("body", util.TrimString(string(body), 200)).Msg("Invalid response body")
		return nil, &FetchError{Kind: MalformedError, StatusCode: status, URL: url, Err: err}
	}

	return body, nil
}
