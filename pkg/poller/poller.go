package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/travigo/dblive/pkg/config"
	"github.com/travigo/dblive/pkg/connections"
	"github.com/travigo/dblive/pkg/ctdf"
	"github.com/travigo/dblive/pkg/metrics"
	"github.com/travigo/dblive/pkg/stations"
)

const (
	DefaultCooldown    = 60 * time.Second
	defaultConcurrency = 4
)

var ErrAlreadyRunning = errors.New("poller is already running")
var ErrNoRoutes = errors.New("no polling routes configured")

// Runner runs the pipeline for one route and stores what it finds
type Runner interface {
	RunAndStore(ctx context.Context, originName string, destinationName string, window connections.Window) (*connections.Result, ctdf.UpsertResult, error)
}

type Options struct {
	Enabled     bool
	Routes      []config.Route
	Interval    time.Duration
	Window      time.Duration
	Concurrency int
	Cooldown    time.Duration

	Metrics *metrics.Metrics
	Now     func() time.Time
}

// CycleReport summarises one polling cycle
type CycleReport struct {
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Routes     int               `json:"routes"`
	Failed     int               `json:"failed"`
	Stored     ctdf.UpsertResult `json:"stored"`
	Err        error             `json:"-"`
	Error      string            `json:"error,omitempty"`
}

type Poller struct {
	runner  Runner
	options Options

	mutex     sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	lastCycle *CycleReport
}

func New(runner Runner, options Options) *Poller {
	if options.Concurrency <= 0 {
		options.Concurrency = defaultConcurrency
	}
	if options.Cooldown <= 0 {
		options.Cooldown = DefaultCooldown
	}
	if options.Interval <= 0 {
		options.Interval = time.Duration(config.DefaultPollingInterval) * time.Second
	}
	if options.Window <= 0 {
		options.Window = time.Hour
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &Poller{
		runner:  runner,
		options: options,
	}
}

// Start launches the polling loop in the background. Cancelling ctx or calling Stop ends
// the loop once the current cycle has finished.
func (p *Poller) Start(ctx context.Context) error {
	if len(p.options.Routes) == 0 {
		return ErrNoRoutes
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.running {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.done = make(chan struct{})

	log.Info().
		Int("routes", len(p.options.Routes)).
		Str("interval", p.options.Interval.String()).
		Str("window", p.options.Window.String()).
		Msg("Starting poller")

	go p.loop(loopCtx, p.done)

	return nil
}

func (p *Poller) Stop() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
}

// Wait blocks until the polling loop has exited
func (p *Poller) Wait() {
	p.mutex.Lock()
	done := p.done
	p.mutex.Unlock()

	if done != nil {
		<-done
	}
}

func (p *Poller) Running() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.running
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		p.mutex.Lock()
		p.running = false
		p.mutex.Unlock()

		close(done)
		log.Info().Msg("Poller stopped")
	}()

	for {
		report := p.safeCycle(context.WithoutCancel(ctx))

		wait := p.options.Interval
		if report.Err != nil {
			log.Error().Err(report.Err).Str("cooldown", p.options.Cooldown.String()).Msg("Polling cycle failed")
			wait = p.options.Cooldown
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (p *Poller) safeCycle(ctx context.Context) (report CycleReport) {
	defer func() {
		if r := recover(); r != nil {
			report.Err = fmt.Errorf("polling cycle panicked: %v", r)
			report.Error = report.Err.Error()
			report.FinishedAt = p.options.Now()
			p.recordCycle(report)
		}
	}()

	return p.RunCycle(ctx)
}

type routeOutcome struct {
	route  config.Route
	stored ctdf.UpsertResult
	err    error
}

// RunCycle polls every configured route once over the window ending now
func (p *Poller) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{
		StartedAt: p.options.Now(),
		Routes:    len(p.options.Routes),
	}
	window := connections.LookbackWindow(report.StartedAt, p.options.Window)

	log.Info().
		Time("from", window.Start).
		Time("to", window.End()).
		Int("routes", len(p.options.Routes)).
		Msg("Starting polling cycle")

	routePool := pool.NewWithResults[routeOutcome]().WithMaxGoroutines(p.options.Concurrency)
	for _, route := range p.options.Routes {
		routePool.Go(func() routeOutcome {
			result, stored, err := p.runner.RunAndStore(ctx, route.Origin, route.Destination, window)
			p.logRoute(route, result, stored, err)

			return routeOutcome{route: route, stored: stored, err: err}
		})
	}

	for _, outcome := range routePool.Wait() {
		if outcome.err != nil {
			report.Failed++
			if p.options.Metrics != nil {
				p.options.Metrics.RouteFailuresTotal.Inc()
			}
			continue
		}

		report.Stored.Add(outcome.stored)
	}

	report.FinishedAt = p.options.Now()
	p.recordCycle(report)

	log.Info().
		Int("inserted", report.Stored.Inserted).
		Int("updated", report.Stored.Updated).
		Int("failed", report.Failed).
		Msg("Polling cycle complete")

	return report
}

func (p *Poller) logRoute(route config.Route, result *connections.Result, stored ctdf.UpsertResult, err error) {
	switch {
	case errors.Is(err, stations.ErrStationNotFound):
		log.Error().Err(err).Str("route", route.String()).Msg("Station not found, skipping route. Check the configured station names")
	case err != nil:
		log.Error().Err(err).Str("route", route.String()).Msg("Failed to poll route")
	case result == nil || len(result.Departures) == 0:
		log.Info().Str("route", route.String()).Msg("No direct departures in time window")
	default:
		if p.options.Metrics != nil {
			p.options.Metrics.ObserveUpsert(stored)
		}

		log.Info().
			Str("route", route.String()).
			Int("inserted", stored.Inserted).
			Int("updated", stored.Updated).
			Msg("Stored departures")
	}
}

func (p *Poller) recordCycle(report CycleReport) {
	if p.options.Metrics != nil {
		p.options.Metrics.ObserveCycle(report.Err)
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.lastCycle = &report
}

type RouteStatus struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

type Status struct {
	Enabled         bool          `json:"enabled"`
	IntervalSeconds int           `json:"interval_seconds"`
	IntervalHours   float64       `json:"interval_hours"`
	WindowSeconds   int           `json:"window_seconds"`
	RoutesCount     int           `json:"routes_count"`
	Routes          []RouteStatus `json:"routes"`
	Running         bool          `json:"running"`
	LastCycle       *CycleReport  `json:"last_cycle,omitempty"`
}

func (p *Poller) Status() Status {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	routes := make([]RouteStatus, 0, len(p.options.Routes))
	for _, route := range p.options.Routes {
		routes = append(routes, RouteStatus{Origin: route.Origin, Destination: route.Destination})
	}

	return Status{
		Enabled:         p.options.Enabled,
		IntervalSeconds: int(p.options.Interval.Seconds()),
		IntervalHours:   p.options.Interval.Hours(),
		WindowSeconds:   int(p.options.Window.Seconds()),
		RoutesCount:     len(routes),
		Routes:          routes,
		Running:         p.running,
		LastCycle:       p.lastCycle,
	}
}
