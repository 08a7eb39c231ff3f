package setup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/dblive/pkg/config"
	"github.com/travigo/dblive/pkg/connections"
	"github.com/travigo/dblive/pkg/database"
	"github.com/travigo/dblive/pkg/elastic_client"
	"github.com/travigo/dblive/pkg/metrics"
	"github.com/travigo/dblive/pkg/poller"
	"github.com/travigo/dblive/pkg/redis_client"
	"github.com/travigo/dblive/pkg/stations"
	"github.com/travigo/dblive/pkg/timetables"
	"github.com/travigo/dblive/pkg/util"
)

const (
	stationCacheSize       = 512
	stationCacheExpiration = 7 * 24 * time.Hour
)

// Services holds everything a command needs to run the pipeline against the configured stores
type Services struct {
	Config   *config.AppConfig
	Metrics  *metrics.Metrics
	Client   *timetables.Client
	Resolver *stations.Resolver
	Store    *database.SQLiteStore
	Sink     connections.Sink
	Pipeline *connections.Pipeline
}

// Build loads configuration and connects the pipeline. The relational store is always
// opened since it backs the API and the durable station cache.
func Build(configPath string) (*Services, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	services := &Services{
		Config:  cfg,
		Metrics: metrics.New(),
	}

	fetcher, err := timetables.NewFetcher(timetables.Config{
		BaseURL:  cfg.Timetables.BaseURL,
		ClientID: cfg.Timetables.ClientID,
		APIKey:   cfg.Timetables.APIKey,
	}, timetables.WithAttemptObserver(services.Metrics.ObserveAttempt))
	if err != nil {
		return nil, err
	}
	services.Client = timetables.NewClient(fetcher, timetables.WithStationGate(timetables.NewStationGate()))

	store, err := database.OpenSQLite(database.DatabasePath())
	if err != nil {
		return nil, err
	}
	services.Store = store

	var durable stations.DurableStore = store.StationCache()
	if redis_client.Configured() {
		if err := redis_client.Connect(); err != nil {
			store.Close()
			return nil, fmt.Errorf("error connecting to redis: %w", err)
		}
		durable = stations.NewRedisStore(redis_client.Client, stationCacheExpiration)
		log.Info().Msg("Using Redis for the station cache")
	}

	services.Resolver = stations.NewResolver(
		services.Client,
		stations.NewCache(stations.NewVolatileCache(stationCacheSize), durable),
	)

	services.Sink, err = buildSink(store)
	if err != nil {
		store.Close()
		return nil, err
	}

	services.Pipeline = connections.NewPipeline(services.Resolver, services.Client, services.Sink)

	return services, nil
}

// buildSink always writes to SQLite since the API and the export read from it.
// MongoDB, when selected, receives a mirrored copy.
func buildSink(store *database.SQLiteStore) (connections.Sink, error) {
	var mirrors []connections.Sink

	if strings.EqualFold(util.GetEnvironmentVariable("DBLIVE_STORE", "sqlite"), "mongo") {
		if err := database.ConnectMongoDB(); err != nil {
			return nil, fmt.Errorf("error connecting to mongodb: %w", err)
		}
		mirrors = append(mirrors, database.NewMongoStore())
		log.Info().Msg("Mirroring departures to MongoDB")
	}

	if err := elastic_client.Connect(); err != nil {
		return nil, fmt.Errorf("error connecting to elasticsearch: %w", err)
	}

	return composeSink(store, mirrors, elastic_client.Enabled()), nil
}

func composeSink(store *database.SQLiteStore, mirrors []connections.Sink, indexing bool) connections.Sink {
	var sink connections.Sink = store

	if len(mirrors) > 0 {
		sink = &connections.MirroredSink{Primary: sink, Mirrors: mirrors}
	}

	if indexing {
		sink = &elastic_client.IndexingSink{Sink: sink}
	}

	return sink
}

var ErrPollingDisabled = errors.New("polling is disabled, set POLLING_ENABLED=true to enable it")

// StartPoller starts the polling driver when the configuration enables it
func (s *Services) StartPoller(ctx context.Context) (*poller.Poller, error) {
	if !s.Config.Polling.Enabled {
		return nil, ErrPollingDisabled
	}

	p, err := s.NewPoller()
	if err != nil {
		return nil, err
	}

	if err := p.Start(ctx); err != nil {
		return nil, err
	}

	return p, nil
}

// NewPoller builds the polling driver from the loaded configuration
func (s *Services) NewPoller() (*poller.Poller, error) {
	window, err := s.Config.Polling.WindowDuration()
	if err != nil {
		return nil, err
	}

	return poller.New(s.Pipeline, poller.Options{
		Enabled:     s.Config.Polling.Enabled,
		Routes:      s.Config.Polling.Routes,
		Interval:    s.Config.Polling.Interval(),
		Window:      window,
		Concurrency: s.Config.Polling.Concurrency,
		Metrics:     s.Metrics,
	}), nil
}

func (s *Services) Close() {
	if elastic_client.Enabled() {
		elastic_client.WaitUntilQueueEmpty()
	}

	if err := s.Store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
}
