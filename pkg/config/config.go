package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	iso8601 "github.com/senseyeio/duration"
	"github.com/travigo/dblive/pkg/util"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPollingInterval    = 3600
	DefaultPollingWindow      = "PT1H"
	DefaultPollingConcurrency = 4
)

type Route struct {
	Origin      string `yaml:"origin" validate:"required"`
	Destination string `yaml:"destination" validate:"required"`
}

func (r Route) String() string {
	return fmt.Sprintf("%s -> %s", r.Origin, r.Destination)
}

type PollingConfig struct {
	Enabled         bool    `yaml:"enabled"`
	IntervalSeconds int     `yaml:"interval" validate:"gte=1"`
	Routes          []Route `yaml:"routes" validate:"dive"`
	Window          string  `yaml:"window" validate:"required"`
	Concurrency     int     `yaml:"concurrency" validate:"gte=1,lte=64"`
}

func (p *PollingConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

// WindowDuration is the length of the window each cycle looks back over
func (p *PollingConfig) WindowDuration() (time.Duration, error) {
	return ParseWindow(p.Window)
}

type TimetablesConfig struct {
	BaseURL  string `yaml:"base_url" validate:"omitempty,url"`
	ClientID string `yaml:"-"`
	APIKey   string `yaml:"-"`
}

type AppConfig struct {
	Timetables TimetablesConfig `yaml:"timetables"`
	Polling    PollingConfig    `yaml:"polling"`
}

func defaults() AppConfig {
	return AppConfig{
		Polling: PollingConfig{
			IntervalSeconds: DefaultPollingInterval,
			Window:          DefaultPollingWindow,
			Concurrency:     DefaultPollingConcurrency,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the environment,
// in that order of precedence
func Load(path string) (*AppConfig, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", path, err)
		}
	}

	if err := applyEnvironment(&cfg, util.GetEnvironmentVariables()); err != nil {
		return nil, err
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return nil, err
	}

	if _, err := cfg.Polling.WindowDuration(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnvironment(cfg *AppConfig, env map[string]string) error {
	cfg.Timetables.ClientID = env["DB_CLIENT_ID"]
	cfg.Timetables.APIKey = env["DB_API_KEY"]

	if env["DBLIVE_TIMETABLES_URL"] != "" {
		cfg.Timetables.BaseURL = env["DBLIVE_TIMETABLES_URL"]
	}

	if env["POLLING_ENABLED"] != "" {
		cfg.Polling.Enabled = strings.EqualFold(strings.TrimSpace(env["POLLING_ENABLED"]), "true")
	}

	if env["POLLING_INTERVAL"] != "" {
		interval, err := strconv.Atoi(strings.TrimSpace(env["POLLING_INTERVAL"]))
		if err != nil {
			return fmt.Errorf("invalid POLLING_INTERVAL: %w", err)
		}
		cfg.Polling.IntervalSeconds = interval
	}

	if env["POLLING_ROUTES"] != "" {
		cfg.Polling.Routes = ParseRoutes(env["POLLING_ROUTES"])
	}

	if env["POLLING_WINDOW"] != "" {
		cfg.Polling.Window = strings.TrimSpace(env["POLLING_WINDOW"])
	}

	if env["POLLING_CONCURRENCY"] != "" {
		concurrency, err := strconv.Atoi(strings.TrimSpace(env["POLLING_CONCURRENCY"]))
		if err != nil {
			return fmt.Errorf("invalid POLLING_CONCURRENCY: %w", err)
		}
		cfg.Polling.Concurrency = concurrency
	}

	return nil
}

// ParseRoutes reads "Origin->Destination" pairs separated by ';'. Pairs without
// an arrow or with a blank side are dropped.
func ParseRoutes(value string) []Route {
	routes := []Route{}

	for _, pair := range strings.Split(value, ";") {
		origin, destination, found := strings.Cut(pair, "->")
		if !found {
			continue
		}

		origin = strings.TrimSpace(origin)
		destination = strings.TrimSpace(destination)
		if origin == "" || destination == "" {
			continue
		}

		routes = append(routes, Route{Origin: origin, Destination: destination})
	}

	return routes
}

var ErrInvalidWindow = errors.New("window must be an ISO-8601 duration or a number of hours")

// ParseWindow accepts either an ISO-8601 duration such as PT90M or a decimal number of hours
func ParseWindow(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)

	if hours, err := strconv.ParseFloat(value, 64); err == nil {
		if hours <= 0 {
			return 0, ErrInvalidWindow
		}

		return time.Duration(hours * float64(time.Hour)), nil
	}

	duration, err := iso8601.ParseISO8601(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWindow, value)
	}

	reference := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	window := duration.Shift(reference).Sub(reference)
	if window <= 0 {
		return 0, ErrInvalidWindow
	}

	return window, nil
}
