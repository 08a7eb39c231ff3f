package routes

import (
	"context"

	"github.com/travigo/dblive/pkg/ctdf"
	"github.com/travigo/dblive/pkg/database"
	"github.com/travigo/dblive/pkg/poller"
)

// Store is the read side of the relational store the API serves from
type Store interface {
	ListRoutes(ctx context.Context) ([]*ctdf.Route, error)
	GetRoute(ctx context.Context, id int64) (*ctdf.Route, error)
	UpdateOriginLocation(ctx context.Context, id int64, location *ctdf.Location) error
	UpdateDestinationLocation(ctx context.Context, id int64, location *ctdf.Location) error
	DelaySamples(ctx context.Context, routeID int64) ([]database.DelaySample, error)
	QueryDepartures(ctx context.Context, query database.DepartureQuery) ([]*database.DepartureRecord, int, error)
}

type Geocoder interface {
	Geocode(ctx context.Context, stationName string) (*ctdf.Location, error)
}

type PollingStatus interface {
	Status() poller.Status
}
