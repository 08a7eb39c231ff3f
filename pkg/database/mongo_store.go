package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"github.com/travigo/dblive/pkg/ctdf"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoRoute struct {
	RouteKey string

	OriginStation      ctdf.Station
	DestinationStation ctdf.Station

	ModificationDateTime time.Time
}

type mongoDeparture struct {
	RouteKey string

	ServiceID string
	Category  string
	Number    string

	PlannedTime  time.Time
	RealtimeTime time.Time
	DelayMinutes int

	PlannedPlatform  string
	RealtimePlatform string
	PlannedPath      []string

	Status ctdf.DepartureStatus

	ModificationDateTime time.Time
}

func RouteKey(origin ctdf.Station, destination ctdf.Station) string {
	return fmt.Sprintf("%s-%s", origin.EVA, destination.EVA)
}

func newMongoDeparture(routeKey string, departure *ctdf.Departure, now time.Time) (*mongoDeparture, error) {
	var record mongoDeparture
	if err := copier.CopyWithOption(&record, departure, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}

	record.RouteKey = routeKey
	record.ModificationDateTime = now
	record.DelayMinutes = departure.Delay()

	return &record, nil
}

// MongoStore writes departures into the routes and departures collections
type MongoStore struct {
	Database *mongo.Database
}

func NewMongoStore() *MongoStore {
	return &MongoStore{Database: MongoGlobalInstance.Database}
}

func (m *MongoStore) Store(ctx context.Context, origin ctdf.Station, destination ctdf.Station, departures []ctdf.Departure) (ctdf.UpsertResult, error) {
	routeKey := RouteKey(origin, destination)
	now := time.Now()

	_, err := m.Database.Collection("routes").UpdateOne(ctx,
		bson.M{"routekey": routeKey},
		bson.M{"$set": mongoRoute{
			RouteKey:             routeKey,
			OriginStation:        origin,
			DestinationStation:   destination,
			ModificationDateTime: now,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return ctdf.UpsertResult{}, fmt.Errorf("error upserting route %s: %w", routeKey, err)
	}

	var operations []mongo.WriteModel

	for i := range departures {
		departure := &departures[i]

		record, err := newMongoDeparture(routeKey, departure, now)
		if err != nil {
			return ctdf.UpsertResult{}, err
		}

		bsonRep, err := bson.Marshal(bson.M{"$set": record})
		if err != nil {
			return ctdf.UpsertResult{}, fmt.Errorf("error encoding departure %s: %w", record.ServiceID, err)
		}
		updateModel := mongo.NewUpdateOneModel()
		updateModel.SetFilter(bson.M{
			"routekey":    routeKey,
			"serviceid":   record.ServiceID,
			"plannedtime": record.PlannedTime,
		})
		updateModel.SetUpdate(bsonRep)
		updateModel.SetUpsert(true)

		operations = append(operations, updateModel)
	}

	if len(operations) == 0 {
		return ctdf.UpsertResult{}, nil
	}

	result, err := m.Database.Collection("departures").BulkWrite(ctx, operations, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return ctdf.UpsertResult{}, err
	}

	log.Debug().
		Str("route", routeKey).
		Int64("upserted", result.UpsertedCount).
		Int64("matched", result.MatchedCount).
		Msg("Bulk wrote departures")

	return ctdf.UpsertResult{
		Inserted: int(result.UpsertedCount),
		Updated:  int(result.MatchedCount),
	}, nil
}
