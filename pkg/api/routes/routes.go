package routes

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/travigo/dblive/pkg/ctdf"
	"github.com/travigo/dblive/pkg/database"
	"github.com/travigo/dblive/pkg/stats"
)

type routeView struct {
	ID              int64    `json:"id"`
	OriginName      string   `json:"origin_name"`
	DestinationName string   `json:"dest_name"`
	OriginEVA       string   `json:"origin_eva"`
	DestinationEVA  string   `json:"dest_eva"`
	OriginLat       *float64 `json:"origin_lat"`
	OriginLon       *float64 `json:"origin_lon"`
	DestinationLat  *float64 `json:"dest_lat"`
	DestinationLon  *float64 `json:"dest_lon"`
}

func newRouteView(route *ctdf.Route) routeView {
	view := routeView{
		ID:              route.ID,
		OriginName:      route.Origin.Name,
		DestinationName: route.Destination.Name,
		OriginEVA:       route.Origin.EVA,
		DestinationEVA:  route.Destination.EVA,
	}

	if route.OriginLocation != nil {
		latitude, longitude := route.OriginLocation.Latitude(), route.OriginLocation.Longitude()
		view.OriginLat, view.OriginLon = &latitude, &longitude
	}
	if route.DestinationLocation != nil {
		latitude, longitude := route.DestinationLocation.Latitude(), route.DestinationLocation.Longitude()
		view.DestinationLat, view.DestinationLon = &latitude, &longitude
	}

	return view
}

func RoutesRouter(router fiber.Router, store Store, geocoder Geocoder) {
	router.Get("/", func(c *fiber.Ctx) error {
		return listRoutes(c, store, geocoder)
	})
	router.Get("/:id/stats", func(c *fiber.Ctx) error {
		return getRouteStats(c, store)
	})
}

// listRoutes geocodes any station still missing coordinates before responding
func listRoutes(c *fiber.Ctx, store Store, geocoder Geocoder) error {
	ctx := c.UserContext()

	routes, err := store.ListRoutes(ctx)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	views := []routeView{}
	for _, route := range routes {
		if geocoder != nil && route.OriginLocation == nil {
			if location, err := geocoder.Geocode(ctx, route.Origin.Name); err == nil && location != nil {
				route.OriginLocation = location
				if err := store.UpdateOriginLocation(ctx, route.ID, location); err != nil {
					log.Error().Err(err).Int64("route", route.ID).Msg("Failed to save origin location")
				}
			}
		}

		if geocoder != nil && route.DestinationLocation == nil {
			if location, err := geocoder.Geocode(ctx, route.Destination.Name); err == nil && location != nil {
				route.DestinationLocation = location
				if err := store.UpdateDestinationLocation(ctx, route.ID, location); err != nil {
					log.Error().Err(err).Int64("route", route.ID).Msg("Failed to save destination location")
				}
			}
		}

		views = append(views, newRouteView(route))
	}

	return c.JSON(fiber.Map{
		"routes": views,
	})
}

func getRouteStats(c *fiber.Ctx, store Store) error {
	ctx := c.UserContext()

	routeID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Route ID must be an integer",
		})
	}

	route, err := store.GetRoute(ctx, routeID)
	if errors.Is(err, database.ErrRouteNotFound) {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Route not found",
		})
	} else if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	samples, err := store.DelaySamples(ctx, routeID)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"route_id":     route.ID,
		"origin_name":  route.Origin.Name,
		"dest_name":    route.Destination.Name,
		"hourly_stats": stats.CalculateHourly(samples),
	})
}
