package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/travigo/dblive/pkg/api/routes"
	"github.com/travigo/dblive/pkg/metrics"
)

type Dependencies struct {
	Store    routes.Store
	Geocoder routes.Geocoder
	Poller   routes.PollingStatus
	Metrics  *metrics.Metrics
}

// NewApp wires every HTTP route of the read-only API
func NewApp(deps Dependencies) *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())
	webApp.Use(NewMetricsMiddleware(deps.Metrics))

	webApp.Get("/version", routes.APIVersion)

	if deps.Metrics != nil {
		webApp.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	group := webApp.Group("/api")

	routes.RoutesRouter(group.Group("/routes"), deps.Store, deps.Geocoder)
	routes.DeparturesRouter(group.Group("/departures"), deps.Store)
	routes.PollingRouter(group.Group("/polling"), deps.Poller)

	return webApp
}
