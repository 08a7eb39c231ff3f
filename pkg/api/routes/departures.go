package routes

import (
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/travigo/dblive/pkg/database"
	"github.com/travigo/dblive/pkg/timetables"
)

const (
	defaultSinceHours     = 24
	maxSinceHours         = 8760
	defaultDepartureLimit = 1000
	maxDepartureLimit     = 5000
)

var Now = time.Now

func DeparturesRouter(router fiber.Router, store Store) {
	router.Get("/", func(c *fiber.Ctx) error {
		return listDepartures(c, store)
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	c.SendStatus(fiber.StatusBadRequest)
	return c.JSON(fiber.Map{
		"error": message,
	})
}

func queryInt(c *fiber.Ctx, key string, fallback int, minimum int, maximum int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < minimum || value > maximum {
		return 0, false
	}

	return value, true
}

func parseDate(value string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", value, timetables.Location)
}

func listDepartures(c *fiber.Ctx, store Store) error {
	now := Now().In(timetables.Location)
	query := database.DepartureQuery{
		Search: c.Query("q"),
	}

	limit, ok := queryInt(c, "limit", defaultDepartureLimit, 1, maxDepartureLimit)
	if !ok {
		return badRequest(c, "limit must be between 1 and 5000")
	}
	offset, ok := queryInt(c, "offset", 0, 0, math.MaxInt)
	if !ok {
		return badRequest(c, "offset must not be negative")
	}
	query.Limit = limit
	query.Offset = offset

	if raw := c.Query("route_id"); raw != "" {
		routeID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return badRequest(c, "route_id must be an integer")
		}
		query.RouteID = &routeID
	}

	hours, ok := queryInt(c, "since", defaultSinceHours, 1, maxSinceHours)
	if !ok {
		return badRequest(c, "since must be between 1 and 8760 hours")
	}

	var sinceHours *int
	if c.Query("since") != "" {
		sinceHours = &hours
	}

	dateFrom, dateTo := c.Query("date_from"), c.Query("date_to")

	switch {
	case c.QueryBool("all_time", false):
	case dateFrom != "" || dateTo != "":
		if dateFrom != "" {
			from, err := parseDate(dateFrom)
			if err != nil {
				return badRequest(c, "date_from must be YYYY-MM-DD")
			}
			query.From = from
		}
		if dateTo != "" {
			to, err := parseDate(dateTo)
			if err != nil {
				return badRequest(c, "date_to must be YYYY-MM-DD")
			}
			query.To = to.AddDate(0, 0, 1).Add(-time.Second)
		}
	default:
		query.From = now.Add(-time.Duration(hours) * time.Hour)
		query.To = now
	}

	records, total, err := store.QueryDepartures(c.UserContext(), query)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	groups := []string{"basic"}
	if c.QueryBool("detailed", false) {
		groups = append(groups, "detailed")
	}

	departuresReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, records)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sherrif could not reduce departures",
		})
	}

	return c.JSON(fiber.Map{
		"meta": fiber.Map{
			"since_hours": sinceHours,
			"limit":       limit,
			"offset":      offset,
			"count":       len(records),
			"total":       total,
			"now":         now.Format(time.RFC3339),
		},
		"departures": departuresReduced,
	})
}
