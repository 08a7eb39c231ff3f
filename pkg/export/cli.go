package export

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/travigo/dblive/pkg/database"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export stored departures as CSV",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "route-id",
				Usage: "only export this route",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "file to write, defaults to stdout",
			},
		},
		Action: func(c *cli.Context) error {
			store, err := database.OpenSQLite(database.DatabasePath())
			if err != nil {
				return err
			}
			defer store.Close()

			query := database.DepartureQuery{}
			if c.IsSet("route-id") {
				routeID := c.Int64("route-id")
				query.RouteID = &routeID
			}

			out := os.Stdout
			if c.String("output") != "" {
				out, err = os.Create(c.String("output"))
				if err != nil {
					return err
				}
				defer out.Close()
			}

			count, err := WriteDepartures(c.Context, store, query, out)
			if err != nil {
				return err
			}

			log.Info().Int("departures", count).Msg("Exported departures")

			return nil
		},
	}
}
