package setup

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/travigo/dblive/pkg/config"
	"github.com/travigo/dblive/pkg/connections"
	"github.com/travigo/dblive/pkg/ctdf"
	"github.com/urfave/cli/v2"
)

var configFlag = &cli.StringFlag{
	Name:    "config",
	Usage:   "optional YAML config file",
	EnvVars: []string{"DBLIVE_CONFIG"},
}

func RegisterConnectionsCLI() *cli.Command {
	return &cli.Command{
		Name:  "connections",
		Usage: "List direct departures between two stations",
		Flags: []cli.Flag{
			configFlag,
			&cli.StringFlag{
				Name:     "from",
				Usage:    "origin station name",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "to",
				Usage:    "destination station name",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "window",
				Value: "1",
				Usage: "window length as hours or an ISO-8601 duration",
			},
			&cli.BoolFlag{
				Name:  "store",
				Usage: "persist the departures found",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "repeat the lookup on this interval until interrupted",
			},
		},
		Action: func(c *cli.Context) error {
			window, err := config.ParseWindow(c.String("window"))
			if err != nil {
				return err
			}

			services, err := Build(c.String("config"))
			if err != nil {
				return err
			}
			defer services.Close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			for {
				lookupWindow := connections.Window{Start: time.Now(), Duration: window}

				var result *connections.Result
				if c.Bool("store") {
					var stored ctdf.UpsertResult
					result, stored, err = services.Pipeline.RunAndStore(ctx, c.String("from"), c.String("to"), lookupWindow)
					if err == nil {
						log.Info().Int("inserted", stored.Inserted).Int("updated", stored.Updated).Msg("Stored departures")
					}
				} else {
					result, err = services.Pipeline.Run(ctx, c.String("from"), c.String("to"), lookupWindow)
				}
				if err != nil {
					return err
				}

				printResult(result)

				if c.Duration("interval") <= 0 {
					return nil
				}

				select {
				case <-ctx.Done():
					return nil
				case <-time.After(c.Duration("interval")):
				}
			}
		},
	}
}

func printResult(result *connections.Result) {
	fmt.Printf("%s -> %s (%s)\n", result.Origin, result.Destination, result.Window.Start.Format(time.RFC3339))

	if len(result.Departures) == 0 {
		fmt.Println("No direct departures found")
		return
	}

	for _, departure := range result.Departures {
		fmt.Println(connections.FormatRow(departure))
	}
}

func RegisterStationsCLI() *cli.Command {
	return &cli.Command{
		Name:  "stations",
		Usage: "Look up stations in the timetables API",
		Subcommands: []*cli.Command{
			{
				Name:      "lookup",
				Usage:     "list candidate stations for a name",
				ArgsUsage: "<pattern>",
				Flags:     []cli.Flag{configFlag},
				Action: func(c *cli.Context) error {
					pattern := c.Args().First()
					if pattern == "" {
						return cli.Exit("a station name is required", 1)
					}

					services, err := Build(c.String("config"))
					if err != nil {
						return err
					}
					defer services.Close()

					candidates, err := services.Resolver.Candidates(c.Context, pattern)
					if err != nil {
						return err
					}

					pretty.Println(candidates)

					return nil
				},
			},
		},
	}
}

func RegisterPollerCLI() *cli.Command {
	return &cli.Command{
		Name:  "poller",
		Usage: "Poll the configured routes and store their departures",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the polling loop until interrupted, requires POLLING_ENABLED=true",
				Flags: []cli.Flag{configFlag},
				Action: func(c *cli.Context) error {
					services, err := Build(c.String("config"))
					if err != nil {
						return err
					}
					defer services.Close()

					ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
					defer stop()

					p, err := services.StartPoller(ctx)
					if err != nil {
						return err
					}
					p.Wait()

					return nil
				},
			},
		},
	}
}
