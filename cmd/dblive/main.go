package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/dblive/pkg/api"
	"github.com/travigo/dblive/pkg/export"
	"github.com/travigo/dblive/pkg/setup"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("DBLIVE_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if os.Getenv("DBLIVE_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "dblive",
		Description: "Tracks direct Deutsche Bahn departures between station pairs",

		Commands: []*cli.Command{
			api.RegisterCLI(),
			setup.RegisterConnectionsCLI(),
			setup.RegisterStationsCLI(),
			setup.RegisterPollerCLI(),
			export.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
