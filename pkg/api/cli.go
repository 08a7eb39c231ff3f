package api

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/travigo/dblive/pkg/geocoder"
	"github.com/travigo/dblive/pkg/setup"
	"github.com/travigo/dblive/pkg/util"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the read-only departures API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
					&cli.StringFlag{
						Name:    "config",
						Usage:   "optional YAML config file",
						EnvVars: []string{"DBLIVE_CONFIG"},
					},
				},
				Action: func(c *cli.Context) error {
					services, err := setup.Build(c.String("config"))
					if err != nil {
						return err
					}
					defer services.Close()

					ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
					defer stop()

					deps := Dependencies{
						Store:    services.Store,
						Geocoder: geocoder.NewNominatim(util.GetEnvironmentVariable("DBLIVE_NOMINATIM_URL", "")),
						Metrics:  services.Metrics,
					}

					p, err := services.StartPoller(ctx)
					switch {
					case errors.Is(err, setup.ErrPollingDisabled):
						log.Info().Msg("Polling disabled")
					case err != nil:
						log.Warn().Err(err).Msg("Poller not started")
					default:
						defer p.Wait()
						defer p.Stop()

						deps.Poller = p
					}

					webApp := NewApp(deps)

					go func() {
						<-ctx.Done()
						if err := webApp.Shutdown(); err != nil {
							log.Error().Err(err).Msg("Failed to shut down web server")
						}
					}()

					log.Info().Str("listen", c.String("listen")).Msg("Starting web API")

					return webApp.Listen(c.String("listen"))
				},
			},
		},
	}
}
