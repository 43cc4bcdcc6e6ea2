package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"

	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/config"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/converter"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/geo"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/gtfs"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/metrics"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/poller"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/realtime"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/server"
	"github.com/theoremus-urban-solutions/siri-to-gtfsrt/siri"
)

func main() {
	if os.Getenv("SIRI_GTFSRT_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	if os.Getenv("SIRI_GTFSRT_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "siri-to-gtfsrt",
		Description: "Bridges a SIRI Vehicle Monitoring service into GTFS-RT trip updates and vehicle positions",

		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Poll the SIRI endpoint and serve the derived feeds",
				Action: func(c *cli.Context) error {
					return run()
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func run() error {
	if err := config.LoadAppConfig(); err != nil {
		return err
	}
	cfg := config.Config

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	projector, err := geo.NewProjector(cfg.Projection)
	if err != nil {
		return err
	}

	store := realtime.NewStore()
	collector := metrics.NewCollector()
	matcher := converter.NewMatcher(cfg.Matcher)
	conv := converter.New(matcher, projector, store, collector, log.Logger)
	client := siri.NewClient(cfg.SIRI.Endpoint, cfg.SIRI.RequestorRef, time.Duration(cfg.SIRI.TimeoutMS)*time.Millisecond)
	snapshots := &gtfs.SnapshotHolder{}

	p := poller.New(cfg, client, conv, store, snapshots, collector, log.Logger)
	log.Info().Msg("Loading static schedule")
	if err := p.Bootstrap(ctx); err != nil {
		return err
	}

	srv := server.New(cfg.Server.Port, store, collector, log.Logger)
	srv.Start(ctx)

	p.Run(ctx)
	log.Info().Msg("Shutdown complete")
	return nil
}
