// Command xvizconv converts nuScenes scenes to XVIZ and serves them.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/banshee-data/nuscenes-xviz/internal/monitoring"
	"github.com/banshee-data/nuscenes-xviz/internal/version"
)

const (
	// Flags.
	flagConfig     = "config"
	flagQuiet      = "quiet"
	flagDataRoot   = "data-root"
	flagVersion    = "dataset-version"
	flagScene      = "scene"
	flagOutput     = "output"
	flagLimit      = "limit"
	flagDB         = "db"
	flagFormat     = "format"
	flagFrame      = "frame"
	flagWorkers    = "workers"
	flagGRPCListen = "listen"
	flagHTTPListen = "http"
	flagRecorded   = "recorded"
	flagMaxClients = "max-clients"
	flagMaxRate    = "max-rate"
	flagUnit       = "unit"
)

func newApp() *cli.App {
	return &cli.App{
		Name:    "xvizconv",
		Usage:   "convert nuScenes logs to XVIZ",
		Version: version.Get().String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load conversion settings from `FILE` (.json, .yaml or .yml)",
			},
			&cli.BoolFlag{
				Name:    flagQuiet,
				Aliases: []string{"q"},
				Usage:   "suppress diagnostic logging and progress bars",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagQuiet) {
				monitoring.SetLogger(nil)
			}
			return nil
		},
		Commands: []*cli.Command{
			convertCommand(),
			importCommand(),
			serveCommand(),
			reportCommand(),
			{
				Name:  "version",
				Usage: "print build information",
				Action: func(c *cli.Context) error {
					info := version.Get()
					_, err := c.App.Writer.Write([]byte("xvizconv " + info.String() + " " + info.GoVersion + "\n"))
					return err
				},
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
