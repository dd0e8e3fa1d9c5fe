package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/banshee-data/nuscenes-xviz/internal/convert"
	"github.com/banshee-data/nuscenes-xviz/internal/dataset"
	"github.com/banshee-data/nuscenes-xviz/internal/fsutil"
	"github.com/banshee-data/nuscenes-xviz/internal/report"
	"github.com/banshee-data/nuscenes-xviz/internal/units"
	"github.com/banshee-data/nuscenes-xviz/internal/xviz"
)

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "write a bird's-eye-view PNG and a statistics page per scene",
		Flags: append(datasetFlags(),
			&cli.StringFlag{Name: flagOutput, Aliases: []string{"o"}, Usage: "output `DIR`"},
			&cli.StringFlag{Name: flagUnit, Value: units.MPS, Usage: "speed unit: " + units.ValidUnitsString()},
		),
		Action: reportAction,
	}
}

func reportAction(c *cli.Context) error {
	unit := c.String(flagUnit)
	if !units.IsValid(unit) {
		return fmt.Errorf("unknown speed unit %q, want one of %s", unit, units.ValidUnitsString())
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	names, err := dataset.ResolveScenes(store, cfg.GetScenes())
	if err != nil {
		return err
	}

	var errs error
	for _, name := range names {
		if err := c.Context.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		scene, err := convert.LoadScene(store, name, cfg.GetSampleLimit(), xviz.World)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("scene %s: %w", name, err))
			continue
		}
		files, err := report.Write(fsutil.OSFileSystem{}, cfg.GetOutputDir(), scene, cfg.PredictConfig(),
			report.PageOptions{SpeedUnit: unit})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("scene %s: %w", name, err))
			continue
		}
		fmt.Fprintf(c.App.Writer, "%s: %s, %s\n", name, files.BEV, files.Stats)
	}
	return errs
}
