package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/banshee-data/nuscenes-xviz/internal/convert"
	"github.com/banshee-data/nuscenes-xviz/internal/dataset"
	"github.com/banshee-data/nuscenes-xviz/internal/fsutil"
)

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:  "convert",
		Usage: "convert scenes to XVIZ logs under the output directory",
		Flags: append(datasetFlags(),
			&cli.StringFlag{Name: flagOutput, Aliases: []string{"o"}, Usage: "output `DIR`; each scene gets a subdirectory"},
			&cli.StringFlag{Name: flagFormat, Usage: "json or protobuf"},
			&cli.StringFlag{Name: flagFrame, Usage: "world or vehicle"},
			&cli.IntFlag{Name: flagWorkers, Usage: "convert `N` frames concurrently"},
		),
		Action: convertAction,
	}
}

func convertAction(c *cli.Context) error {
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

	progress := convert.NewProgress
	if c.Bool(flagQuiet) {
		progress = convert.NoProgress
	}
	r := &convert.Runner{
		Deps:      newDeps(cfg, store),
		Opts:      convert.OptionsFromConfig(cfg),
		Format:    cfg.GetFormat(),
		OutputDir: cfg.GetOutputDir(),
		FS:        fsutil.OSFileSystem{},
		Workers:   cfg.GetWorkers(),
		Progress:  progress,
	}
	results, err := r.ConvertAll(c.Context, names)
	for _, res := range results {
		fmt.Fprintf(c.App.Writer, "%s: %d frames -> %s", res.Scene, res.Frames, res.Path)
		if res.Dropped > 0 {
			fmt.Fprintf(c.App.Writer, " (%d annotations with unmapped categories)", res.Dropped)
		}
		fmt.Fprintln(c.App.Writer)
	}
	return err
}
