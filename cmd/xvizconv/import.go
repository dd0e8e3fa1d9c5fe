package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/banshee-data/nuscenes-xviz/internal/dataset"
	"github.com/banshee-data/nuscenes-xviz/internal/dataset/sqlite"
)

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "copy the nuScenes JSON tables into a SQLite database",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagDataRoot, Usage: "nuScenes dataset root `DIR`"},
			&cli.StringFlag{Name: flagVersion, Usage: "dataset version directory, e.g. v1.0-mini"},
			&cli.StringFlag{Name: flagDB, Usage: "destination SQLite `FILE`"},
		},
		Action: importAction,
	}
}

func importAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	path := cfg.GetDatasetDB()
	if path == "" {
		return errors.New("import needs a destination: pass --db or set dataset_db")
	}

	src, err := dataset.LoadNuScenes(cfg.GetDataRoot(), cfg.GetVersion())
	if err != nil {
		return err
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open dataset database: %w", err)
	}
	defer db.Close()

	stats, err := sqlite.Import(c.Context, db, src, cfg.GetVersion())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "imported %d scenes, %d samples, %d sample_data, %d annotations into %s (run %s)\n",
		stats.Scenes, stats.Samples, stats.SampleData, stats.Annotations, path, stats.RunID)
	return nil
}
