package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/banshee-data/nuscenes-xviz/internal/config"
	"github.com/banshee-data/nuscenes-xviz/internal/convert"
	"github.com/banshee-data/nuscenes-xviz/internal/dataset"
	"github.com/banshee-data/nuscenes-xviz/internal/dataset/sqlite"
	"github.com/banshee-data/nuscenes-xviz/internal/mapgeom/nuscenesmap"
	"github.com/banshee-data/nuscenes-xviz/internal/sensor"
)

// datasetFlags select the dataset and the scenes to work on.
func datasetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: flagDataRoot, Usage: "nuScenes dataset root `DIR`"},
		&cli.StringFlag{Name: flagVersion, Usage: "dataset version directory, e.g. v1.0-mini"},
		&cli.StringFlag{Name: flagScene, Aliases: []string{"s"}, Usage: "split name, all, a scene name or a comma list"},
		&cli.StringFlag{Name: flagDB, Usage: "read records from the SQLite `FILE` written by import"},
		&cli.IntFlag{Name: flagLimit, Usage: "convert at most `N` frames per scene (0 = all)"},
	}
}

// loadConfig reads the --config file, if any, and applies flag overrides.
func loadConfig(c *cli.Context) (*config.ConvertConfig, error) {
	cfg := &config.ConvertConfig{}
	if path := c.String(flagConfig); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	overrides := []struct {
		flag string
		dst  **string
	}{
		{flagDataRoot, &cfg.DataRoot},
		{flagVersion, &cfg.Version},
		{flagScene, &cfg.Scenes},
		{flagDB, &cfg.DatasetDB},
		{flagOutput, &cfg.OutputDir},
		{flagFormat, &cfg.Format},
		{flagFrame, &cfg.CoordinateFrame},
	}
	for _, s := range overrides {
		if c.IsSet(s.flag) {
			*s.dst = config.Ptr(c.String(s.flag))
		}
	}
	if c.IsSet(flagLimit) {
		cfg.SampleLimit = config.Ptr(c.Int(flagLimit))
	}
	if c.IsSet(flagWorkers) {
		cfg.Workers = config.Ptr(c.Int(flagWorkers))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore opens the SQLite dataset when one is configured, otherwise it
// loads the JSON tables. The returned DB is nil for the JSON store.
func openStore(cfg *config.ConvertConfig) (dataset.Store, *sqlite.DB, error) {
	if path := cfg.GetDatasetDB(); path != "" {
		db, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open dataset database: %w", err)
		}
		return sqlite.NewStore(db), db, nil
	}
	store, err := dataset.LoadNuScenes(cfg.GetDataRoot(), cfg.GetVersion())
	if err != nil {
		return nil, nil, err
	}
	return store, nil, nil
}

func newDeps(cfg *config.ConvertConfig, store dataset.Store) convert.Deps {
	return convert.Deps{
		Store:    store,
		Payloads: sensor.NewLoader(cfg.GetDataRoot()),
		Map:      nuscenesmap.NewExplorer(cfg.GetDataRoot(), nil),
	}
}
