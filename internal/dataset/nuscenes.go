package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/nuscenes-xviz/internal/monitoring"
	"github.com/banshee-data/nuscenes-xviz/internal/security"
)

// LoadNuScenes reads the JSON tables of one dataset version from
// <dataRoot>/<version>/ into a MemoryStore.
func LoadNuScenes(dataRoot, version string) (*MemoryStore, error) {
	dir, err := security.ResolveWithin(dataRoot, version)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset version %q: %w", version, err)
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return nil, fmt.Errorf("dataset tables not found at %s", dir)
	}

	var t Tables
	tables := []struct {
		name string
		dst  any
	}{
		{"scene", &t.Scenes},
		{"log", &t.Logs},
		{"sample", &t.Samples},
		{"sample_data", &t.SampleData},
		{"ego_pose", &t.EgoPoses},
		{"calibrated_sensor", &t.CalibratedSensors},
		{"sensor", &t.Sensors},
		{"sample_annotation", &t.Annotations},
		{"instance", &t.Instances},
		{"category", &t.Categories},
	}
	for _, tbl := range tables {
		if err := readTable(filepath.Join(dir, tbl.name+".json"), tbl.dst); err != nil {
			return nil, err
		}
	}
	monitoring.Logf("[dataset] loaded %s: %d scenes, %d samples, %d sample_data, %d annotations",
		version, len(t.Scenes), len(t.Samples), len(t.SampleData), len(t.Annotations))
	return NewMemoryStore(t), nil
}

func readTable(path string, dst any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(dst); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
