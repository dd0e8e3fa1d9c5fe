package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// WriteDataset writes the fixtures as nuScenes JSON tables under
// <root>/<version>/ and returns root.
func WriteDataset(t testing.TB, root, version string, fixtures ...SceneFixture) string {
	t.Helper()
	dir := filepath.Join(root, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", dir, err)
	}
	tables := MergeTables(fixtures...)
	for name, v := range map[string]any{
		"scene":             tables.Scenes,
		"log":               tables.Logs,
		"sample":            tables.Samples,
		"sample_data":       tables.SampleData,
		"ego_pose":          tables.EgoPoses,
		"calibrated_sensor": tables.CalibratedSensors,
		"sensor":            tables.Sensors,
		"sample_annotation": tables.Annotations,
		"instance":          tables.Instances,
		"category":          tables.Categories,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to encode %s: %v", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return root
}
