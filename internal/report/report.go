package report

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/nuscenes-xviz/internal/convert"
	"github.com/banshee-data/nuscenes-xviz/internal/fsutil"
	"github.com/banshee-data/nuscenes-xviz/internal/monitoring"
	"github.com/banshee-data/nuscenes-xviz/internal/predict"
	"github.com/banshee-data/nuscenes-xviz/internal/security"
)

// Files are the paths written by Write.
type Files struct {
	BEV   string
	Stats string
}

// Write renders both reports of scene into dir as <scene>_bev.png and
// <scene>_stats.html.
func Write(fs fsutil.FileSystem, dir string, scene *convert.Scene, cfg predict.Config, o PageOptions) (Files, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("failed to create report directory: %w", err)
	}
	base := security.SanitizeFilename(scene.Name())
	files := Files{
		BEV:   filepath.Join(dir, base+"_bev.png"),
		Stats: filepath.Join(dir, base+"_stats.html"),
	}

	png, err := RenderBEV(scene)
	if err != nil {
		return files, err
	}
	if err := fs.WriteFile(files.BEV, png, 0o644); err != nil {
		return files, fmt.Errorf("failed to write %s: %w", files.BEV, err)
	}

	var html bytes.Buffer
	if err := RenderStats(&html, Collect(scene, cfg), o); err != nil {
		return files, fmt.Errorf("failed to render statistics: %w", err)
	}
	if err := fs.WriteFile(files.Stats, html.Bytes(), 0o644); err != nil {
		return files, fmt.Errorf("failed to write %s: %w", files.Stats, err)
	}
	monitoring.Logf("[report] %s: wrote %s and %s", scene.Name(), files.BEV, files.Stats)
	return files, nil
}
