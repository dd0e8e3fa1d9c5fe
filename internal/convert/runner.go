package convert

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/nuscenes-xviz/internal/fsutil"
	"github.com/banshee-data/nuscenes-xviz/internal/monitoring"
	"github.com/banshee-data/nuscenes-xviz/internal/security"
	"github.com/banshee-data/nuscenes-xviz/internal/xviz"
	"github.com/banshee-data/nuscenes-xviz/internal/xviz/recorder"
)

// SceneResult summarises one converted scene.
type SceneResult struct {
	Scene   string
	Frames  int
	Path    string
	Dropped int
}

// Runner converts scenes and writes each to <OutputDir>/<scene>.
type Runner struct {
	Deps      Deps
	Opts      Options
	Format    xviz.Format
	OutputDir string
	FS        fsutil.FileSystem
	// Workers > 1 converts frames concurrently; output order is unchanged.
	Workers  int
	Progress ProgressFunc
}

func (r *Runner) workers() int {
	if r.Workers < 1 {
		return 1
	}
	return r.Workers
}

// ConvertAll converts every named scene. A failing scene does not stop the
// others; the returned error combines every failure.
func (r *Runner) ConvertAll(ctx context.Context, names []string) ([]SceneResult, error) {
	var (
		results []SceneResult
		errs    error
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, multierr.Append(errs, err)
		}
		res, err := r.ConvertScene(ctx, name)
		if err != nil {
			monitoring.Logf("[convert] %s failed: %v", name, err)
			errs = multierr.Append(errs, fmt.Errorf("scene %s: %w", name, err))
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

// ConvertScene converts one scene and records it.
func (r *Runner) ConvertScene(ctx context.Context, name string) (res SceneResult, err error) {
	sc, err := NewSceneConverter(r.Deps, r.Opts, name)
	if err != nil {
		return res, err
	}
	fs := r.FS
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	dir := filepath.Join(r.OutputDir, security.SanitizeFilename(name))
	w, err := recorder.NewWriter(fs, dir, name, r.Format)
	if err != nil {
		return res, err
	}
	defer func() {
		err = multierr.Append(err, w.Close())
	}()

	meta, err := sc.Metadata().Envelope()
	if err != nil {
		return res, fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := w.WriteMetadata(meta); err != nil {
		return res, err
	}

	progress := r.Progress
	if progress == nil {
		progress = NoProgress
	}
	p := progress(name, sc.FrameCount())
	defer p.Done()

	n := sc.FrameCount()
	window := r.workers() * 2
	for start := 0; start < n; start += window {
		end := min(start+window, n)
		frames, err := r.convertWindow(ctx, sc, start, end)
		if err != nil {
			return res, err
		}
		for k, f := range frames {
			env, err := f.Envelope()
			if err != nil {
				return res, fmt.Errorf("failed to encode frame %d: %w", start+k, err)
			}
			if err := w.WriteFrame(start+k, f.Timestamp, env); err != nil {
				return res, err
			}
			p.Increment()
		}
	}

	sc.Scene().Audit.Report("[convert] " + name + ":")
	res = SceneResult{
		Scene:   name,
		Frames:  n,
		Path:    w.Path(),
		Dropped: sc.Scene().Audit.Total(DropUnmappedCategory),
	}
	monitoring.Logf("[convert] %s: %d/%d frames -> %s", name, n, n, res.Path)
	return res, nil
}

// convertWindow converts frames [start, end) with up to Workers goroutines
// and returns them in index order.
func (r *Runner) convertWindow(ctx context.Context, sc *SceneConverter, start, end int) ([]*xviz.Frame, error) {
	frames := make([]*xviz.Frame, end-start)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i := start; i < end; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := sc.ConvertFrame(i)
			if err != nil {
				return err
			}
			frames[i-start] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frames, nil
}
