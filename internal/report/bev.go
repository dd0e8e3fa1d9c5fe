package report

import (
	"bytes"
	"fmt"
	"image/color"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/nuscenes-xviz/internal/convert"
)

// BEVSize is the edge length of the square bird's-eye image.
const BEVSize = 8 * vg.Inch

var egoColor = color.RGBA{R: 87, G: 173, B: 87, A: 255}

func rgba(c [4]uint8) color.NRGBA {
	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}

// BEV plots the scene in world coordinates: the ego path, every object's
// trail and the object footprints of the last frame.
func BEV(scene *convert.Scene) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - bird's-eye view", scene.Name())
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	p.Add(plotter.NewGrid())

	if scene.Len() > 0 {
		ego := make(plotter.XYs, scene.Len())
		for i, pose := range scene.Poses {
			ego[i] = plotter.XY{X: pose.Position.X, Y: pose.Position.Y}
		}
		line, err := plotter.NewLine(ego)
		if err != nil {
			return nil, fmt.Errorf("ego path: %w", err)
		}
		line.Color = egoColor
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add("ego", line)
	}

	ids := scene.Tracks.IDs()
	sort.Strings(ids)
	legend := make(map[string]bool)
	for _, id := range ids {
		track, _ := scene.Tracks.Track(id)
		if len(track.Samples) < 2 {
			continue
		}
		trail := make(plotter.XYs, len(track.Samples))
		for k, s := range track.Samples {
			trail[k] = plotter.XY{X: s.Position.X, Y: s.Position.Y}
		}
		line, err := plotter.NewLine(trail)
		if err != nil {
			return nil, fmt.Errorf("trail %s: %w", id, err)
		}
		_, stroke := convert.ClassColors(track.Category)
		line.Color = rgba(stroke)
		line.Width = vg.Points(convert.TrajectoryWidth(track.Category))
		p.Add(line)
		if !legend[track.Category] {
			legend[track.Category] = true
			p.Legend.Add(track.Category, line)
		}
	}

	if last := scene.Len() - 1; last >= 0 {
		for _, a := range scene.Annotations[last] {
			corners := a.Box().Footprint()
			xys := make(plotter.XYs, len(corners))
			for k, c := range corners {
				xys[k] = plotter.XY{X: c.X, Y: c.Y}
			}
			poly, err := plotter.NewPolygon(xys)
			if err != nil {
				return nil, fmt.Errorf("box %s: %w", a.InstanceToken, err)
			}
			fill, stroke := convert.ClassColors(a.Class)
			poly.Color = rgba(fill)
			poly.LineStyle.Color = rgba(stroke)
			poly.LineStyle.Width = vg.Points(0.5)
			p.Add(poly)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// RenderBEV encodes the bird's-eye plot as PNG.
func RenderBEV(scene *convert.Scene) ([]byte, error) {
	p, err := BEV(scene)
	if err != nil {
		return nil, err
	}
	w, err := p.WriterTo(BEVSize, BEVSize, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to render plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode plot: %w", err)
	}
	return buf.Bytes(), nil
}
