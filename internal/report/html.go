package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/nuscenes-xviz/internal/units"
)

// DefaultAssetsHost serves the echarts scripts.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// PageOptions controls the statistics page.
type PageOptions struct {
	SpeedUnit  string // units.MPS, units.KPH or units.MPH
	AssetsHost string
}

func frameAxis(s SceneStats) []string {
	x := make([]string, len(s.Frames))
	for i, f := range s.Frames {
		x[i] = strconv.Itoa(f.Index)
	}
	return x
}

// RenderStats writes the statistics page of s to w.
func RenderStats(w io.Writer, s SceneStats, o PageOptions) error {
	if o.AssetsHost == "" {
		o.AssetsHost = DefaultAssetsHost
	}
	x := frameAxis(s)

	objects := make([]opts.LineData, len(s.Frames))
	predicted := make([]opts.LineData, len(s.Frames))
	speed := make([]opts.LineData, len(s.Frames))
	for i, f := range s.Frames {
		objects[i] = opts.LineData{Value: f.Objects}
		predicted[i] = opts.LineData{Value: f.Predicted}
		speed[i] = opts.LineData{Value: units.ConvertSpeed(f.EgoSpeed, o.SpeedUnit)}
	}

	counts := charts.NewLine()
	counts.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: s.Scene, Width: "100%", Height: "420px", AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Objects per frame", Subtitle: fmt.Sprintf("scene=%s frames=%d dropped=%d", s.Scene, len(s.Frames), s.Dropped)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame"}),
	)
	counts.SetXAxis(x).
		AddSeries("annotated", objects).
		AddSeries("predicted", predicted)

	maxSpeed, meanSpeed := s.EgoSpeedSummary()
	label := units.Label(o.SpeedUnit)
	ego := charts.NewLine()
	ego.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px", AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Ego speed", Subtitle: fmt.Sprintf("max %.1f %s, mean %.1f %s",
			units.ConvertSpeed(maxSpeed, o.SpeedUnit), label, units.ConvertSpeed(meanSpeed, o.SpeedUnit), label)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame"}),
		charts.WithYAxisOpts(opts.YAxis{Name: label}),
	)
	ego.SetXAxis(x).AddSeries("ego", speed)

	classes, totals := s.ClassTotals()
	classData := make([]opts.BarData, len(totals))
	for i, n := range totals {
		classData[i] = opts.BarData{Value: n}
	}
	byClass := charts.NewBar()
	byClass.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px", AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Annotations by class"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	byClass.SetXAxis(classes).
		AddSeries("annotations", classData,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	sources := make([]string, 0, len(s.Sources))
	for k := range s.Sources {
		sources = append(sources, k)
	}
	sort.Strings(sources)
	sourceData := make([]opts.PieData, len(sources))
	for i, k := range sources {
		sourceData[i] = opts.PieData{Name: k, Value: s.Sources[k]}
	}
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px", AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Prediction velocity source"}),
	)
	pie.AddSeries("source", sourceData)

	page := components.NewPage()
	page.SetAssetsHost(o.AssetsHost)
	page.AddCharts(counts, ego, byClass, pie)
	return page.Render(w)
}
