package convert

import (
	"os"

	"github.com/pterm/pterm"
	"golang.org/x/term"

	"github.com/banshee-data/nuscenes-xviz/internal/monitoring"
)

// Progress observes the frames written for one scene.
type Progress interface {
	Increment()
	Done()
}

// ProgressFunc starts progress reporting for a scene of total frames.
type ProgressFunc func(scene string, total int) Progress

// logEvery is the frame interval between log progress lines.
const logEvery = 10

// NewProgress shows a progress bar when stdout is a terminal and falls back
// to periodic log lines otherwise.
func NewProgress(scene string, total int) Progress {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		bar, err := pterm.DefaultProgressbar.WithTotal(total).WithTitle(scene).Start()
		if err == nil {
			return &barProgress{bar: bar}
		}
	}
	return &logProgress{scene: scene, total: total}
}

// NoProgress discards progress.
func NoProgress(string, int) Progress { return nopProgress{} }

type barProgress struct {
	bar *pterm.ProgressbarPrinter
}

func (p *barProgress) Increment() { p.bar.Increment() }

func (p *barProgress) Done() { _, _ = p.bar.Stop() }

type logProgress struct {
	scene string
	total int
	n     int
}

func (p *logProgress) Increment() {
	p.n++
	if p.n%logEvery == 0 && p.n < p.total {
		monitoring.Logf("[convert] %s: %d/%d frames", p.scene, p.n, p.total)
	}
}

func (p *logProgress) Done() {}

type nopProgress struct{}

func (nopProgress) Increment() {}
func (nopProgress) Done()      {}
