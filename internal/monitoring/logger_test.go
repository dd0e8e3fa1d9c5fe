package monitoring

import (
	"strings"
	"sync"
	"testing"
)

func swapLogger(t *testing.T) *Recorder {
	t.Helper()
	original := Logf
	t.Cleanup(func() { Logf = original })
	r := &Recorder{}
	SetLogger(r.Logf)
	return r
}

func TestSetLogger(t *testing.T) {
	r := swapLogger(t)
	Logf("[convert] %d frames", 3)
	if got := r.Lines(); len(got) != 1 || got[0] != "[convert] 3 frames" {
		t.Fatalf("captured %v", got)
	}

	SetLogger(nil)
	Logf("muted")
	if len(r.Lines()) != 1 {
		t.Error("nil logger should not forward messages")
	}
}

func TestRecorder_Concurrent(t *testing.T) {
	r := swapLogger(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			Logf("[convert] frame %d", i)
		}(i)
	}
	wg.Wait()
	if got := len(r.Lines()); got != 8 {
		t.Errorf("recorded %d lines, want 8", got)
	}
	if got := r.Matching("frame 7"); len(got) != 1 {
		t.Errorf("Matching(frame 7) = %v", got)
	}
}

func TestDropAudit(t *testing.T) {
	r := swapLogger(t)

	a := NewDropAudit()
	a.Record("annotations", "animal")
	a.Record("annotations", "animal")
	a.Record("annotations", "static_object.bicycle_rack")
	a.Record("sensor files", "CAM_FRONT")

	if got := a.Count("annotations", "animal"); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
	if got := a.Total("annotations"); got != 3 {
		t.Errorf("Total = %d, want 3", got)
	}
	if got, want := a.Summary("annotations"), "animal=2, static_object.bicycle_rack=1"; got != want {
		t.Errorf("Summary = %q, want %q", got, want)
	}

	a.Report("[convert] scene-0001:")
	lines := r.Lines()
	if len(lines) != 2 {
		t.Fatalf("Report logged %d lines, want 2: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "dropped 3 annotations") {
		t.Errorf("unexpected first line %q", lines[0])
	}
}
