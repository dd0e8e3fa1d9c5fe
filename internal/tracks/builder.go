package tracks

import (
	"sort"

	"github.com/banshee-data/nuscenes-xviz/internal/monitoring"
)

// Observation is one annotation of one instance at one frame.
type Observation struct {
	InstanceID string
	Category   string
	Sample
}

// Builder accumulates observations during the scene pre-scan.
type Builder struct {
	tracks map[string]*Track
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{tracks: make(map[string]*Track)}
}

// Add appends an observation to its instance's track.
func (b *Builder) Add(o Observation) {
	t, ok := b.tracks[o.InstanceID]
	if !ok {
		t = &Track{InstanceID: o.InstanceID, Category: o.Category}
		b.tracks[o.InstanceID] = t
	}
	t.Samples = append(t.Samples, o.Sample)
}

// Build sorts every track by timestamp and returns the frozen index. Samples
// sharing a timestamp with an earlier one are dropped so timestamps stay
// strictly increasing.
func (b *Builder) Build() *Index {
	ix := &Index{tracks: b.tracks, ids: make([]string, 0, len(b.tracks))}
	for id, t := range b.tracks {
		sort.SliceStable(t.Samples, func(i, j int) bool {
			return t.Samples[i].Timestamp < t.Samples[j].Timestamp
		})
		kept := t.Samples[:0]
		for _, s := range t.Samples {
			if n := len(kept); n > 0 && s.Timestamp-kept[n-1].Timestamp <= timeEpsilon {
				monitoring.Logf("[tracks] instance %s: duplicate sample at %.6f dropped", id, s.Timestamp)
				continue
			}
			kept = append(kept, s)
		}
		t.Samples = kept
		ix.ids = append(ix.ids, id)
	}
	sort.Strings(ix.ids)
	b.tracks = make(map[string]*Track)
	return ix
}

// Build groups per-frame observations into tracks in one pass.
func Build(frames [][]Observation) *Index {
	b := NewBuilder()
	for _, frame := range frames {
		for _, o := range frame {
			b.Add(o)
		}
	}
	return b.Build()
}

// Index maps instance ids to their tracks. It is read-only and safe for
// concurrent use.
type Index struct {
	tracks map[string]*Track
	ids    []string
}

// Track returns the track of an instance.
func (ix *Index) Track(instanceID string) (*Track, bool) {
	t, ok := ix.tracks[instanceID]
	return t, ok
}

// IDs returns every instance id in lexical order.
func (ix *Index) IDs() []string {
	return ix.ids
}

// Len returns the number of tracks.
func (ix *Index) Len() int {
	return len(ix.ids)
}
