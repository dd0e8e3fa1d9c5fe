package xviz

import (
	"fmt"
	"sort"
)

// Metadata is the immutable result of a MetadataBuilder.
type Metadata struct {
	Version   string
	StartTime float64
	EndTime   float64
	Streams   []StreamDeclaration
	index     map[string]int
}

// Stream returns the declaration of id.
func (m *Metadata) Stream(id string) (StreamDeclaration, bool) {
	i, ok := m.index[id]
	if !ok {
		return StreamDeclaration{}, false
	}
	return m.Streams[i], true
}

// MetadataBuilder collects stream declarations in declaration order.
type MetadataBuilder struct {
	streams []StreamDeclaration
	index   map[string]int
	start   float64
	end     float64
}

// NewMetadataBuilder returns an empty builder.
func NewMetadataBuilder() *MetadataBuilder {
	return &MetadataBuilder{index: make(map[string]int)}
}

// Declare adds a stream. Declaring the same id twice is an error.
func (b *MetadataBuilder) Declare(d StreamDeclaration) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if _, dup := b.index[d.StreamID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateStream, d.StreamID)
	}
	b.index[d.StreamID] = len(b.streams)
	b.streams = append(b.streams, d)
	return nil
}

// SetTimeRange records the log start and end time in seconds.
func (b *MetadataBuilder) SetTimeRange(start, end float64) {
	b.start, b.end = start, end
}

// Build returns the metadata. The builder may keep being used; later
// declarations do not affect earlier results.
func (b *MetadataBuilder) Build() *Metadata {
	m := &Metadata{
		Version:   Version,
		StartTime: b.start,
		EndTime:   b.end,
		Streams:   append([]StreamDeclaration(nil), b.streams...),
		index:     make(map[string]int, len(b.index)),
	}
	for k, v := range b.index {
		m.index[k] = v
	}
	return m
}

// Frame is one converted state update.
type Frame struct {
	Index      int
	Timestamp  float64
	Poses      map[string]PoseSample
	Primitives map[string][]Primitive
	Futures    map[string]*FutureInstances
}

// StreamIDs returns every stream with data in the frame, sorted.
func (f *Frame) StreamIDs() []string {
	ids := make([]string, 0, len(f.Poses)+len(f.Primitives)+len(f.Futures))
	for id := range f.Poses {
		ids = append(ids, id)
	}
	for id := range f.Primitives {
		ids = append(ids, id)
	}
	for id := range f.Futures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PrimitiveCount is the number of primitives across streams, futures
// included.
func (f *Frame) PrimitiveCount() int {
	n := 0
	for _, ps := range f.Primitives {
		n += len(ps)
	}
	for _, fi := range f.Futures {
		for _, ps := range fi.Primitives {
			n += len(ps)
		}
	}
	return n
}

// FrameBuilder accumulates one frame's data and checks every write against
// the metadata.
type FrameBuilder struct {
	meta  *Metadata
	frame *Frame
}

// NewFrameBuilder starts frame index at timestamp ts.
func NewFrameBuilder(meta *Metadata, index int, ts float64) *FrameBuilder {
	return &FrameBuilder{
		meta: meta,
		frame: &Frame{
			Index:      index,
			Timestamp:  ts,
			Poses:      make(map[string]PoseSample),
			Primitives: make(map[string][]Primitive),
			Futures:    make(map[string]*FutureInstances),
		},
	}
}

func (b *FrameBuilder) declared(stream string, cat Category) (StreamDeclaration, error) {
	d, ok := b.meta.Stream(stream)
	if !ok {
		return d, fmt.Errorf("%w: %s", ErrUndeclaredStream, stream)
	}
	if d.Category != cat {
		return d, fmt.Errorf("%w: %s is %s, not %s", ErrPrimitiveMismatch, stream, d.Category, cat)
	}
	return d, nil
}

func checkPrimitive(d StreamDeclaration, p Primitive) error {
	if p.Type != d.PrimitiveType {
		return fmt.Errorf("%w: %s expects %s, got %s", ErrPrimitiveMismatch, d.StreamID, d.PrimitiveType, p.Type)
	}
	return p.Validate()
}

// Pose sets the pose of a pose stream.
func (b *FrameBuilder) Pose(stream string, p PoseSample) error {
	if _, err := b.declared(stream, CategoryPose); err != nil {
		return err
	}
	b.frame.Poses[stream] = p
	return nil
}

// Primitive appends a primitive to a primitive stream.
func (b *FrameBuilder) Primitive(stream string, p Primitive) error {
	d, err := b.declared(stream, CategoryPrimitive)
	if err != nil {
		return err
	}
	if err := checkPrimitive(d, p); err != nil {
		return err
	}
	b.frame.Primitives[stream] = append(b.frame.Primitives[stream], p)
	return nil
}

// Future appends a primitive predicted at timestamp ts to a future
// instance stream.
func (b *FrameBuilder) Future(stream string, ts float64, p Primitive) error {
	d, err := b.declared(stream, CategoryFutureInstance)
	if err != nil {
		return err
	}
	if err := checkPrimitive(d, p); err != nil {
		return err
	}
	fi, ok := b.frame.Futures[stream]
	if !ok {
		fi = &FutureInstances{}
		b.frame.Futures[stream] = fi
	}
	fi.add(ts, p)
	return nil
}

// Frame returns the accumulated frame.
func (b *FrameBuilder) Frame() *Frame {
	return b.frame
}
