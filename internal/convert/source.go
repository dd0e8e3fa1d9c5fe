package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/nuscenes-xviz/internal/dataset"
	"github.com/banshee-data/nuscenes-xviz/internal/xviz/server"
)

// LiveSource serves scenes converted on demand, one frame per Next call.
type LiveSource struct {
	deps   Deps
	opts   Options
	scenes []string
}

var _ server.SceneSource = (*LiveSource)(nil)

// NewLiveSource serves the named scenes from deps.
func NewLiveSource(deps Deps, opts Options, scenes []string) *LiveSource {
	return &LiveSource{deps: deps, opts: opts, scenes: scenes}
}

// Scenes returns the served scene names.
func (s *LiveSource) Scenes() []string { return slices.Clone(s.scenes) }

// Open loads the scene and declares its streams.
func (s *LiveSource) Open(_ context.Context, scene string) (server.SceneStream, error) {
	if !slices.Contains(s.scenes, scene) {
		return nil, fmt.Errorf("%w: %s", server.ErrUnknownScene, scene)
	}
	sc, err := NewSceneConverter(s.deps, s.opts, scene)
	if errors.Is(err, dataset.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", server.ErrUnknownScene, err)
	}
	if err != nil {
		return nil, err
	}
	meta, err := sc.Metadata().Envelope()
	if err != nil {
		return nil, err
	}
	return &liveStream{sc: sc, meta: meta}, nil
}

type liveStream struct {
	sc   *SceneConverter
	meta *structpb.Struct
	next int
}

func (s *liveStream) Metadata() *structpb.Struct { return s.meta }

func (s *liveStream) Next(ctx context.Context) (*structpb.Struct, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if s.next >= s.sc.FrameCount() {
		return nil, 0, io.EOF
	}
	f, err := s.sc.ConvertFrame(s.next)
	if err != nil {
		return nil, 0, err
	}
	s.next++
	env, err := f.Envelope()
	if err != nil {
		return nil, 0, err
	}
	return env, f.Timestamp, nil
}

func (s *liveStream) Close() error { return nil }
