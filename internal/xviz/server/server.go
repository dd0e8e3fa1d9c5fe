package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/nuscenes-xviz/internal/fsutil"
	"github.com/banshee-data/nuscenes-xviz/internal/security"
	"github.com/banshee-data/nuscenes-xviz/internal/timeutil"
	"github.com/banshee-data/nuscenes-xviz/internal/xviz/recorder"
)

// ErrUnknownScene is returned by a SceneSource for scenes it cannot serve.
var ErrUnknownScene = errors.New("unknown scene")

// SceneStream yields one scene's envelopes.
type SceneStream interface {
	Metadata() *structpb.Struct
	// Next returns the next state update and its log time in seconds, or
	// io.EOF after the last one.
	Next(ctx context.Context) (*structpb.Struct, float64, error)
	Close() error
}

// SceneSource opens scenes by name.
type SceneSource interface {
	Scenes() []string
	Open(ctx context.Context, scene string) (SceneStream, error)
}

// Config holds configuration for the scene server.
type Config struct {
	// ListenAddr is the gRPC listen address.
	ListenAddr string

	// MaxClients bounds concurrent streams; 0 means unlimited.
	MaxClients int

	// MaxRate caps the requested playback rate.
	MaxRate float64
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr: "localhost:50051",
		MaxClients: 5,
		MaxRate:    20,
	}
}

// Server implements SceneServer.
type Server struct {
	cfg    Config
	source SceneSource
	clock  timeutil.Clock

	mu   sync.Mutex
	grpc *grpc.Server

	clientCount atomic.Int32
	framesSent  atomic.Uint64
}

var _ SceneServer = (*Server)(nil)

// NewServer creates a server over source. A nil clock uses real time.
func NewServer(cfg Config, source SceneSource, clock timeutil.Clock) *Server {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Server{cfg: cfg, source: source, clock: clock}
}

// Register adds the service to gs.
func (s *Server) Register(gs *grpc.Server) {
	gs.RegisterService(&ServiceDesc, s)
}

// Serve listens on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	gs := grpc.NewServer()
	s.Register(gs)
	s.mu.Lock()
	s.grpc = gs
	s.mu.Unlock()
	log.Printf("[gRPC] scene server listening on %s", lis.Addr())
	return gs.Serve(lis)
}

// Stop gracefully stops a server started with Serve.
func (s *Server) Stop() {
	s.mu.Lock()
	gs := s.grpc
	s.mu.Unlock()
	if gs != nil {
		gs.GracefulStop()
	}
}

// Stats reports the active client count and frames sent so far.
func (s *Server) Stats() (clients int, frames uint64) {
	return int(s.clientCount.Load()), s.framesSent.Load()
}

// StreamScene sends the metadata followed by every state update, paced by
// log time divided by the requested rate.
func (s *Server) StreamScene(reqMsg *structpb.Struct, stream SceneStreamServer) error {
	req, err := ParseRequest(reqMsg)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if s.cfg.MaxRate > 0 && req.Rate > s.cfg.MaxRate {
		req.Rate = s.cfg.MaxRate
	}
	if n := s.clientCount.Add(1); s.cfg.MaxClients > 0 && int(n) > s.cfg.MaxClients {
		s.clientCount.Add(-1)
		return status.Error(codes.ResourceExhausted, "too many clients")
	}
	defer s.clientCount.Add(-1)

	ctx := stream.Context()
	log.Printf("[gRPC] StreamScene started: scene=%s rate=%.2f start=%.3f", req.Scene, req.Rate, req.StartTime)

	scene, err := s.source.Open(ctx, req.Scene)
	if err != nil {
		if errors.Is(err, ErrUnknownScene) {
			return status.Error(codes.NotFound, err.Error())
		}
		return status.Errorf(codes.Internal, "failed to open scene: %v", err)
	}
	defer scene.Close()

	if err := stream.Send(scene.Metadata()); err != nil {
		return err
	}

	sent := 0
	var prev float64
	for {
		env, ts, err := scene.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Printf("[gRPC] StreamScene %s: %v", req.Scene, err)
			return status.Errorf(codes.Internal, "failed to read frame: %v", err)
		}
		if ts < req.StartTime {
			continue
		}
		if sent > 0 && req.Rate > 0 && ts > prev {
			delay := timeutil.SecondsToDuration((ts - prev) / req.Rate)
			if err := s.clock.Wait(ctx, delay); err != nil {
				log.Printf("[gRPC] StreamScene cancelled")
				return status.FromContextError(err).Err()
			}
		}
		if err := stream.Send(env); err != nil {
			log.Printf("[gRPC] Send error: %v", err)
			return err
		}
		prev = ts
		sent++
		s.framesSent.Add(1)
	}
	log.Printf("[gRPC] StreamScene %s finished: %d frames", req.Scene, sent)
	return nil
}

// RecordingSource serves scenes recorded under a root directory, one
// subdirectory per scene.
type RecordingSource struct {
	fs     fsutil.FileSystem
	root   string
	scenes []string
}

// NewRecordingSource returns a source for the named recorded scenes.
func NewRecordingSource(fs fsutil.FileSystem, root string, scenes []string) *RecordingSource {
	return &RecordingSource{fs: fs, root: root, scenes: scenes}
}

// Scenes returns the configured scene names.
func (r *RecordingSource) Scenes() []string {
	return r.scenes
}

// Open opens a recorded scene for replay.
func (r *RecordingSource) Open(_ context.Context, scene string) (SceneStream, error) {
	if !slices.Contains(r.scenes, scene) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScene, scene)
	}
	rp, err := recorder.Open(r.fs, filepath.Join(r.root, security.SanitizeFilename(scene)))
	if err != nil {
		return nil, err
	}
	return &replayStream{rp: rp}, nil
}

type replayStream struct {
	rp *recorder.Replayer
}

func (s *replayStream) Metadata() *structpb.Struct { return s.rp.Metadata() }

func (s *replayStream) Next(ctx context.Context) (*structpb.Struct, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	return s.rp.ReadFrame()
}

func (s *replayStream) Close() error { return nil }
