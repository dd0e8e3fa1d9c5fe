// Package recorder writes converted scenes to disk and replays them.
//
// Two layouts are supported. The JSON layout is the XVIZ directory
// convention: 1-frame.json holds metadata, N-frame.json (N >= 2) holds
// state updates and 0-frame.json is the timing index. The protobuf layout is
// a chunked log: header.json, metadata.pb, frames/chunk_NNNN.pb with
// length-delimited envelopes, and a binary seek index.
package recorder

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/nuscenes-xviz/internal/fsutil"
	"github.com/banshee-data/nuscenes-xviz/internal/timeutil"
	"github.com/banshee-data/nuscenes-xviz/internal/xviz"
)

// ChunkSize is the number of frames per chunk file.
const ChunkSize = 1000

// LogHeader describes a recorded protobuf log.
type LogHeader struct {
	Version     string  `json:"version"`
	RunID       string  `json:"run_id"`
	CreatedNs   int64   `json:"created_ns"`
	Scene       string  `json:"scene"`
	TotalFrames uint64  `json:"total_frames"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
}

// IndexEntry locates one frame inside the chunk files.
type IndexEntry struct {
	FrameIndex  uint64
	TimestampNs int64
	ChunkID     uint32
	Offset      uint32
}

// Writer receives one scene's envelopes in order.
type Writer interface {
	WriteMetadata(env *structpb.Struct) error
	WriteFrame(index int, timestamp float64, env *structpb.Struct) error
	Close() error
	Path() string
}

// NewWriter creates a writer for format under dir.
func NewWriter(fs fsutil.FileSystem, dir, scene string, format xviz.Format) (Writer, error) {
	if format == xviz.FormatProtobuf {
		return NewRecorder(fs, dir, scene)
	}
	return NewJSONWriter(fs, dir)
}

// Recorder writes the chunked protobuf layout.
type Recorder struct {
	fs       fsutil.FileSystem
	basePath string

	header       LogHeader
	index        []IndexEntry
	currentChunk int
	chunkFile    io.WriteCloser
	chunkOffset  uint32
	frameCount   uint64

	mu     sync.Mutex
	closed bool
}

// NewRecorder creates the log directory and returns a Recorder.
func NewRecorder(fs fsutil.FileSystem, basePath, scene string) (*Recorder, error) {
	if err := fs.MkdirAll(filepath.Join(basePath, "frames"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &Recorder{
		fs:           fs,
		basePath:     basePath,
		currentChunk: -1,
		header: LogHeader{
			Version:   "1.0",
			RunID:     uuid.NewString(),
			CreatedNs: time.Now().UnixNano(),
			Scene:     scene,
		},
	}, nil
}

// WriteMetadata stores the metadata envelope.
func (r *Recorder) WriteMetadata(env *structpb.Struct) error {
	data, err := proto.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := r.fs.WriteFile(filepath.Join(r.basePath, "metadata.pb"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// WriteFrame appends a state update to the current chunk.
func (r *Recorder) WriteFrame(index int, timestamp float64, env *structpb.Struct) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("recorder is closed")
	}
	if r.frameCount == 0 {
		r.header.StartTime = timestamp
	}
	r.header.EndTime = timestamp

	chunkIdx := int(r.frameCount / ChunkSize)
	if chunkIdx != r.currentChunk {
		if err := r.rotateChunk(chunkIdx); err != nil {
			return err
		}
	}

	n, err := protodelim.MarshalTo(r.chunkFile, env)
	if err != nil {
		return fmt.Errorf("failed to write frame %d: %w", index, err)
	}
	r.index = append(r.index, IndexEntry{
		FrameIndex:  uint64(index),
		TimestampNs: timeutil.SecondsToDuration(timestamp).Nanoseconds(),
		ChunkID:     uint32(chunkIdx),
		Offset:      r.chunkOffset,
	})
	r.chunkOffset += uint32(n)
	r.frameCount++
	return nil
}

func (r *Recorder) rotateChunk(chunkIdx int) error {
	if r.chunkFile != nil {
		if err := r.chunkFile.Close(); err != nil {
			return err
		}
	}
	f, err := r.fs.Create(chunkPath(r.basePath, chunkIdx))
	if err != nil {
		return fmt.Errorf("failed to create chunk file: %w", err)
	}
	r.chunkFile = f
	r.currentChunk = chunkIdx
	r.chunkOffset = 0
	return nil
}

func chunkPath(base string, idx int) string {
	return filepath.Join(base, "frames", fmt.Sprintf("chunk_%04d.pb", idx))
}

// Close finalises the log and writes the header and index.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if r.chunkFile != nil {
		if err := r.chunkFile.Close(); err != nil {
			return fmt.Errorf("failed to close chunk: %w", err)
		}
	}

	r.header.TotalFrames = r.frameCount
	headerData, err := json.MarshalIndent(r.header, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if err := r.fs.WriteFile(filepath.Join(r.basePath, "header.json"), headerData, 0o644); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	buf := make([]byte, 0, len(r.index)*indexEntrySize)
	for _, e := range r.index {
		buf = binary.LittleEndian.AppendUint64(buf, e.FrameIndex)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(e.TimestampNs))
		buf = binary.LittleEndian.AppendUint32(buf, e.ChunkID)
		buf = binary.LittleEndian.AppendUint32(buf, e.Offset)
	}
	if err := r.fs.WriteFile(filepath.Join(r.basePath, "index.bin"), buf, 0o644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

const indexEntrySize = 8 + 8 + 4 + 4

// Path returns the base path of the log.
func (r *Recorder) Path() string {
	return r.basePath
}

// FrameCount returns the number of frames recorded.
func (r *Recorder) FrameCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameCount
}

// Header returns the header as it stands.
func (r *Recorder) Header() LogHeader {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.header
}

// JSONWriter writes the XVIZ JSON directory layout.
type JSONWriter struct {
	fs        fsutil.FileSystem
	dir       string
	startTime []float64
	endTime   []float64
}

type timingIndex struct {
	StartTime []float64 `json:"startTime"`
	EndTime   []float64 `json:"endTime"`
}

// NewJSONWriter creates dir and returns a JSONWriter.
func NewJSONWriter(fs fsutil.FileSystem, dir string) (*JSONWriter, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &JSONWriter{fs: fs, dir: dir}, nil
}

func (w *JSONWriter) write(n int, env *structpb.Struct) error {
	data, err := xviz.Marshal(env, xviz.FormatJSON)
	if err != nil {
		return err
	}
	return w.fs.WriteFile(filepath.Join(w.dir, fmt.Sprintf("%d-frame.json", n)), data, 0o644)
}

// WriteMetadata writes 1-frame.json.
func (w *JSONWriter) WriteMetadata(env *structpb.Struct) error {
	if err := w.write(1, env); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// WriteFrame writes frame index as (index+2)-frame.json.
func (w *JSONWriter) WriteFrame(index int, timestamp float64, env *structpb.Struct) error {
	if err := w.write(index+2, env); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", index, err)
	}
	w.startTime = append(w.startTime, timestamp)
	w.endTime = append(w.endTime, timestamp)
	return nil
}

// Close writes the timing index.
func (w *JSONWriter) Close() error {
	data, err := json.Marshal(timingIndex{StartTime: w.startTime, EndTime: w.endTime})
	if err != nil {
		return err
	}
	if err := w.fs.WriteFile(filepath.Join(w.dir, "0-frame.json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// Path returns the output directory.
func (w *JSONWriter) Path() string {
	return w.dir
}
