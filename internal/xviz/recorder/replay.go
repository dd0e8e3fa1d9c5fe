package recorder

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/nuscenes-xviz/internal/fsutil"
	"github.com/banshee-data/nuscenes-xviz/internal/timeutil"
	"github.com/banshee-data/nuscenes-xviz/internal/xviz"
)

// Replayer reads a recorded scene in either layout.
type Replayer struct {
	fs       fsutil.FileSystem
	basePath string
	format   xviz.Format
	header   LogHeader
	index    []IndexEntry
	metadata *structpb.Struct

	currentFrame int
	currentChunk int
	chunkData    []byte

	mu sync.Mutex
}

// Open detects the layout under basePath and prepares it for replay.
func Open(fs fsutil.FileSystem, basePath string) (*Replayer, error) {
	r := &Replayer{fs: fs, basePath: basePath, currentChunk: -1}
	var err error
	switch {
	case fs.Exists(filepath.Join(basePath, "header.json")):
		r.format = xviz.FormatProtobuf
		err = r.openLog()
	case fs.Exists(filepath.Join(basePath, "1-frame.json")):
		r.format = xviz.FormatJSON
		err = r.openJSON()
	default:
		err = fmt.Errorf("no recorded scene at %s", basePath)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Replayer) openLog() error {
	headerData, err := r.fs.ReadFile(filepath.Join(r.basePath, "header.json"))
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if err := json.Unmarshal(headerData, &r.header); err != nil {
		return fmt.Errorf("failed to parse header: %w", err)
	}

	metaData, err := r.fs.ReadFile(filepath.Join(r.basePath, "metadata.pb"))
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}
	r.metadata = &structpb.Struct{}
	if err := proto.Unmarshal(metaData, r.metadata); err != nil {
		return fmt.Errorf("failed to parse metadata: %w", err)
	}

	raw, err := r.fs.ReadFile(filepath.Join(r.basePath, "index.bin"))
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}
	if len(raw)%indexEntrySize != 0 {
		return fmt.Errorf("index.bin: %d bytes is not a whole number of entries", len(raw))
	}
	r.index = make([]IndexEntry, 0, len(raw)/indexEntrySize)
	for off := 0; off < len(raw); off += indexEntrySize {
		e := raw[off : off+indexEntrySize]
		r.index = append(r.index, IndexEntry{
			FrameIndex:  binary.LittleEndian.Uint64(e[0:]),
			TimestampNs: int64(binary.LittleEndian.Uint64(e[8:])),
			ChunkID:     binary.LittleEndian.Uint32(e[16:]),
			Offset:      binary.LittleEndian.Uint32(e[20:]),
		})
	}
	return nil
}

func (r *Replayer) openJSON() error {
	data, err := r.fs.ReadFile(filepath.Join(r.basePath, "1-frame.json"))
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}
	if r.metadata, err = xviz.Unmarshal(data, xviz.FormatJSON); err != nil {
		return err
	}

	data, err = r.fs.ReadFile(filepath.Join(r.basePath, "0-frame.json"))
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}
	var ti timingIndex
	if err := json.Unmarshal(data, &ti); err != nil {
		return fmt.Errorf("failed to parse index: %w", err)
	}
	r.index = make([]IndexEntry, len(ti.StartTime))
	for i, ts := range ti.StartTime {
		r.index[i] = IndexEntry{FrameIndex: uint64(i), TimestampNs: timeutil.SecondsToDuration(ts).Nanoseconds()}
	}
	r.header = LogHeader{TotalFrames: uint64(len(ti.StartTime))}
	if n := len(ti.StartTime); n > 0 {
		r.header.StartTime = ti.StartTime[0]
		r.header.EndTime = ti.EndTime[len(ti.EndTime)-1]
	}
	return nil
}

// Format returns the detected layout.
func (r *Replayer) Format() xviz.Format {
	return r.format
}

// Header returns the log header.
func (r *Replayer) Header() LogHeader {
	return r.header
}

// Metadata returns the metadata envelope.
func (r *Replayer) Metadata() *structpb.Struct {
	return r.metadata
}

// TotalFrames returns the number of frames.
func (r *Replayer) TotalFrames() int {
	return len(r.index)
}

// Seek moves to a frame by position.
func (r *Replayer) Seek(i int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.index) {
		return fmt.Errorf("frame index out of range: %d >= %d", i, len(r.index))
	}
	r.currentFrame = i
	return nil
}

// SeekToTimestamp moves to the first frame at or after ts seconds, or the
// last frame when ts is past the end.
func (r *Replayer) SeekToTimestamp(ts float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	target := timeutil.SecondsToDuration(ts).Nanoseconds()
	i := sort.Search(len(r.index), func(i int) bool { return r.index[i].TimestampNs >= target })
	if i == len(r.index) && i > 0 {
		i--
	}
	r.currentFrame = i
}

// ReadFrame returns the current frame envelope and its timestamp in
// seconds, then advances. It returns io.EOF after the last frame.
func (r *Replayer) ReadFrame() (*structpb.Struct, float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currentFrame >= len(r.index) {
		return nil, 0, io.EOF
	}
	entry := r.index[r.currentFrame]
	ts := float64(entry.TimestampNs) / 1e9

	var env *structpb.Struct
	var err error
	if r.format == xviz.FormatJSON {
		env, err = r.readJSONFrame(r.currentFrame)
	} else {
		env, err = r.readLogFrame(entry)
	}
	if err != nil {
		return nil, 0, err
	}
	r.currentFrame++
	return env, ts, nil
}

func (r *Replayer) readJSONFrame(i int) (*structpb.Struct, error) {
	data, err := r.fs.ReadFile(filepath.Join(r.basePath, fmt.Sprintf("%d-frame.json", i+2)))
	if err != nil {
		return nil, fmt.Errorf("failed to read frame %d: %w", i, err)
	}
	return xviz.Unmarshal(data, xviz.FormatJSON)
}

func (r *Replayer) readLogFrame(entry IndexEntry) (*structpb.Struct, error) {
	if int(entry.ChunkID) != r.currentChunk {
		data, err := r.fs.ReadFile(chunkPath(r.basePath, int(entry.ChunkID)))
		if err != nil {
			return nil, fmt.Errorf("failed to read chunk: %w", err)
		}
		r.chunkData = data
		r.currentChunk = int(entry.ChunkID)
	}
	if int(entry.Offset) >= len(r.chunkData) {
		return nil, fmt.Errorf("invalid frame offset %d", entry.Offset)
	}
	env := &structpb.Struct{}
	if err := protodelim.UnmarshalFrom(bytes.NewReader(r.chunkData[entry.Offset:]), env); err != nil {
		return nil, fmt.Errorf("failed to decode frame %d: %w", entry.FrameIndex, err)
	}
	return env, nil
}
