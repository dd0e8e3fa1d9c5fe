package dataset

import (
	"fmt"

	"github.com/banshee-data/nuscenes-xviz/internal/monitoring"
	"github.com/banshee-data/nuscenes-xviz/internal/timeutil"
)

// ReferenceChannel is the sensor whose key frame defines each frame's
// timestamp and ego pose.
const ReferenceChannel = "LIDAR_TOP"

// Frame is one entry of a scene's Frame Index. It is immutable once the
// scene is loaded.
type Frame struct {
	Index        int
	SampleToken  string
	Timestamp    float64 // seconds
	EgoPoseToken string
	// Sensors maps channel name to the key-frame payload of that channel.
	Sensors map[string]SampleData
}

// SceneInfo is a loaded scene: its records and ordered frames.
type SceneInfo struct {
	Scene  Scene
	Log    Log
	Frames []Frame
}

// StartTime returns the first frame timestamp in seconds.
func (s *SceneInfo) StartTime() float64 {
	if len(s.Frames) == 0 {
		return 0
	}
	return s.Frames[0].Timestamp
}

// EndTime returns the last frame timestamp in seconds.
func (s *SceneInfo) EndTime() float64 {
	if len(s.Frames) == 0 {
		return 0
	}
	return s.Frames[len(s.Frames)-1].Timestamp
}

// LoadScene walks the sample list of the named scene and builds its Frame
// Index. limit > 0 caps the number of frames. A missing scene or a broken
// sample chain is an error; samples without a reference key frame are
// logged and skipped.
func LoadScene(store Store, name string, limit int) (*SceneInfo, error) {
	scene, err := store.SceneByName(name)
	if err != nil {
		return nil, err
	}
	log, err := store.Log(scene.LogToken)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", name, err)
	}

	info := &SceneInfo{Scene: scene, Log: log}
	seen := make(map[string]bool)
	for token := scene.FirstSampleToken; token != ""; {
		if limit > 0 && len(info.Frames) >= limit {
			break
		}
		if seen[token] {
			return nil, fmt.Errorf("scene %s: sample chain loops at %s", name, token)
		}
		seen[token] = true

		sample, err := store.Sample(token)
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", name, err)
		}
		data, err := store.SampleDataForSample(token)
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", name, err)
		}

		frame := Frame{
			Index:       len(info.Frames),
			SampleToken: sample.Token,
			Sensors:     make(map[string]SampleData, len(data)),
		}
		for _, sd := range data {
			frame.Sensors[sd.Channel] = sd
		}
		ref, ok := frame.Sensors[ReferenceChannel]
		if !ok {
			monitoring.Logf("[dataset] scene %s: sample %s has no %s key frame, skipped", name, token, ReferenceChannel)
			token = sample.Next
			continue
		}
		frame.Timestamp = timeutil.MicrosToSeconds(ref.Timestamp)
		frame.EgoPoseToken = ref.EgoPoseToken
		info.Frames = append(info.Frames, frame)
		token = sample.Next
	}
	return info, nil
}
