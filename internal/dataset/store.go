package dataset

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the record-store collaborator. Implementations fill the derived
// SampleData.Channel and SampleAnnotation.CategoryName fields.
type Store interface {
	Scenes() ([]Scene, error)
	SceneByName(name string) (Scene, error)
	Log(token string) (Log, error)
	Sample(token string) (Sample, error)
	SampleData(token string) (SampleData, error)
	// SampleDataForSample returns the key-frame payloads of a sample.
	SampleDataForSample(sampleToken string) ([]SampleData, error)
	EgoPose(token string) (EgoPose, error)
	CalibratedSensor(token string) (CalibratedSensor, error)
	// Annotations returns the annotations of a sample ordered by token.
	Annotations(sampleToken string) ([]SampleAnnotation, error)
}

func notFound(kind, token string) error {
	return fmt.Errorf("%s %q: %w", kind, token, ErrNotFound)
}

// MemoryStore serves records from maps. It is read-only after construction
// and safe for concurrent readers.
type MemoryStore struct {
	scenes       map[string]Scene
	sceneByName  map[string]string
	logs         map[string]Log
	samples      map[string]Sample
	sampleData   map[string]SampleData
	egoPoses     map[string]EgoPose
	calibrated   map[string]CalibratedSensor
	sensors      map[string]Sensor
	annotations  map[string]SampleAnnotation
	instances    map[string]Instance
	categories   map[string]Category
	dataBySample map[string][]string
	annBySample  map[string][]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore indexes the given tables.
func NewMemoryStore(t Tables) *MemoryStore {
	m := &MemoryStore{
		scenes:       make(map[string]Scene, len(t.Scenes)),
		sceneByName:  make(map[string]string, len(t.Scenes)),
		logs:         make(map[string]Log, len(t.Logs)),
		samples:      make(map[string]Sample, len(t.Samples)),
		sampleData:   make(map[string]SampleData, len(t.SampleData)),
		egoPoses:     make(map[string]EgoPose, len(t.EgoPoses)),
		calibrated:   make(map[string]CalibratedSensor, len(t.CalibratedSensors)),
		sensors:      make(map[string]Sensor, len(t.Sensors)),
		annotations:  make(map[string]SampleAnnotation, len(t.Annotations)),
		instances:    make(map[string]Instance, len(t.Instances)),
		categories:   make(map[string]Category, len(t.Categories)),
		dataBySample: make(map[string][]string),
		annBySample:  make(map[string][]string),
	}
	for _, r := range t.Scenes {
		m.scenes[r.Token] = r
		m.sceneByName[r.Name] = r.Token
	}
	for _, r := range t.Logs {
		m.logs[r.Token] = r
	}
	for _, r := range t.Samples {
		m.samples[r.Token] = r
	}
	for _, r := range t.EgoPoses {
		m.egoPoses[r.Token] = r
	}
	for _, r := range t.CalibratedSensors {
		m.calibrated[r.Token] = r
	}
	for _, r := range t.Sensors {
		m.sensors[r.Token] = r
	}
	for _, r := range t.Instances {
		m.instances[r.Token] = r
	}
	for _, r := range t.Categories {
		m.categories[r.Token] = r
	}
	for _, r := range t.SampleData {
		if r.Channel == "" {
			r.Channel = m.channelOf(r.CalibratedSensorToken)
		}
		m.sampleData[r.Token] = r
		if r.IsKeyFrame {
			m.dataBySample[r.SampleToken] = append(m.dataBySample[r.SampleToken], r.Token)
		}
	}
	for _, r := range t.Annotations {
		if r.CategoryName == "" {
			r.CategoryName = m.categoryOf(r.InstanceToken)
		}
		m.annotations[r.Token] = r
		m.annBySample[r.SampleToken] = append(m.annBySample[r.SampleToken], r.Token)
	}
	for _, idx := range []map[string][]string{m.dataBySample, m.annBySample} {
		for _, tokens := range idx {
			sort.Strings(tokens)
		}
	}
	return m
}

func (m *MemoryStore) channelOf(calibratedToken string) string {
	cs, ok := m.calibrated[calibratedToken]
	if !ok {
		return ""
	}
	return m.sensors[cs.SensorToken].Channel
}

func (m *MemoryStore) categoryOf(instanceToken string) string {
	inst, ok := m.instances[instanceToken]
	if !ok {
		return ""
	}
	return m.categories[inst.CategoryToken].Name
}

func lookup[T any](records map[string]T, kind, token string) (T, error) {
	r, ok := records[token]
	if !ok {
		var zero T
		return zero, notFound(kind, token)
	}
	return r, nil
}

// Scenes returns every scene ordered by name.
func (m *MemoryStore) Scenes() ([]Scene, error) {
	out := make([]Scene, 0, len(m.scenes))
	for _, s := range m.scenes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SceneByName resolves a scene by its human-readable name.
func (m *MemoryStore) SceneByName(name string) (Scene, error) {
	token, ok := m.sceneByName[name]
	if !ok {
		return Scene{}, notFound("scene", name)
	}
	return m.scenes[token], nil
}

func (m *MemoryStore) Log(token string) (Log, error) { return lookup(m.logs, "log", token) }

func (m *MemoryStore) Sample(token string) (Sample, error) {
	return lookup(m.samples, "sample", token)
}

func (m *MemoryStore) SampleData(token string) (SampleData, error) {
	return lookup(m.sampleData, "sample_data", token)
}

func (m *MemoryStore) SampleDataForSample(sampleToken string) ([]SampleData, error) {
	tokens := m.dataBySample[sampleToken]
	out := make([]SampleData, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, m.sampleData[t])
	}
	return out, nil
}

func (m *MemoryStore) EgoPose(token string) (EgoPose, error) {
	return lookup(m.egoPoses, "ego_pose", token)
}

func (m *MemoryStore) CalibratedSensor(token string) (CalibratedSensor, error) {
	return lookup(m.calibrated, "calibrated_sensor", token)
}

func (m *MemoryStore) Annotations(sampleToken string) ([]SampleAnnotation, error) {
	tokens := m.annBySample[sampleToken]
	out := make([]SampleAnnotation, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, m.annotations[t])
	}
	return out, nil
}

// Tables returns the records with derived fields filled, each table sorted
// by token.
func (m *MemoryStore) Tables() Tables {
	var t Tables
	t.SampleData = sortedValues(m.sampleData, func(r SampleData) string { return r.Token })
	t.Annotations = sortedValues(m.annotations, func(r SampleAnnotation) string { return r.Token })
	t.Scenes = sortedValues(m.scenes, func(r Scene) string { return r.Token })
	t.Logs = sortedValues(m.logs, func(r Log) string { return r.Token })
	t.Samples = sortedValues(m.samples, func(r Sample) string { return r.Token })
	t.EgoPoses = sortedValues(m.egoPoses, func(r EgoPose) string { return r.Token })
	t.CalibratedSensors = sortedValues(m.calibrated, func(r CalibratedSensor) string { return r.Token })
	t.Sensors = sortedValues(m.sensors, func(r Sensor) string { return r.Token })
	t.Instances = sortedValues(m.instances, func(r Instance) string { return r.Token })
	t.Categories = sortedValues(m.categories, func(r Category) string { return r.Token })
	return t
}

func sortedValues[T any](records map[string]T, key func(T) string) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })
	return out
}
