package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/banshee-data/nuscenes-xviz/internal/dataset"
)

// Store serves dataset records from a DB.
type Store struct {
	db *DB
}

var _ dataset.Store = (*Store)(nil)

// NewStore returns a Store reading db.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

// one runs a single-row query and maps sql.ErrNoRows to dataset.ErrNotFound.
func one[T any](s *Store, kind, token, query string, scan func(scanner) (T, error)) (T, error) {
	r, err := scan(s.db.QueryRow(query, token))
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("%s %q: %w", kind, token, dataset.ErrNotFound)
	}
	if err != nil {
		return r, fmt.Errorf("%s %q: %w", kind, token, err)
	}
	return r, nil
}

func many[T any](s *Store, query string, scan func(scanner) (T, error), args ...any) ([]T, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const sceneColumns = `token, log_token, nbr_samples, first_sample_token, last_sample_token, name, description`

func scanScene(sc scanner) (dataset.Scene, error) {
	var r dataset.Scene
	err := sc.Scan(&r.Token, &r.LogToken, &r.NbrSamples, &r.FirstSampleToken, &r.LastSampleToken, &r.Name, &r.Description)
	return r, err
}

// Scenes returns every scene ordered by name.
func (s *Store) Scenes() ([]dataset.Scene, error) {
	return many(s, `SELECT `+sceneColumns+` FROM scene ORDER BY name`, scanScene)
}

// SceneByName resolves a scene by name.
func (s *Store) SceneByName(name string) (dataset.Scene, error) {
	return one(s, "scene", name, `SELECT `+sceneColumns+` FROM scene WHERE name = ?`, scanScene)
}

func (s *Store) Log(token string) (dataset.Log, error) {
	return one(s, "log", token, `SELECT token, logfile, vehicle, date_captured, location FROM log WHERE token = ?`,
		func(sc scanner) (dataset.Log, error) {
			var r dataset.Log
			err := sc.Scan(&r.Token, &r.Logfile, &r.Vehicle, &r.DateCaptured, &r.Location)
			return r, err
		})
}

func (s *Store) Sample(token string) (dataset.Sample, error) {
	return one(s, "sample", token, `SELECT token, timestamp, prev, next, scene_token FROM sample WHERE token = ?`,
		func(sc scanner) (dataset.Sample, error) {
			var r dataset.Sample
			err := sc.Scan(&r.Token, &r.Timestamp, &r.Prev, &r.Next, &r.SceneToken)
			return r, err
		})
}

const sampleDataColumns = `sd.token, sd.sample_token, sd.ego_pose_token, sd.calibrated_sensor_token, sd.timestamp,
	sd.fileformat, sd.is_key_frame, sd.height, sd.width, sd.filename, sd.prev, sd.next,
	COALESCE(NULLIF(sd.channel, ''), se.channel, '')`

const sampleDataFrom = ` FROM sample_data sd
	LEFT JOIN calibrated_sensor cs ON cs.token = sd.calibrated_sensor_token
	LEFT JOIN sensor se ON se.token = cs.sensor_token`

func scanSampleData(sc scanner) (dataset.SampleData, error) {
	var r dataset.SampleData
	err := sc.Scan(&r.Token, &r.SampleToken, &r.EgoPoseToken, &r.CalibratedSensorToken, &r.Timestamp,
		&r.Fileformat, &r.IsKeyFrame, &r.Height, &r.Width, &r.Filename, &r.Prev, &r.Next, &r.Channel)
	return r, err
}

func (s *Store) SampleData(token string) (dataset.SampleData, error) {
	return one(s, "sample_data", token, `SELECT `+sampleDataColumns+sampleDataFrom+` WHERE sd.token = ?`, scanSampleData)
}

func (s *Store) SampleDataForSample(sampleToken string) ([]dataset.SampleData, error) {
	return many(s, `SELECT `+sampleDataColumns+sampleDataFrom+
		` WHERE sd.sample_token = ? AND sd.is_key_frame = 1 ORDER BY sd.token`, scanSampleData, sampleToken)
}

func (s *Store) EgoPose(token string) (dataset.EgoPose, error) {
	return one(s, "ego_pose", token, `SELECT token, timestamp, translation, rotation FROM ego_pose WHERE token = ?`,
		func(sc scanner) (dataset.EgoPose, error) {
			var (
				r       dataset.EgoPose
				tr, rot string
			)
			if err := sc.Scan(&r.Token, &r.Timestamp, &tr, &rot); err != nil {
				return r, err
			}
			return r, decodeJSON(&tr, &r.Translation, &rot, &r.Rotation)
		})
}

func (s *Store) CalibratedSensor(token string) (dataset.CalibratedSensor, error) {
	return one(s, "calibrated_sensor", token,
		`SELECT token, sensor_token, translation, rotation, camera_intrinsic FROM calibrated_sensor WHERE token = ?`,
		func(sc scanner) (dataset.CalibratedSensor, error) {
			var (
				r                  dataset.CalibratedSensor
				tr, rot, intrinsic string
			)
			if err := sc.Scan(&r.Token, &r.SensorToken, &tr, &rot, &intrinsic); err != nil {
				return r, err
			}
			if err := decodeJSON(&tr, &r.Translation, &rot, &r.Rotation, &intrinsic, &r.CameraIntrinsic); err != nil {
				return r, err
			}
			if len(r.CameraIntrinsic) == 0 {
				r.CameraIntrinsic = nil
			}
			return r, nil
		})
}

func (s *Store) Annotations(sampleToken string) ([]dataset.SampleAnnotation, error) {
	return many(s, `SELECT a.token, a.sample_token, a.instance_token, a.visibility_token, a.prev, a.next,
		a.num_lidar_pts, a.num_radar_pts, a.attribute_tokens, a.translation, a.size, a.rotation, a.velocity,
		COALESCE(NULLIF(a.category_name, ''), c.name, '')
		FROM sample_annotation a
		LEFT JOIN instance i ON i.token = a.instance_token
		LEFT JOIN category c ON c.token = i.category_token
		WHERE a.sample_token = ? ORDER BY a.token`,
		func(sc scanner) (dataset.SampleAnnotation, error) {
			var (
				r                    dataset.SampleAnnotation
				attrs, tr, size, rot string
				velocity             sql.NullString
			)
			if err := sc.Scan(&r.Token, &r.SampleToken, &r.InstanceToken, &r.VisibilityToken, &r.Prev, &r.Next,
				&r.NumLidarPts, &r.NumRadarPts, &attrs, &tr, &size, &rot, &velocity, &r.CategoryName); err != nil {
				return r, err
			}
			if err := decodeJSON(&attrs, &r.AttributeTokens, &tr, &r.Translation, &size, &r.Size, &rot, &r.Rotation); err != nil {
				return r, err
			}
			if len(r.AttributeTokens) == 0 {
				r.AttributeTokens = nil
			}
			if velocity.Valid {
				if err := json.Unmarshal([]byte(velocity.String), &r.Velocity); err != nil {
					return r, fmt.Errorf("annotation %s velocity: %w", r.Token, err)
				}
			}
			return r, nil
		}, sampleToken)
}

// decodeJSON takes (source *string, destination) pairs.
func decodeJSON(pairs ...any) error {
	for k := 0; k+1 < len(pairs); k += 2 {
		src := pairs[k].(*string)
		if err := json.Unmarshal([]byte(*src), pairs[k+1]); err != nil {
			return fmt.Errorf("malformed array column %q: %w", *src, err)
		}
	}
	return nil
}
