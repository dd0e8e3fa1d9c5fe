package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/nuscenes-xviz/internal/dataset"
	"github.com/banshee-data/nuscenes-xviz/internal/monitoring"
)

// ImportStats counts the records written by Import.
type ImportStats struct {
	RunID       string
	Scenes      int
	Samples     int
	SampleData  int
	Annotations int
}

// Import copies every record of src into db in one transaction. Existing
// rows with the same token are replaced.
func Import(ctx context.Context, db *DB, src *dataset.MemoryStore, version string) (ImportStats, error) {
	t := src.Tables()
	stats := ImportStats{
		RunID:       uuid.NewString(),
		Scenes:      len(t.Scenes),
		Samples:     len(t.Samples),
		SampleData:  len(t.SampleData),
		Annotations: len(t.Annotations),
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	steps := []struct {
		table string
		query string
		rows  int
		args  func(i int) ([]any, error)
	}{
		{"log", `INSERT OR REPLACE INTO log (token, logfile, vehicle, date_captured, location) VALUES (?, ?, ?, ?, ?)`,
			len(t.Logs), func(i int) ([]any, error) {
				r := t.Logs[i]
				return []any{r.Token, r.Logfile, r.Vehicle, r.DateCaptured, r.Location}, nil
			}},
		{"scene", `INSERT OR REPLACE INTO scene (token, log_token, nbr_samples, first_sample_token, last_sample_token, name, description) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			len(t.Scenes), func(i int) ([]any, error) {
				r := t.Scenes[i]
				return []any{r.Token, r.LogToken, r.NbrSamples, r.FirstSampleToken, r.LastSampleToken, r.Name, r.Description}, nil
			}},
		{"sample", `INSERT OR REPLACE INTO sample (token, timestamp, prev, next, scene_token) VALUES (?, ?, ?, ?, ?)`,
			len(t.Samples), func(i int) ([]any, error) {
				r := t.Samples[i]
				return []any{r.Token, r.Timestamp, r.Prev, r.Next, r.SceneToken}, nil
			}},
		{"sensor", `INSERT OR REPLACE INTO sensor (token, channel, modality) VALUES (?, ?, ?)`,
			len(t.Sensors), func(i int) ([]any, error) {
				r := t.Sensors[i]
				return []any{r.Token, r.Channel, r.Modality}, nil
			}},
		{"calibrated_sensor", `INSERT OR REPLACE INTO calibrated_sensor (token, sensor_token, translation, rotation, camera_intrinsic) VALUES (?, ?, ?, ?, ?)`,
			len(t.CalibratedSensors), func(i int) ([]any, error) {
				r := t.CalibratedSensors[i]
				return jsonArgs([]any{r.Token, r.SensorToken}, r.Translation, r.Rotation, nonNil(r.CameraIntrinsic))
			}},
		{"ego_pose", `INSERT OR REPLACE INTO ego_pose (token, timestamp, translation, rotation) VALUES (?, ?, ?, ?)`,
			len(t.EgoPoses), func(i int) ([]any, error) {
				r := t.EgoPoses[i]
				return jsonArgs([]any{r.Token, r.Timestamp}, r.Translation, r.Rotation)
			}},
		{"sample_data", `INSERT OR REPLACE INTO sample_data (token, sample_token, ego_pose_token, calibrated_sensor_token, timestamp, fileformat, is_key_frame, height, width, filename, prev, next, channel) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			len(t.SampleData), func(i int) ([]any, error) {
				r := t.SampleData[i]
				return []any{r.Token, r.SampleToken, r.EgoPoseToken, r.CalibratedSensorToken, r.Timestamp, r.Fileformat,
					r.IsKeyFrame, r.Height, r.Width, r.Filename, r.Prev, r.Next, r.Channel}, nil
			}},
		{"category", `INSERT OR REPLACE INTO category (token, name, description) VALUES (?, ?, ?)`,
			len(t.Categories), func(i int) ([]any, error) {
				r := t.Categories[i]
				return []any{r.Token, r.Name, r.Description}, nil
			}},
		{"instance", `INSERT OR REPLACE INTO instance (token, category_token, nbr_annotations, first_annotation_token, last_annotation_token) VALUES (?, ?, ?, ?, ?)`,
			len(t.Instances), func(i int) ([]any, error) {
				r := t.Instances[i]
				return []any{r.Token, r.CategoryToken, r.NbrAnnotations, r.FirstAnnotationToken, r.LastAnnotationToken}, nil
			}},
		{"sample_annotation", `INSERT OR REPLACE INTO sample_annotation (token, sample_token, instance_token, visibility_token, prev, next, num_lidar_pts, num_radar_pts, category_name, attribute_tokens, translation, size, rotation, velocity) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			len(t.Annotations), func(i int) ([]any, error) {
				r := t.Annotations[i]
				args, err := jsonArgs([]any{r.Token, r.SampleToken, r.InstanceToken, r.VisibilityToken, r.Prev, r.Next,
					r.NumLidarPts, r.NumRadarPts, r.CategoryName}, nonNil(r.AttributeTokens), r.Translation, r.Size, r.Rotation)
				if err != nil {
					return nil, err
				}
				return append(args, velocityArg(r)), nil
			}},
	}

	for _, s := range steps {
		if err := insertAll(ctx, tx, s.query, s.rows, s.args); err != nil {
			return stats, fmt.Errorf("failed to import %s: %w", s.table, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO import_run (run_id, version, scenes, samples, annotations) VALUES (?, ?, ?, ?, ?)`,
		stats.RunID, version, stats.Scenes, stats.Samples, stats.Annotations); err != nil {
		return stats, fmt.Errorf("failed to record import run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("failed to commit import: %w", err)
	}
	monitoring.Logf("[dataset] imported %s: %d scenes, %d samples, %d sample_data, %d annotations",
		version, stats.Scenes, stats.Samples, stats.SampleData, stats.Annotations)
	return stats, nil
}

func insertAll(ctx context.Context, tx *sql.Tx, query string, n int, args func(int) ([]any, error)) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		a, err := args(i)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, a...); err != nil {
			return err
		}
	}
	return nil
}

// jsonArgs appends each value of arrays to args as JSON text.
func jsonArgs(args []any, arrays ...any) ([]any, error) {
	for _, a := range arrays {
		b, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		args = append(args, string(b))
	}
	return args, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// velocityArg stores a declared velocity, or NULL when absent or not finite.
func velocityArg(a dataset.SampleAnnotation) any {
	v, ok := a.DeclaredVelocity()
	if !ok {
		return nil
	}
	b, _ := json.Marshal(v)
	return string(b)
}
