package sensor

import (
	"fmt"

	"github.com/banshee-data/nuscenes-xviz/internal/fsutil"
	"github.com/banshee-data/nuscenes-xviz/internal/security"
)

// Loader reads payload files named relative to the dataset root.
type Loader struct {
	Root string
	FS   fsutil.FileSystem
}

// NewLoader returns a Loader over the host filesystem.
func NewLoader(root string) *Loader {
	return &Loader{Root: root, FS: fsutil.OSFileSystem{}}
}

// Read returns the raw bytes of a dataset-relative payload path.
func (l *Loader) Read(rel string) ([]byte, error) {
	path, err := security.ResolveWithin(l.Root, rel)
	if err != nil {
		return nil, err
	}
	data, err := l.FS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return data, nil
}

// Lidar reads a .pcd.bin sweep and returns flat rows of LidarFields values.
func (l *Loader) Lidar(rel string) ([]float32, int, error) {
	data, err := l.Read(rel)
	if err != nil {
		return nil, 0, err
	}
	return ReadFloat32Points(data, LidarFields)
}

// Radar reads a radar PCD file.
func (l *Loader) Radar(rel string) (*PointCloud, error) {
	data, err := l.Read(rel)
	if err != nil {
		return nil, err
	}
	return ReadPCD(data)
}

// Image reads and fits a camera frame inside maxWidth x maxHeight.
func (l *Loader) Image(rel string, maxWidth, maxHeight, quality int) (EncodedImage, error) {
	data, err := l.Read(rel)
	if err != nil {
		return EncodedImage{}, err
	}
	return EncodeImage(data, maxWidth, maxHeight, quality)
}
