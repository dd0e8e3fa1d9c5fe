package convert

import "github.com/banshee-data/nuscenes-xviz/internal/xviz"

// Converter produces the streams of one data family.
type Converter interface {
	// Name identifies the converter in logs.
	Name() string

	// Declare adds the converter's streams to the metadata.
	Declare(mb *xviz.MetadataBuilder) error

	// Convert writes frame i's primitives. Missing or invalid input is
	// logged and skipped; returned errors are structural and abort the
	// scene.
	Convert(i int, fb *xviz.FrameBuilder) error
}
