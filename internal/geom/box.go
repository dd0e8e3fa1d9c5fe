package geom

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Box is an oriented 3D bounding box. Size follows the dataset order
// [width, length, height]; length runs along the box x axis.
type Box struct {
	Center      r3.Vec
	Size        [3]float64
	Orientation quat.Number
}

// footprintCorners are the bottom-face corner indices of Corners, walked
// counter-clockwise when seen from above in the box frame.
var footprintCorners = [4]int{2, 3, 7, 6}

// Corners returns the eight box corners in the parent frame. Corners 0-3 sit
// on the front face (+x) and 4-7 on the back face; 2, 3, 6 and 7 are at the
// bottom.
func (b Box) Corners() [8]r3.Vec {
	w, l, h := b.Size[0]/2, b.Size[1]/2, b.Size[2]/2
	xs := [8]float64{l, l, l, l, -l, -l, -l, -l}
	ys := [8]float64{w, -w, -w, w, w, -w, -w, w}
	zs := [8]float64{h, h, -h, -h, h, h, -h, -h}
	var out [8]r3.Vec
	for i := range out {
		out[i] = r3.Add(Rotate(b.Orientation, r3.Vec{X: xs[i], Y: ys[i], Z: zs[i]}), b.Center)
	}
	return out
}

// Footprint returns the bottom rectangle as a closed ring of five vertices,
// the last repeating the first.
func (b Box) Footprint() []r3.Vec {
	c := b.Corners()
	out := make([]r3.Vec, 0, 5)
	for _, i := range footprintCorners {
		out = append(out, c[i])
	}
	return append(out, out[0])
}
