package coords

import (
	"math"

	"github.com/menta2k/box-annotator/pkg/types"
)

// Viewport is the pan/zoom transform between pointer space and canvas space.
// Pan is expressed in screen pixels and is not scaled by zoom.
type Viewport struct {
	Zoom float64
	Pan  types.Point
}

// NewViewport returns the identity transform.
func NewViewport() Viewport {
	return Viewport{Zoom: 1}
}

// ToCanvas maps a pointer position to canvas space.
func (v Viewport) ToCanvas(p types.Point) types.Point {
	z := v.zoom()
	return types.Point{X: (p.X - v.Pan.X) / z, Y: (p.Y - v.Pan.Y) / z}
}

// ToScreen maps a canvas position to pointer space.
func (v Viewport) ToScreen(p types.Point) types.Point {
	z := v.zoom()
	return types.Point{X: p.X*z + v.Pan.X, Y: p.Y*z + v.Pan.Y}
}

// ZoomIn adds step to the zoom, clamped to limit.
func (v *Viewport) ZoomIn(step, limit float64) {
	z := math.Round((v.zoom()+step)*1e6) / 1e6
	v.Zoom = math.Min(z, limit)
}

// Reset restores zoom 1 and no pan.
func (v *Viewport) Reset() {
	v.Zoom = 1
	v.Pan = types.Point{}
}

// PanBy moves the view by a screen-space delta.
func (v *Viewport) PanBy(delta types.Point) {
	v.Pan = v.Pan.Add(delta)
}

func (v Viewport) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}
