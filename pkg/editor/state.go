package editor

import "github.com/menta2k/box-annotator/pkg/types"

// Corner names one of the four corner handles of a box.
type Corner int

const (
	CornerNone Corner = iota
	CornerTopLeft
	CornerTopRight
	CornerBottomLeft
	CornerBottomRight
)

func (c Corner) String() string {
	switch c {
	case CornerTopLeft:
		return "top-left"
	case CornerTopRight:
		return "top-right"
	case CornerBottomLeft:
		return "bottom-left"
	case CornerBottomRight:
		return "bottom-right"
	}
	return "none"
}

// interaction is the per-tool sub-state. Only the variants that make sense for
// the active tool are ever stored.
type interaction interface {
	isInteraction()
}

// idle: no button held, no draw pending.
type idle struct{}

// pendingBox: draw-box has recorded its first click.
type pendingBox struct {
	start types.Point
}

// moving: drag-box is translating a box.
type moving struct {
	id     string
	offset types.Point
}

// resizing: drag-box is moving one corner of a box.
type resizing struct {
	id     string
	corner Corner
}

// panning: the pan tool is held. anchor is in screen space.
type panning struct {
	anchor types.Point
}

func (idle) isInteraction()       {}
func (pendingBox) isInteraction() {}
func (moving) isInteraction()     {}
func (resizing) isInteraction()   {}
func (panning) isInteraction()    {}

// resize applies a corner drag to a box's points. The opposite corner stays put.
func resize(points [2]types.Point, corner Corner, p types.Point) [2]types.Point {
	start, end := points[0], points[1]
	switch corner {
	case CornerTopLeft:
		start = p
	case CornerTopRight:
		start = types.Point{X: start.X, Y: p.Y}
		end = types.Point{X: p.X, Y: end.Y}
	case CornerBottomLeft:
		start = types.Point{X: p.X, Y: start.Y}
		end = types.Point{X: end.X, Y: p.Y}
	case CornerBottomRight:
		end = p
	}
	return [2]types.Point{start, end}
}

// cornerAt returns the first corner whose tolerance square contains p, checked
// in top-left, top-right, bottom-left, bottom-right order.
func cornerAt(points [2]types.Point, p types.Point, size float64) Corner {
	half := size / 2
	start, end := points[0], points[1]
	candidates := []struct {
		at     types.Point
		corner Corner
	}{
		{types.Point{X: start.X, Y: start.Y}, CornerTopLeft},
		{types.Point{X: end.X, Y: start.Y}, CornerTopRight},
		{types.Point{X: start.X, Y: end.Y}, CornerBottomLeft},
		{types.Point{X: end.X, Y: end.Y}, CornerBottomRight},
	}
	for _, c := range candidates {
		if p.X >= c.at.X-half && p.X <= c.at.X+half && p.Y >= c.at.Y-half && p.Y <= c.at.Y+half {
			return c.corner
		}
	}
	return CornerNone
}
