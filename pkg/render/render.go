// Package render turns an immutable editor snapshot into an ordered list of draw
// commands and rasterizes those commands onto an image.
package render

import (
	"image/color"
	"math"

	"github.com/menta2k/box-annotator/pkg/boxes"
	"github.com/menta2k/box-annotator/pkg/labels"
	"github.com/menta2k/box-annotator/pkg/types"
)

// Drawing constants.
const (
	LineWidth      = 1.5
	FontSize       = 12.0
	TextOffset     = 5.0
	HandleRadius   = 3.0
	CrosshairWidth = 1.0
	HoverBoost     = 0.3
)

var (
	white     = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	crosshair = labels.MustColor(labels.DefaultColor)
)

// Op identifies a draw command.
type Op int

const (
	OpClear Op = iota
	OpRect
	OpText
	OpHandle
	OpLine
)

func (o Op) String() string {
	switch o {
	case OpClear:
		return "clear"
	case OpRect:
		return "rect"
	case OpText:
		return "text"
	case OpHandle:
		return "handle"
	case OpLine:
		return "line"
	}
	return "unknown"
}

// Command is one immediate-mode drawing step in canvas space.
//
// For OpRect, From and To are opposite corners; Fill is painted with FillAlpha
// and then stroked with Color. For OpLine they are the end points. OpText draws
// Text with its baseline at From. OpHandle draws a filled circle of Radius
// centred on From.
type Command struct {
	Op        Op
	BoxID     string
	From      types.Point
	To        types.Point
	Color     color.NRGBA
	FillAlpha float64
	LineWidth float64
	Radius    float64
	Text      string
	FontSize  float64
}

// Snapshot is everything the render loop needs to draw one frame.
type Snapshot struct {
	Boxes   []boxes.BoundingBox
	HoverID string
	Tool    types.Tool
	// Opacity is the global fill opacity slider, 0-100.
	Opacity int
	// Pointer is the last pointer position in canvas space.
	Pointer    types.Point
	HasPointer bool
	// PendingStart is set while a two-click draw is waiting for its second click.
	PendingStart *types.Point
	Canvas       types.Size
	Zoom         float64
	Pan          types.Point
}

// FillAlpha returns the fill alpha for a box at the given slider value.
func FillAlpha(opacity int, hovered bool) float64 {
	a := float64(opacity) / 100
	if hovered {
		a += HoverBoost
	}
	return math.Max(0, math.Min(a, 1))
}

// Render produces the draw commands for a snapshot. It never mutates the snapshot.
func Render(s Snapshot) []Command {
	cmds := []Command{{Op: OpClear, To: types.Point{X: s.Canvas.Width, Y: s.Canvas.Height}}}

	for _, b := range boxes.DrawOrder(s.Boxes) {
		if !b.Visible {
			continue
		}
		hovered := b.ID != "" && b.ID == s.HoverID
		start, end := b.Points[0], b.Points[1]

		cmds = append(cmds, Command{
			Op:        OpRect,
			BoxID:     b.ID,
			From:      start,
			To:        end,
			Color:     labels.MustColor(b.Color),
			FillAlpha: FillAlpha(s.Opacity, hovered),
			LineWidth: LineWidth,
		})
		if !hovered {
			continue
		}

		cmds = append(cmds, Command{
			Op:       OpText,
			BoxID:    b.ID,
			From:     types.Point{X: start.X, Y: start.Y - TextOffset},
			Color:    white,
			Text:     b.Name,
			FontSize: FontSize,
		})
		if s.Tool == types.ToolDragBox {
			for _, c := range corners(start, end) {
				cmds = append(cmds, Command{Op: OpHandle, BoxID: b.ID, From: c, Color: white, Radius: HandleRadius})
			}
		}
	}

	if s.PendingStart != nil && s.HasPointer {
		cmds = append(cmds, Command{
			Op:        OpRect,
			From:      *s.PendingStart,
			To:        s.Pointer,
			Color:     crosshair,
			FillAlpha: FillAlpha(s.Opacity, false),
			LineWidth: LineWidth,
		})
	}

	if s.Tool == types.ToolDrawBox && s.HasPointer {
		p := s.Pointer
		cmds = append(cmds,
			Command{Op: OpLine, From: types.Point{X: 0, Y: p.Y}, To: types.Point{X: s.Canvas.Width, Y: p.Y}, Color: crosshair, LineWidth: CrosshairWidth},
			Command{Op: OpLine, From: types.Point{X: p.X, Y: 0}, To: types.Point{X: p.X, Y: s.Canvas.Height}, Color: crosshair, LineWidth: CrosshairWidth},
		)
	}
	return cmds
}

// corners returns top-left, top-right, bottom-left and bottom-right.
func corners(start, end types.Point) [4]types.Point {
	return [4]types.Point{
		{X: start.X, Y: start.Y},
		{X: end.X, Y: start.Y},
		{X: start.X, Y: end.Y},
		{X: end.X, Y: end.Y},
	}
}
