// Package editor implements the tool state machine of the bounding-box canvas:
// it interprets pointer events for the active tool, keeps hover and selection
// state, and mutates the box store.
package editor

import (
	"go.uber.org/zap"

	"github.com/menta2k/box-annotator/pkg/boxes"
	"github.com/menta2k/box-annotator/pkg/coords"
	"github.com/menta2k/box-annotator/pkg/labels"
	"github.com/menta2k/box-annotator/pkg/render"
	"github.com/menta2k/box-annotator/pkg/types"
)

// Options tunes the interaction constants.
type Options struct {
	ZoomStep   float64
	MaxZoom    float64
	HandleSize float64
}

// DefaultOptions returns a 0.1 zoom step, a 3x zoom ceiling and 6px corner handles.
func DefaultOptions() Options {
	return Options{
		ZoomStep:   0.1,
		MaxZoom:    3.0,
		HandleSize: 6,
	}
}

// Editor is the single editor-state aggregate for one canvas. Pointer positions
// passed to it are in screen space, relative to the canvas origin.
type Editor struct {
	store  *boxes.Store
	labels *labels.Set
	opts   Options
	logger *zap.Logger

	tool     types.Tool
	state    interaction
	view     coords.Viewport
	hover    string
	selected string

	pointer    types.Point
	hasPointer bool
	canvas     types.Size
}

// New creates an editor over store using set for default labels and colors.
func New(store *boxes.Store, set *labels.Set, opts Options, logger *zap.Logger) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if set == nil {
		set = labels.NewSet(nil, nil)
	}
	def := DefaultOptions()
	if opts.ZoomStep <= 0 {
		opts.ZoomStep = def.ZoomStep
	}
	if opts.MaxZoom <= 0 {
		opts.MaxZoom = def.MaxZoom
	}
	if opts.HandleSize <= 0 {
		opts.HandleSize = def.HandleSize
	}
	return &Editor{
		store:  store,
		labels: set,
		opts:   opts,
		logger: logger,
		tool:   types.ToolSelect,
		state:  idle{},
		view:   coords.NewViewport(),
	}
}

// Store returns the box store the editor mutates.
func (e *Editor) Store() *boxes.Store { return e.store }

// Labels returns the label set used for new boxes.
func (e *Editor) Labels() *labels.Set { return e.labels }

// SetLabels swaps the label set.
func (e *Editor) SetLabels(set *labels.Set) {
	if set != nil {
		e.labels = set
	}
}

// Tool returns the active tool.
func (e *Editor) Tool() types.Tool { return e.tool }

// SelectTool activates t. Any pending draw, drag or pan is cancelled; completed
// boxes are kept. Selecting a zoom tool counts as one activation of it.
func (e *Editor) SelectTool(t types.Tool) {
	e.cancel()
	e.tool = t
	e.logger.Debug("tool selected", zap.Stringer("tool", t))

	switch t {
	case types.ToolZoomIn:
		e.ZoomIn()
	case types.ToolZoomOut:
		e.ZoomOut()
	}
}

// ZoomIn raises the zoom by one step up to the ceiling.
func (e *Editor) ZoomIn() {
	e.view.ZoomIn(e.opts.ZoomStep, e.opts.MaxZoom)
}

// ZoomOut resets zoom to 1 and pan to the origin.
func (e *Editor) ZoomOut() {
	e.view.Reset()
}

// Viewport returns the current pan/zoom transform.
func (e *Editor) Viewport() coords.Viewport { return e.view }

// Zoom returns the current zoom factor.
func (e *Editor) Zoom() float64 { return e.view.Zoom }

// Pan returns the current pan offset in screen pixels.
func (e *Editor) Pan() types.Point { return e.view.Pan }

// SetCanvasSize records the displayed canvas size, used for crosshair extent.
func (e *Editor) SetCanvasSize(s types.Size) { e.canvas = s }

// CanvasSize returns the displayed canvas size.
func (e *Editor) CanvasSize() types.Size { return e.canvas }

// Hovered returns the hovered box id, or "".
func (e *Editor) Hovered() string { return e.hover }

// Selected returns the id selected in the side list, or "".
func (e *Editor) Selected() string { return e.selected }

// Select marks a box as selected in the side list. Hidden boxes can be selected.
// An empty id clears the selection.
func (e *Editor) Select(id string) bool {
	if id == "" {
		e.selected = ""
		return true
	}
	if _, ok := e.store.Get(id); !ok {
		return false
	}
	e.selected = id
	return true
}

// Pending returns the recorded first corner of an in-progress draw.
func (e *Editor) Pending() (types.Point, bool) {
	if p, ok := e.state.(pendingBox); ok {
		return p.start, true
	}
	return types.Point{}, false
}

// Dragging reports whether a box is being moved or resized.
func (e *Editor) Dragging() bool {
	switch e.state.(type) {
	case moving, resizing:
		return true
	}
	return false
}

// Panning reports whether the pan tool is held down.
func (e *Editor) Panning() bool {
	_, ok := e.state.(panning)
	return ok
}

// Pointer returns the last pointer position in canvas space.
func (e *Editor) Pointer() (types.Point, bool) {
	return e.view.ToCanvas(e.pointer), e.hasPointer
}

// Click handles a click on the canvas. With the draw tool the first click
// records a corner and the second one creates the box, which is returned.
// With a zoom tool every click is one more activation.
func (e *Editor) Click(screen types.Point) (boxes.BoundingBox, bool) {
	e.track(screen)
	p := e.view.ToCanvas(screen)

	switch e.tool {
	case types.ToolDrawBox:
		if pending, ok := e.state.(pendingBox); ok {
			label := e.labels.Default()
			b := e.store.Create(pending.start, p, label, e.labels.ColorOf(label))
			e.state = idle{}
			e.logger.Debug("box created", zap.String("id", b.ID), zap.String("label", label))
			return b, true
		}
		e.state = pendingBox{start: p}
		e.hover = ""
	case types.ToolZoomIn:
		e.ZoomIn()
	case types.ToolZoomOut:
		e.ZoomOut()
	}
	return boxes.BoundingBox{}, false
}

// PointerDown starts a drag with the drag tool or a pan with the pan tool.
func (e *Editor) PointerDown(screen types.Point) {
	e.track(screen)
	p := e.view.ToCanvas(screen)

	switch e.tool {
	case types.ToolDragBox:
		if _, ok := e.state.(idle); !ok {
			return
		}
		e.updateHover(p)
		b, ok := e.store.Get(e.hover)
		if !ok || b.Locked {
			return
		}
		if c := cornerAt(b.Points, p, e.opts.HandleSize); c != CornerNone {
			e.state = resizing{id: b.ID, corner: c}
			return
		}
		if b.Contains(p) {
			e.state = moving{id: b.ID, offset: p.Sub(b.Points[0])}
		}
	case types.ToolPan:
		e.state = panning{anchor: screen}
	}
}

// PointerMove updates hover while idle, or advances the active drag or pan.
func (e *Editor) PointerMove(screen types.Point) {
	e.track(screen)
	p := e.view.ToCanvas(screen)

	switch s := e.state.(type) {
	case idle:
		e.updateHover(p)
	case moving:
		b, ok := e.store.Get(s.id)
		if !ok {
			e.state = idle{}
			return
		}
		start := p.Sub(s.offset)
		size := b.Points[1].Sub(b.Points[0])
		e.store.SetPoints(s.id, start, start.Add(size))
	case resizing:
		b, ok := e.store.Get(s.id)
		if !ok {
			e.state = idle{}
			return
		}
		pts := resize(b.Points, s.corner, p)
		e.store.SetPoints(s.id, pts[0], pts[1])
	case panning:
		e.view.PanBy(screen.Sub(s.anchor))
		e.state = panning{anchor: screen}
	}
}

// PointerUp ends a drag, restoring top-left/bottom-right ordering, or ends a pan.
func (e *Editor) PointerUp(screen types.Point) {
	e.track(screen)
	switch e.state.(type) {
	case moving, resizing, panning:
		e.cancel()
		e.updateHover(e.view.ToCanvas(screen))
	}
}

// PointerLeave forgets the pointer position.
func (e *Editor) PointerLeave() {
	e.hasPointer = false
}

// Delete removes a box and clears any hover, selection or drag that referenced it.
func (e *Editor) Delete(id string) bool {
	if !e.store.Delete(id) {
		return false
	}
	e.forget(id)
	return true
}

// Clear removes every box.
func (e *Editor) Clear() {
	e.store.Clear()
	e.Reset()
}

// ChangeLabel sets a box's label and recolors it with that label's color.
func (e *Editor) ChangeLabel(id, label string) bool {
	return e.store.SetLabel(id, label, e.labels.ColorOf(label))
}

// Reset drops hover, selection and any in-progress interaction. The tool and
// viewport are kept.
func (e *Editor) Reset() {
	e.cancel()
	e.hover = ""
	e.selected = ""
}

// Cursor names the pointer cursor for the current state.
func (e *Editor) Cursor() string {
	if e.tool == types.ToolDragBox {
		if e.Dragging() {
			return "grabbing"
		}
		if b, ok := e.store.Get(e.hover); ok {
			if e.hasPointer && cornerAt(b.Points, e.view.ToCanvas(e.pointer), e.opts.HandleSize) != CornerNone {
				return "resize"
			}
			return "grab"
		}
	}
	switch e.tool {
	case types.ToolDrawBox:
		return "crosshair"
	case types.ToolZoomIn:
		return "zoom-in"
	case types.ToolZoomOut:
		return "zoom-out"
	case types.ToolPan:
		return "move"
	case types.ToolSelect:
		return "pointer"
	}
	return "default"
}

// Snapshot captures the state the render loop draws from.
func (e *Editor) Snapshot() render.Snapshot {
	s := render.Snapshot{
		Boxes:      e.store.Boxes(),
		HoverID:    e.hover,
		Tool:       e.tool,
		Opacity:    e.store.Opacity(),
		Pointer:    e.view.ToCanvas(e.pointer),
		HasPointer: e.hasPointer,
		Canvas:     e.canvas,
		Zoom:       e.view.Zoom,
		Pan:        e.view.Pan,
	}
	if p, ok := e.Pending(); ok {
		s.PendingStart = &p
	}
	return s
}

func (e *Editor) track(screen types.Point) {
	e.pointer = screen
	e.hasPointer = true
}

// updateHover picks the first visible box under p, unlocked boxes first.
func (e *Editor) updateHover(p types.Point) {
	e.hover = ""
	for _, b := range e.store.HitOrder() {
		if b.Visible && b.Contains(p) {
			e.hover = b.ID
			return
		}
	}
}

// cancel returns to idle, normalizing a box left mid-drag.
func (e *Editor) cancel() {
	switch s := e.state.(type) {
	case moving:
		e.store.NormalizeBox(s.id)
	case resizing:
		e.store.NormalizeBox(s.id)
	}
	e.state = idle{}
}

func (e *Editor) forget(id string) {
	if e.hover == id {
		e.hover = ""
	}
	if e.selected == id {
		e.selected = ""
	}
	switch s := e.state.(type) {
	case moving:
		if s.id == id {
			e.state = idle{}
		}
	case resizing:
		if s.id == id {
			e.state = idle{}
		}
	}
}
