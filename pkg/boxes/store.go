// Package boxes holds the bounding boxes of the image currently being edited.
package boxes

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/menta2k/box-annotator/pkg/types"
)

// DefaultOpacity is the initial fill opacity slider value (0-100).
const DefaultOpacity = 30

// BoundingBox is one annotated rectangle. Points[0] is the top-left corner and
// Points[1] the bottom-right one, except transiently while a drag is in progress.
type BoundingBox struct {
	ID      string         `json:"id"`
	Points  [2]types.Point `json:"points"`
	Label   string         `json:"label"`
	Name    string         `json:"name"`
	Color   string         `json:"color"`
	Opacity float64        `json:"opacity"`
	Visible bool           `json:"visible"`
	Locked  bool           `json:"locked"`
}

// Contains reports whether p lies inside the box bounds, edges included.
func (b BoundingBox) Contains(p types.Point) bool {
	lo, hi := b.Points[0], b.Points[1]
	return p.X >= lo.X && p.X <= hi.X && p.Y >= lo.Y && p.Y <= hi.Y
}

// Width returns the horizontal extent.
func (b BoundingBox) Width() float64 {
	return math.Abs(b.Points[1].X - b.Points[0].X)
}

// Height returns the vertical extent.
func (b BoundingBox) Height() float64 {
	return math.Abs(b.Points[1].Y - b.Points[0].Y)
}

// Normalize returns the two corners ordered top-left/bottom-right.
func Normalize(a, b types.Point) [2]types.Point {
	return [2]types.Point{
		{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

// Store is the ordered collection of boxes for one image. It is not safe for
// concurrent use; all calls happen on the UI goroutine.
type Store struct {
	boxes      []BoundingBox
	opacity    int
	allVisible bool
	allLocked  bool
	dirty      bool
	revision   uint64
	newID      func() string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		opacity:    DefaultOpacity,
		allVisible: true,
		newID:      uuid.NewString,
	}
}

// SetIDGenerator overrides how box ids are generated.
func (s *Store) SetIDGenerator(gen func() string) {
	s.newID = gen
}

// Boxes returns a copy of the boxes in insertion order.
func (s *Store) Boxes() []BoundingBox {
	return append([]BoundingBox(nil), s.boxes...)
}

// Len returns the number of boxes.
func (s *Store) Len() int {
	return len(s.boxes)
}

// Get returns the box with the given id.
func (s *Store) Get(id string) (BoundingBox, bool) {
	if i := s.index(id); i >= 0 {
		return s.boxes[i], true
	}
	return BoundingBox{}, false
}

// Create appends a new box spanning the two points with the given label and color.
// The points are normalized and the box is named "Box {n}".
func (s *Store) Create(a, b types.Point, label, color string) BoundingBox {
	box := BoundingBox{
		ID:      s.newID(),
		Points:  Normalize(a, b),
		Label:   label,
		Name:    fmt.Sprintf("Box %d", len(s.boxes)+1),
		Color:   color,
		Opacity: float64(s.opacity) / 100,
		Visible: true,
	}
	s.boxes = append(s.boxes, box)
	s.touch()
	return box
}

// Replace swaps in boxes loaded for a new image. Missing ids and names are
// filled in and the store is considered saved.
func (s *Store) Replace(loaded []BoundingBox) {
	s.boxes = make([]BoundingBox, 0, len(loaded))
	seen := make(map[string]bool, len(loaded))
	for i, b := range loaded {
		if b.ID == "" || seen[b.ID] {
			b.ID = s.newID()
		}
		seen[b.ID] = true
		if b.Name == "" {
			b.Name = fmt.Sprintf("Box %d", i+1)
		}
		b.Points = Normalize(b.Points[0], b.Points[1])
		b.Opacity = float64(s.opacity) / 100
		s.boxes = append(s.boxes, b)
	}
	s.allVisible = true
	s.allLocked = false
	s.dirty = false
}

// Append adds already-built boxes (e.g. model proposals) and marks the store dirty.
func (s *Store) Append(added ...BoundingBox) {
	for _, b := range added {
		if b.ID == "" || s.index(b.ID) >= 0 {
			b.ID = s.newID()
		}
		if b.Name == "" {
			b.Name = fmt.Sprintf("Box %d", len(s.boxes)+1)
		}
		b.Points = Normalize(b.Points[0], b.Points[1])
		b.Opacity = float64(s.opacity) / 100
		s.boxes = append(s.boxes, b)
		s.touch()
	}
}

// Delete removes exactly the box with the given id.
func (s *Store) Delete(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.boxes = append(s.boxes[:i], s.boxes[i+1:]...)
	s.touch()
	return true
}

// Clear removes every box.
func (s *Store) Clear() {
	s.boxes = nil
	s.touch()
}

// SetPoints moves a box's corners without reordering them.
func (s *Store) SetPoints(id string, a, b types.Point) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	if s.boxes[i].Points[0] == a && s.boxes[i].Points[1] == b {
		return true
	}
	s.boxes[i].Points = [2]types.Point{a, b}
	s.touch()
	return true
}

// NormalizeBox re-establishes top-left/bottom-right ordering for one box.
func (s *Store) NormalizeBox(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.boxes[i].Points = Normalize(s.boxes[i].Points[0], s.boxes[i].Points[1])
	return true
}

// SetLabel changes the label of one box and takes on the label's color.
func (s *Store) SetLabel(id, label, color string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.boxes[i].Label = label
	s.boxes[i].Color = color
	s.touch()
	return true
}

// Rename changes the display name of a box.
func (s *Store) Rename(id, name string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.boxes[i].Name = name
	return true
}

// ToggleVisible flips the visibility of one box.
func (s *Store) ToggleVisible(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.boxes[i].Visible = !s.boxes[i].Visible
	return true
}

// ToggleLocked flips the lock of one box.
func (s *Store) ToggleLocked(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.boxes[i].Locked = !s.boxes[i].Locked
	return true
}

// ToggleAllVisible flips the global visibility flag and applies it to every box,
// overwriting individual flags.
func (s *Store) ToggleAllVisible() bool {
	s.allVisible = !s.allVisible
	for i := range s.boxes {
		s.boxes[i].Visible = s.allVisible
	}
	return s.allVisible
}

// ToggleAllLocked flips the global lock flag and applies it to every box.
func (s *Store) ToggleAllLocked() bool {
	s.allLocked = !s.allLocked
	for i := range s.boxes {
		s.boxes[i].Locked = s.allLocked
	}
	return s.allLocked
}

// AllVisible reports the global visibility flag.
func (s *Store) AllVisible() bool { return s.allVisible }

// AllLocked reports the global lock flag.
func (s *Store) AllLocked() bool { return s.allLocked }

// Opacity returns the shared fill opacity slider value (0-100).
func (s *Store) Opacity() int { return s.opacity }

// SetOpacity sets the shared fill opacity, clamped to 0-100.
func (s *Store) SetOpacity(v int) {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	s.opacity = v
	for i := range s.boxes {
		s.boxes[i].Opacity = float64(v) / 100
	}
}

// Dirty reports whether the boxes changed since the last load or save.
func (s *Store) Dirty() bool { return s.dirty }

// MarkSaved clears the dirty flag.
func (s *Store) MarkSaved() { s.dirty = false }

// Revision increases with every change that affects saved output.
func (s *Store) Revision() uint64 { return s.revision }

// MarkSavedAt clears the dirty flag only if nothing changed since revision rev.
func (s *Store) MarkSavedAt(rev uint64) bool {
	if s.revision != rev {
		return false
	}
	s.dirty = false
	return true
}

func (s *Store) touch() {
	s.dirty = true
	s.revision++
}

// HitOrder returns the boxes in hit-testing priority: unlocked before locked,
// insertion order otherwise.
func (s *Store) HitOrder() []BoundingBox {
	out := s.Boxes()
	sort.SliceStable(out, func(i, j int) bool {
		return !out[i].Locked && out[j].Locked
	})
	return out
}

// DrawOrder returns the boxes in painting order: locked first so unlocked boxes
// land on top.
func DrawOrder(in []BoundingBox) []BoundingBox {
	out := append([]BoundingBox(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Locked && !out[j].Locked
	})
	return out
}

func (s *Store) index(id string) int {
	for i := range s.boxes {
		if s.boxes[i].ID == id {
			return i
		}
	}
	return -1
}
