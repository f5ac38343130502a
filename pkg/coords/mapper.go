package coords

import (
	"errors"
	"fmt"
	"math"

	"github.com/menta2k/box-annotator/pkg/boxes"
	"github.com/menta2k/box-annotator/pkg/labels"
	"github.com/menta2k/box-annotator/pkg/types"
)

var (
	// ErrUnknownLabel is returned when saving a box whose label is not in the label set.
	ErrUnknownLabel = errors.New("label not in project label set")
	// ErrInvalidSize is returned when a display or natural size is not positive.
	ErrInvalidSize = errors.New("image dimensions must be positive")
)

// LabelIndex returns the class index of a label, -1 when it is not in the set.
func LabelIndex(set *labels.Set, label string) int {
	return set.IndexOf(label)
}

// LoadBoxes converts stored YOLO records into canvas-space boxes using the
// displayed image size. Boxes positioned this way stay valid only while the
// display size does not change.
func LoadBoxes(records []types.YOLORecord, set *labels.Set, display types.Size) []boxes.BoundingBox {
	out := make([]boxes.BoundingBox, 0, len(records))
	for _, r := range records {
		w := r.Width * display.Width
		h := r.Height * display.Height
		cx := r.XCenter * display.Width
		cy := r.YCenter * display.Height

		label, ok := set.NameAt(r.LabelIndex)
		color := labels.DefaultColor
		if ok {
			color = set.ColorOf(label)
		}

		out = append(out, boxes.BoundingBox{
			Points: [2]types.Point{
				{X: cx - w/2, Y: cy - h/2},
				{X: cx + w/2, Y: cy + h/2},
			},
			Label:   label,
			Color:   color,
			Visible: true,
		})
	}
	return out
}

// ToRecord converts one canvas-space box into a YOLO record normalized to the
// natural image size.
func ToRecord(b boxes.BoundingBox, labelIndex int, natural, display types.Size) (types.YOLORecord, error) {
	if !natural.Valid() || !display.Valid() {
		return types.YOLORecord{}, ErrInvalidSize
	}
	scaleX := natural.Width / display.Width
	scaleY := natural.Height / display.Height

	start, end := b.Points[0], b.Points[1]
	x1, y1 := start.X*scaleX, start.Y*scaleY
	x2, y2 := end.X*scaleX, end.Y*scaleY

	return types.YOLORecord{
		LabelIndex: labelIndex,
		XCenter:    (x1 + x2) / 2 / natural.Width,
		YCenter:    (y1 + y2) / 2 / natural.Height,
		Width:      math.Abs(x2-x1) / natural.Width,
		Height:     math.Abs(y2-y1) / natural.Height,
	}, nil
}

// SaveLines converts boxes into YOLO lines in store order. A box whose label is
// missing from the set fails the whole conversion with ErrUnknownLabel.
func SaveLines(bs []boxes.BoundingBox, set *labels.Set, natural, display types.Size) ([]string, error) {
	lines := make([]string, 0, len(bs))
	for _, b := range bs {
		idx := LabelIndex(set, b.Label)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s has label %q", ErrUnknownLabel, b.Name, b.Label)
		}
		rec, err := ToRecord(b, idx, natural, display)
		if err != nil {
			return nil, err
		}
		lines = append(lines, FormatYOLO(rec))
	}
	return lines, nil
}

// BoxFromNormalized places a top-left normalized box (as returned by vision
// models) in canvas space.
func BoxFromNormalized(b types.Box, display types.Size) [2]types.Point {
	return [2]types.Point{
		{X: b.X * display.Width, Y: b.Y * display.Height},
		{X: (b.X + b.W) * display.Width, Y: (b.Y + b.H) * display.Height},
	}
}
