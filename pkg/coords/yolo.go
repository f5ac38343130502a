// Package coords converts between pointer, canvas and normalized YOLO space.
package coords

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/menta2k/box-annotator/pkg/types"
)

// ErrMalformedLine is returned for YOLO rows that are not five numbers.
var ErrMalformedLine = errors.New("malformed yolo line")

// ParseYOLO parses newline separated YOLO rows. Blank lines are skipped. Malformed
// rows are dropped and reported through the joined error while well-formed rows
// are still returned.
func ParseYOLO(text string) ([]types.YOLORecord, error) {
	var (
		records []types.YOLORecord
		errs    []error
	)
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rec, err := ParseLine(line)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", n+1, err))
			continue
		}
		records = append(records, rec)
	}
	return records, errors.Join(errs...)
}

// ParseLine parses one "label x_center y_center width height" row.
func ParseLine(line string) (types.YOLORecord, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return types.YOLORecord{}, fmt.Errorf("%w: want 5 fields, got %d", ErrMalformedLine, len(fields))
	}
	vals := make([]float64, 5)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return types.YOLORecord{}, fmt.Errorf("%w: field %d %q", ErrMalformedLine, i+1, f)
		}
		vals[i] = v
	}
	return RecordFromRow(vals)
}

// RecordFromRow converts an already-split numeric row.
func RecordFromRow(row []float64) (types.YOLORecord, error) {
	if len(row) != 5 {
		return types.YOLORecord{}, fmt.Errorf("%w: want 5 values, got %d", ErrMalformedLine, len(row))
	}
	if row[0] != math.Trunc(row[0]) {
		return types.YOLORecord{}, fmt.Errorf("%w: label index %v is not an integer", ErrMalformedLine, row[0])
	}
	if row[0] < 0 || row[0] > math.MaxInt32 {
		return types.YOLORecord{}, fmt.Errorf("%w: label index %v out of range", ErrMalformedLine, row[0])
	}
	return types.YOLORecord{
		LabelIndex: int(row[0]),
		XCenter:    row[1],
		YCenter:    row[2],
		Width:      row[3],
		Height:     row[4],
	}, nil
}

// RecordsFromRows converts the pre-split array form some frames are served with.
func RecordsFromRows(rows [][]float64) ([]types.YOLORecord, error) {
	var (
		records []types.YOLORecord
		errs    []error
	)
	for i, row := range rows {
		rec, err := RecordFromRow(row)
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", i+1, err))
			continue
		}
		records = append(records, rec)
	}
	return records, errors.Join(errs...)
}

// FormatYOLO renders a record with six decimal places.
func FormatYOLO(r types.YOLORecord) string {
	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f", r.LabelIndex, r.XCenter, r.YCenter, r.Width, r.Height)
}
