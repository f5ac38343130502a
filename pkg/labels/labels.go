// Package labels holds a project's ordered label set and the colors configured for each label.
package labels

import (
	"fmt"
	"image/color"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultColor is used when a label has no color or its color cannot be parsed.
const DefaultColor = "#00ff00"

// Label is a named, colored category.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Set is an ordered list of labels. The position of a label is its YOLO class index.
type Set struct {
	names  []string
	colors map[string]string
}

// NewSet builds a set from parallel name/color slices. Missing or malformed colors
// fall back to DefaultColor.
func NewSet(names, colors []string) *Set {
	s := &Set{}
	s.Replace(names, colors)
	return s
}

// FromLabels builds a set from label records.
func FromLabels(ls []Label) *Set {
	names := make([]string, len(ls))
	colors := make([]string, len(ls))
	for i, l := range ls {
		names[i] = l.Name
		colors[i] = l.Color
	}
	return NewSet(names, colors)
}

// Replace swaps the whole label set.
func (s *Set) Replace(names, colors []string) {
	s.names = append([]string(nil), names...)
	s.colors = make(map[string]string, len(names))
	for i, name := range names {
		c := ""
		if i < len(colors) {
			c = strings.TrimSpace(colors[i])
		}
		if !IsValidColor(c) {
			c = DefaultColor
		}
		s.colors[name] = c
	}
}

// Names returns the ordered label names.
func (s *Set) Names() []string {
	return append([]string(nil), s.names...)
}

// Labels returns name/color pairs in order.
func (s *Set) Labels() []Label {
	out := make([]Label, len(s.names))
	for i, n := range s.names {
		out[i] = Label{Name: n, Color: s.colors[n]}
	}
	return out
}

// Len returns the number of labels.
func (s *Set) Len() int {
	return len(s.names)
}

// Default returns the first label, or "" when the set is empty.
func (s *Set) Default() string {
	if len(s.names) == 0 {
		return ""
	}
	return s.names[0]
}

// ColorOf returns the configured color of a label, or DefaultColor.
func (s *Set) ColorOf(name string) string {
	if c, ok := s.colors[name]; ok {
		return c
	}
	return DefaultColor
}

// IndexOf returns the class index of a label, or -1 when absent.
func (s *Set) IndexOf(name string) int {
	for i, n := range s.names {
		if n == name {
			return i
		}
	}
	return -1
}

// NameAt returns the label at a class index.
func (s *Set) NameAt(i int) (string, bool) {
	if i < 0 || i >= len(s.names) {
		return "", false
	}
	return s.names[i], true
}

// Contains reports whether the label is part of the set.
func (s *Set) Contains(name string) bool {
	return s.IndexOf(name) >= 0
}

// Filter returns the labels containing term, case-insensitively.
func (s *Set) Filter(term string) []string {
	term = strings.ToLower(term)
	var out []string
	for _, n := range s.names {
		if strings.Contains(strings.ToLower(n), term) {
			out = append(out, n)
		}
	}
	return out
}

// IsValidColor reports whether c parses as a #RRGGBB or #RGB hex color.
func IsValidColor(c string) bool {
	_, err := colorful.Hex(c)
	return err == nil
}

// ParseColor converts a hex color into an opaque NRGBA.
func ParseColor(c string) (color.NRGBA, error) {
	parsed, err := colorful.Hex(strings.TrimSpace(c))
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", c, err)
	}
	r, g, b := parsed.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// MustColor converts a hex color, falling back to DefaultColor.
func MustColor(c string) color.NRGBA {
	if parsed, err := ParseColor(c); err == nil {
		return parsed
	}
	return color.NRGBA{R: 0, G: 255, B: 0, A: 255}
}
