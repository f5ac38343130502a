package types

// Point is a position in canvas (pre-zoom) space unless stated otherwise.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns p multiplied by f on both axes.
func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

// Box represents a normalized bounding box with coordinates in [0,1] range.
// X and Y are the top-left corner.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// YOLORecord is one "label_index x_center y_center width height" row.
// Spatial values are fractions of the natural image size.
type YOLORecord struct {
	LabelIndex int
	XCenter    float64
	YCenter    float64
	Width      float64
	Height     float64
}

// ToRecord converts a top-left normalized box into a YOLO record.
func (b Box) ToRecord(labelIndex int) YOLORecord {
	return YOLORecord{
		LabelIndex: labelIndex,
		XCenter:    b.X + b.W/2,
		YCenter:    b.Y + b.H/2,
		Width:      b.W,
		Height:     b.H,
	}
}

// Proposal is an object suggested by a vision model.
type Proposal struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// ProposalSet is the reply expected from a vision model asked to pre-annotate a frame.
type ProposalSet struct {
	Objects     []Proposal `json:"objects"`
	Description string     `json:"description"`
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Tool is the active canvas interaction mode.
type Tool int

const (
	ToolSelect Tool = iota
	ToolDrawBox
	ToolDragBox
	ToolPan
	ToolZoomIn
	ToolZoomOut
)

var toolNames = map[Tool]string{
	ToolSelect:  "select",
	ToolDrawBox: "draw-box",
	ToolDragBox: "drag-box",
	ToolPan:     "pan",
	ToolZoomIn:  "zoom-in",
	ToolZoomOut: "zoom-out",
}

func (t Tool) String() string {
	if n, ok := toolNames[t]; ok {
		return n
	}
	return "unknown"
}

// ParseTool maps a tool name back to its value.
func ParseTool(name string) (Tool, bool) {
	for t, n := range toolNames {
		if n == name {
			return t, true
		}
	}
	return ToolSelect, false
}
