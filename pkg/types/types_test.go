package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPointArithmetic(t *testing.T) {
	p := Point{X: 3, Y: 4}
	require.Equal(t, Point{X: 4, Y: 6}, p.Add(Point{X: 1, Y: 2}))
	require.Equal(t, Point{X: 2, Y: 2}, p.Sub(Point{X: 1, Y: 2}))
	require.Equal(t, Point{X: 1.5, Y: 2}, p.Scale(0.5))
}

func TestBoxToRecord(t *testing.T) {
	rec := Box{X: 0.1, Y: 0.2, W: 0.4, H: 0.2}.ToRecord(2)
	require.Equal(t, 2, rec.LabelIndex)
	require.InDelta(t, 0.3, rec.XCenter, 1e-9)
	require.InDelta(t, 0.3, rec.YCenter, 1e-9)
	require.InDelta(t, 0.4, rec.Width, 1e-9)
	require.InDelta(t, 0.2, rec.Height, 1e-9)
}

func TestToolNames(t *testing.T) {
	for _, tool := range []Tool{ToolSelect, ToolDrawBox, ToolDragBox, ToolPan, ToolZoomIn, ToolZoomOut} {
		parsed, ok := ParseTool(tool.String())
		require.True(t, ok)
		require.Equal(t, tool, parsed)
	}
	_, ok := ParseTool("lasso")
	require.False(t, ok)
	require.Equal(t, "unknown", Tool(42).String())
}

func TestSizeValid(t *testing.T) {
	require.True(t, Size{Width: 1, Height: 1}.Valid())
	require.False(t, Size{Width: 0, Height: 1}.Valid())
}
