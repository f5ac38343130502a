package editor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/menta2k/box-annotator/pkg/types"
)

func TestCornerAtTolerance(t *testing.T) {
	pts := [2]types.Point{pt(10, 10), pt(50, 50)}
	require.Equal(t, CornerTopLeft, cornerAt(pts, pt(13, 7), 6))
	require.Equal(t, CornerNone, cornerAt(pts, pt(13.5, 10), 6))
	require.Equal(t, CornerTopRight, cornerAt(pts, pt(50, 10), 6))
	require.Equal(t, CornerBottomLeft, cornerAt(pts, pt(10, 50), 6))
	require.Equal(t, CornerBottomRight, cornerAt(pts, pt(52, 52), 6))
	require.Equal(t, CornerNone, cornerAt(pts, pt(30, 30), 6))
}

func TestCornerAtPrefersTopLeftOnTinyBoxes(t *testing.T) {
	pts := [2]types.Point{pt(10, 10), pt(12, 12)}
	require.Equal(t, CornerTopLeft, cornerAt(pts, pt(11, 11), 6))
}

func TestResizeKeepsOppositeCorner(t *testing.T) {
	pts := [2]types.Point{pt(0, 0), pt(10, 10)}
	require.Equal(t, [2]types.Point{pt(3, 4), pt(10, 10)}, resize(pts, CornerTopLeft, pt(3, 4)))
	require.Equal(t, [2]types.Point{pt(0, 4), pt(3, 10)}, resize(pts, CornerTopRight, pt(3, 4)))
	require.Equal(t, [2]types.Point{pt(3, 0), pt(10, 4)}, resize(pts, CornerBottomLeft, pt(3, 4)))
	require.Equal(t, [2]types.Point{pt(0, 0), pt(3, 4)}, resize(pts, CornerBottomRight, pt(3, 4)))
	require.Equal(t, pts, resize(pts, CornerNone, pt(3, 4)))
}

func TestCornerString(t *testing.T) {
	require.Equal(t, "bottom-right", CornerBottomRight.String())
	require.Equal(t, "none", CornerNone.String())
}
