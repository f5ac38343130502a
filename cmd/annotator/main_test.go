package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/menta2k/box-annotator/pkg/labels"
	"github.com/menta2k/box-annotator/pkg/types"
)

func TestBoxListSet(t *testing.T) {
	var b boxList
	require.NoError(t, b.Set("10, 20,30,40"))
	require.Equal(t, [2]types.Point{{X: 10, Y: 20}, {X: 30, Y: 40}}, b[0])
	require.Error(t, b.Set("1,2,3"))
	require.Error(t, b.Set("1,2,3,x"))
	require.Equal(t, "1", b.String())
}

func TestParseLabels(t *testing.T) {
	ls, err := parseLabels("car=#ff0000, person ,")
	require.NoError(t, err)
	require.Equal(t, []labels.Label{{Name: "car", Color: "#ff0000"}, {Name: "person"}}, ls)

	_, err = parseLabels(" , ")
	require.Error(t, err)
}
