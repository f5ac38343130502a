package boxes

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/menta2k/box-annotator/pkg/types"
)

func newTestStore() *Store {
	s := New()
	n := 0
	s.SetIDGenerator(func() string {
		n++
		return fmt.Sprintf("b%d", n)
	})
	return s
}

func TestCreateNormalizesAndNames(t *testing.T) {
	s := newTestStore()

	box := s.Create(types.Point{X: 50, Y: 80}, types.Point{X: 10, Y: 20}, "car", "#ff0000")

	require.Equal(t, "b1", box.ID)
	require.Equal(t, [2]types.Point{{X: 10, Y: 20}, {X: 50, Y: 80}}, box.Points)
	require.Equal(t, "Box 1", box.Name)
	require.Equal(t, "#ff0000", box.Color)
	require.InDelta(t, 0.3, box.Opacity, 1e-9)
	require.True(t, box.Visible)
	require.False(t, box.Locked)
	require.True(t, s.Dirty())

	second := s.Create(types.Point{}, types.Point{X: 1, Y: 1}, "car", "#ff0000")
	require.Equal(t, "Box 2", second.Name)
	require.NotEqual(t, box.ID, second.ID)
}

func TestDefaultIDsAreUnique(t *testing.T) {
	s := New()
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		b := s.Create(types.Point{}, types.Point{X: 1, Y: 1}, "a", "#000000")
		require.False(t, seen[b.ID])
		seen[b.ID] = true
	}
}

func TestDeleteRemovesExactlyOneAndMarksDirty(t *testing.T) {
	s := newTestStore()
	a := s.Create(types.Point{}, types.Point{X: 1, Y: 1}, "a", "#000000")
	b := s.Create(types.Point{}, types.Point{X: 2, Y: 2}, "a", "#000000")
	c := s.Create(types.Point{}, types.Point{X: 3, Y: 3}, "a", "#000000")
	s.MarkSaved()

	require.True(t, s.Delete(b.ID))
	require.True(t, s.Dirty())

	ids := []string{}
	for _, box := range s.Boxes() {
		ids = append(ids, box.ID)
	}
	require.Equal(t, []string{a.ID, c.ID}, ids)
	require.False(t, s.Delete("missing"))
}

func TestReplaceResetsState(t *testing.T) {
	s := newTestStore()
	s.Create(types.Point{}, types.Point{X: 1, Y: 1}, "a", "#000000")
	s.ToggleAllVisible()

	s.Replace([]BoundingBox{
		{Points: [2]types.Point{{X: 9, Y: 9}, {X: 1, Y: 1}}, Label: "x", Visible: true},
		{Points: [2]types.Point{{X: 0, Y: 0}, {X: 2, Y: 2}}, Label: "y", Visible: true},
	})

	require.False(t, s.Dirty())
	require.True(t, s.AllVisible())
	require.Equal(t, 2, s.Len())
	got := s.Boxes()
	require.Equal(t, "Box 1", got[0].Name)
	require.Equal(t, "Box 2", got[1].Name)
	require.Equal(t, types.Point{X: 1, Y: 1}, got[0].Points[0])
	require.NotEqual(t, got[0].ID, got[1].ID)
}

func TestToggleAllVisibleRestoresEveryBox(t *testing.T) {
	s := newTestStore()
	a := s.Create(types.Point{}, types.Point{X: 1, Y: 1}, "a", "#000000")
	s.Create(types.Point{}, types.Point{X: 2, Y: 2}, "a", "#000000")
	s.ToggleVisible(a.ID)

	require.False(t, s.ToggleAllVisible())
	for _, b := range s.Boxes() {
		require.False(t, b.Visible)
	}
	require.True(t, s.ToggleAllVisible())
	for _, b := range s.Boxes() {
		require.True(t, b.Visible)
	}
}

func TestToggleAllLocked(t *testing.T) {
	s := newTestStore()
	s.Create(types.Point{}, types.Point{X: 1, Y: 1}, "a", "#000000")
	s.Create(types.Point{}, types.Point{X: 2, Y: 2}, "a", "#000000")
	s.MarkSaved()

	require.True(t, s.ToggleAllLocked())
	for _, b := range s.Boxes() {
		require.True(t, b.Locked)
	}
	require.False(t, s.Dirty())
}

func TestSetLabelOnlyTouchesTarget(t *testing.T) {
	s := newTestStore()
	a := s.Create(types.Point{}, types.Point{X: 1, Y: 1}, "car", "#ff0000")
	b := s.Create(types.Point{}, types.Point{X: 2, Y: 2}, "car", "#ff0000")
	s.MarkSaved()

	require.True(t, s.SetLabel(a.ID, "person", "#0000ff"))

	gotA, _ := s.Get(a.ID)
	gotB, _ := s.Get(b.ID)
	require.Equal(t, "person", gotA.Label)
	require.Equal(t, "#0000ff", gotA.Color)
	require.Equal(t, b, gotB)
	require.True(t, s.Dirty())
}

func TestRenameDoesNotDirty(t *testing.T) {
	s := newTestStore()
	a := s.Create(types.Point{}, types.Point{X: 1, Y: 1}, "car", "#ff0000")
	s.MarkSaved()

	require.True(t, s.Rename(a.ID, "front car"))
	got, _ := s.Get(a.ID)
	require.Equal(t, "front car", got.Name)
	require.False(t, s.Dirty())
}

func TestSetOpacityClampsAndApplies(t *testing.T) {
	s := newTestStore()
	s.Create(types.Point{}, types.Point{X: 1, Y: 1}, "a", "#000000")

	s.SetOpacity(150)
	require.Equal(t, 100, s.Opacity())
	require.InDelta(t, 1.0, s.Boxes()[0].Opacity, 1e-9)

	s.SetOpacity(-5)
	require.Equal(t, 0, s.Opacity())
}

func TestHitAndDrawOrder(t *testing.T) {
	s := newTestStore()
	locked := s.Create(types.Point{}, types.Point{X: 1, Y: 1}, "a", "#000000")
	free := s.Create(types.Point{}, types.Point{X: 1, Y: 1}, "a", "#000000")
	s.ToggleLocked(locked.ID)

	hit := s.HitOrder()
	require.Equal(t, free.ID, hit[0].ID)
	require.Equal(t, locked.ID, hit[1].ID)

	draw := DrawOrder(s.Boxes())
	require.Equal(t, locked.ID, draw[0].ID)
	require.Equal(t, free.ID, draw[1].ID)
}

func TestSetPointsAndNormalize(t *testing.T) {
	s := newTestStore()
	a := s.Create(types.Point{}, types.Point{X: 10, Y: 10}, "a", "#000000")
	s.MarkSaved()

	require.True(t, s.SetPoints(a.ID, types.Point{X: 20, Y: 0}, types.Point{X: 10, Y: 10}))
	require.True(t, s.Dirty())
	got, _ := s.Get(a.ID)
	require.Equal(t, types.Point{X: 20, Y: 0}, got.Points[0])

	require.True(t, s.NormalizeBox(a.ID))
	got, _ = s.Get(a.ID)
	require.Equal(t, [2]types.Point{{X: 10, Y: 0}, {X: 20, Y: 10}}, got.Points)
}

func TestContains(t *testing.T) {
	b := BoundingBox{Points: [2]types.Point{{X: 10, Y: 10}, {X: 20, Y: 20}}}
	require.True(t, b.Contains(types.Point{X: 10, Y: 20}))
	require.True(t, b.Contains(types.Point{X: 15, Y: 15}))
	require.False(t, b.Contains(types.Point{X: 21, Y: 15}))
	require.InDelta(t, 10.0, b.Width(), 1e-9)
	require.InDelta(t, 10.0, b.Height(), 1e-9)
}

func BenchmarkHitOrder(b *testing.B) {
	s := New()
	for i := 0; i < 500; i++ {
		box := s.Create(types.Point{X: float64(i)}, types.Point{X: float64(i + 10), Y: 10}, "a", "#000000")
		if i%3 == 0 {
			s.ToggleLocked(box.ID)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.HitOrder()
	}
}

func TestMarkSavedAtIgnoresLaterEdits(t *testing.T) {
	s := New()
	b := s.Create(types.Point{}, types.Point{X: 10, Y: 10}, "car", "#ff0000")
	rev := s.Revision()

	s.SetPoints(b.ID, types.Point{X: 1, Y: 1}, types.Point{X: 11, Y: 11})
	require.False(t, s.MarkSavedAt(rev))
	require.True(t, s.Dirty())

	require.True(t, s.MarkSavedAt(s.Revision()))
	require.False(t, s.Dirty())

	s.Rename(b.ID, "front car")
	require.True(t, s.MarkSavedAt(s.Revision()))
}
