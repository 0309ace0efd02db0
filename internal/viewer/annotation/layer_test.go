package annotation

import (
	"testing"

	"drawing-viewer/internal/viewer/models"
	"drawing-viewer/internal/viewer/transform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-6

var frame = transform.Frame{
	Viewport: models.Size{Width: 500, Height: 400},
	Content:  models.Size{Width: 1000, Height: 800},
}

func TestMarkerStaysAnchored(t *testing.T) {
	l := NewLayer(0)
	t1 := transform.Transform{PanX: 12, PanY: -30, Zoom: 1.7, Rotation: 20}
	s := models.Point{X: 140, Y: 310}
	l.Drop(t1, frame, "MCP", s)

	t2 := transform.Transform{PanX: -200, PanY: 45, Zoom: 0.4, Rotation: -95}
	placed := l.Placed(t2, frame)
	require.Len(t, placed, 1)

	want := t2.ToScreen(frame, t1.ToDocument(frame, s))
	assert.InDelta(t, want.X, placed[0].ScreenX, tolerance)
	assert.InDelta(t, want.Y, placed[0].ScreenY, tolerance)

	// в исходном преобразовании маркер стоит там, куда его бросили
	back := l.Placed(t1, frame)
	assert.InDelta(t, s.X, back[0].ScreenX, tolerance)
	assert.InDelta(t, s.Y, back[0].ScreenY, tolerance)
}

func TestDropAssignsUniqueIDs(t *testing.T) {
	l := NewLayer(0)
	a := l.Drop(transform.Identity(), frame, "MCP", models.Point{})
	b := l.Drop(transform.Identity(), frame, "MCP", models.Point{})

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, []models.Marker{a, b}, l.Markers())
}

func TestDragDividesByZoom(t *testing.T) {
	l := NewLayer(0)
	tr := transform.Transform{Zoom: 2, Rotation: 90}
	m := l.Drop(tr, frame, "BSD_1000", models.Point{X: 250, Y: 200})
	require.InDelta(t, 500, m.X, tolerance)
	require.InDelta(t, 400, m.Y, tolerance)

	_, err := l.Grab(m.ID, models.Point{X: 10, Y: 10})
	require.NoError(t, err)

	id, ok := l.Dragging()
	assert.True(t, ok)
	assert.Equal(t, m.ID, id)

	moved, err := l.Move(tr, models.Point{X: 30, Y: 0})
	require.NoError(t, err)
	assert.InDelta(t, 510, moved.X, tolerance)
	assert.InDelta(t, 395, moved.Y, tolerance)

	done, err := l.Release(tr, models.Point{X: 50, Y: 10})
	require.NoError(t, err)
	assert.InDelta(t, 520, done.X, tolerance)
	assert.InDelta(t, 400, done.Y, tolerance)

	_, ok = l.Dragging()
	assert.False(t, ok)
	_, err = l.Move(tr, models.Point{})
	assert.ErrorIs(t, err, ErrNoDrag)
}

func TestGrabUnknownMarker(t *testing.T) {
	_, err := NewLayer(0).Grab("missing", models.Point{})
	assert.ErrorIs(t, err, ErrMarkerNotFound)
}

func TestHitTestReturnsTopmost(t *testing.T) {
	l := NewLayer(32)
	tr := transform.Identity()
	first := l.Drop(tr, frame, "AutroGuard", models.Point{X: 100, Y: 100})
	second := l.Drop(tr, frame, "MCP", models.Point{X: 110, Y: 105})

	hit, ok := l.HitTest(tr, frame, models.Point{X: 106, Y: 103})
	require.True(t, ok)
	assert.Equal(t, second.ID, hit.ID)

	hit, ok = l.HitTest(tr, frame, models.Point{X: 88, Y: 100})
	require.True(t, ok)
	assert.Equal(t, first.ID, hit.ID)

	_, ok = l.HitTest(tr, frame, models.Point{X: 300, Y: 300})
	assert.False(t, ok)
}

func TestResetCopiesMarkers(t *testing.T) {
	src := []models.Marker{{ID: "1", IconRef: "MCP", X: 1, Y: 2}}
	l := NewLayer(0)
	l.Reset(src)

	src[0].X = 99
	assert.Equal(t, 1.0, l.Markers()[0].X)
}

func TestParsePalette(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, ParsePalette(" A, ,B "))
	assert.Equal(t, DefaultPalette, ParsePalette(""))
}
