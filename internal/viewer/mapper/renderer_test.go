package mapper

import (
	"strings"
	"testing"

	"drawing-viewer/internal/viewer/cad"
	"drawing-viewer/internal/viewer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drawingWithBlock() *cad.Drawing {
	return &cad.Drawing{
		Layers: []cad.LayerDef{{Name: "A", Color: 1}, {Name: "C", Color: 5}},
		Blocks: []cad.Block{{
			Name: "DOOR",
			Base: models.Point{X: 5, Y: 5},
			Entities: []cad.Entity{
				{Type: "CIRCLE", Layer: "C", Points: []models.Point{{X: 6, Y: 5}}, Radius: 1},
			},
		}},
		Entities: []cad.Entity{
			{Handle: "1A", Type: "LINE", Layer: "A", Points: []models.Point{{X: 0, Y: 0}, {X: 100, Y: 50}}},
			{Type: "INSERT", Layer: "A", Block: "DOOR", Points: []models.Point{{X: 20, Y: 20}}, Scale: models.Point{X: 1, Y: 1}},
			{Type: "TEXT", Layer: "A", Points: []models.Point{{X: 10, Y: 40}}, Height: 2, Text: "R&D <1>"},
		},
	}
}

func TestExtents(t *testing.T) {
	r := NewRenderer()
	b := r.Extents(drawingWithBlock())

	assert.Equal(t, 0.0, b.MinX)
	assert.Equal(t, 0.0, b.MinY)
	assert.Equal(t, 100.0, b.MaxX)
	assert.Equal(t, 50.0, b.MaxY)
	assert.Equal(t, models.Size{Width: 100, Height: 50}, b.Size())
}

func TestExtentsEmptyDrawing(t *testing.T) {
	b := NewRenderer().Extents(&cad.Drawing{})
	assert.Equal(t, models.Size{Width: 1, Height: 1}, b.Size())
}

func TestRenderFlipsYAxis(t *testing.T) {
	r := NewRenderer()
	d := drawingWithBlock()
	svg, err := r.Render(d, r.Extents(d))
	require.NoError(t, err)

	assert.Contains(t, svg, `width="100" height="50" viewBox="0 0 100 50"`)
	assert.Contains(t, svg, `id="1A" data-layer="A" d="M 0 50 L 100 0"`)
	assert.Contains(t, svg, `stroke="#ff0000"`)
}

func TestRenderExpandsInserts(t *testing.T) {
	r := NewRenderer()
	d := drawingWithBlock()
	svg, err := r.Render(d, r.Extents(d))
	require.NoError(t, err)

	// центр окружности (6,5) относительно базы (5,5) переносится в (21,20)
	assert.Contains(t, svg, `data-layer="C" cx="21" cy="30" r="1"`)
	assert.Contains(t, svg, `stroke="#0000ff"`)
}

func TestRenderEscapesText(t *testing.T) {
	r := NewRenderer()
	d := drawingWithBlock()
	svg, err := r.Render(d, r.Extents(d))
	require.NoError(t, err)

	assert.Contains(t, svg, "R&amp;D &lt;1&gt;")
}

func TestRenderKeepsFrameForFilteredDrawing(t *testing.T) {
	r := NewRenderer()
	d := drawingWithBlock()
	frame := r.Extents(d)

	// INSERT лежит в слое A: без A содержимое блока тоже скрыто
	onlyC, err := r.Render(cad.FilterByLayers(d, models.NewLayerSet("C")), frame)
	require.NoError(t, err)
	assert.Contains(t, onlyC, `viewBox="0 0 100 50"`)
	assert.NotContains(t, onlyC, `data-layer="A"`)
	assert.NotContains(t, onlyC, `data-layer="C"`)

	// без C остаётся вставка, но не её окружность
	onlyA, err := r.Render(cad.FilterByLayers(d, models.NewLayerSet("A")), frame)
	require.NoError(t, err)
	assert.Contains(t, onlyA, `viewBox="0 0 100 50"`)
	assert.Contains(t, onlyA, `data-layer="A"`)
	assert.NotContains(t, onlyA, `data-layer="C"`)

	both, err := r.Render(cad.FilterByLayers(d, models.NewLayerSet("A", "C")), frame)
	require.NoError(t, err)
	assert.Contains(t, both, `data-layer="C" cx="21" cy="30" r="1"`)
}

func TestRenderCyclicBlocksTerminate(t *testing.T) {
	d := &cad.Drawing{
		Blocks: []cad.Block{{
			Name: "LOOP",
			Entities: []cad.Entity{
				{Type: "INSERT", Block: "LOOP", Points: []models.Point{{X: 1, Y: 0}}},
				{Type: "POINT", Points: []models.Point{{X: 0, Y: 0}}},
			},
		}},
		Entities: []cad.Entity{{Type: "INSERT", Block: "LOOP", Points: []models.Point{{X: 0, Y: 0}}}},
	}

	r := NewRenderer()
	svg, err := r.Render(d, r.Extents(d))
	require.NoError(t, err)
	assert.Equal(t, maxInsertDepth, strings.Count(svg, "<circle"))
}

func TestRenderArcSweep(t *testing.T) {
	d := &cad.Drawing{Entities: []cad.Entity{
		{Type: "ARC", Points: []models.Point{{X: 10, Y: 10}}, Radius: 10, StartAngle: 0, EndAngle: 270},
	}}

	r := NewRenderer()
	svg, err := r.Render(d, Bounds{MinX: 0, MinY: 0, MaxX: 20, MaxY: 20})
	require.NoError(t, err)
	assert.Contains(t, svg, `A 10 10 0 1 0`)
}

func TestRenderNilDrawing(t *testing.T) {
	_, err := NewRenderer().Render(nil, Bounds{})
	assert.Error(t, err)
}
