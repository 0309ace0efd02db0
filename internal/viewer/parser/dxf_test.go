package parser

import (
	"os"
	"strings"
	"testing"

	"drawing-viewer/internal/viewer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openFixture(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Open("testdata/layers.dxf")
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestParseDXFLayersAndEntities(t *testing.T) {
	d, err := ParseDXF(openFixture(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, d.AllLayerNames())
	assert.Equal(t, []string{"A", "C"}, d.UsedLayerNames())
	assert.Equal(t, 1, d.LayerColor("A"))
	assert.Equal(t, 7, d.LayerColor("missing"))

	require.Len(t, d.Entities, 5)
	assert.Equal(t, "LINE", d.Entities[0].Type)
	assert.Equal(t, "1A", d.Entities[0].Handle)
	assert.Equal(t, []models.Point{{X: 0, Y: 0}, {X: 100, Y: 50}}, d.Entities[0].Points)

	arc := d.Entities[1]
	assert.Equal(t, 10.0, arc.Radius)
	assert.Equal(t, 0.0, arc.StartAngle)
	assert.Equal(t, 90.0, arc.EndAngle)

	insert := d.Entities[2]
	assert.Equal(t, "DOOR", insert.Block)
	assert.Equal(t, models.Point{X: 1, Y: 1}, insert.Scale)

	text := d.Entities[4]
	assert.Equal(t, "R&D <1>", text.Text)
	assert.Equal(t, 2.5, text.Height)
}

func TestParseDXFBlocks(t *testing.T) {
	d, err := ParseDXF(openFixture(t))
	require.NoError(t, err)

	block, ok := d.FindBlock("DOOR")
	require.True(t, ok)
	assert.Equal(t, models.Point{X: 5, Y: 5}, block.Base)
	require.Len(t, block.Entities, 1)
	assert.Equal(t, "CIRCLE", block.Entities[0].Type)
	assert.Equal(t, "C", block.Entities[0].Layer)
	assert.Equal(t, 6, d.EntityCount())
}

func TestParseDXFMergesPolylineVertices(t *testing.T) {
	d, err := ParseDXF(openFixture(t))
	require.NoError(t, err)

	poly := d.Entities[3]
	assert.Equal(t, "POLYLINE", poly.Type)
	assert.True(t, poly.Closed)
	assert.Equal(t, []models.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}}, poly.Points)
}

func TestParseDXFEntityWithoutLayer(t *testing.T) {
	src := "0\nSECTION\n2\nENTITIES\n0\nPOINT\n10\n1\n20\n2\n0\nENDSEC\n0\nEOF\n"
	d, err := ParseDXF(strings.NewReader(src))
	require.NoError(t, err)

	require.Len(t, d.Entities, 1)
	assert.Equal(t, "0", d.Entities[0].Layer)
	assert.Equal(t, []string{"0"}, d.AllLayerNames())
}

func TestParseDXFMalformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "empty", src: ""},
		{name: "odd lines", src: "0\nSECTION\n2\n"},
		{name: "bad code", src: "x\nSECTION\n"},
		{name: "no sections", src: "999\ncomment\n0\nEOF\n"},
		{name: "binary", src: "AutoCAD Binary DXF\r\n\x1a\x00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDXF(strings.NewReader(tt.src))
			assert.ErrorIs(t, err, ErrMalformedDXF)
		})
	}
}
