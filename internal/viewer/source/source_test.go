package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"drawing-viewer/internal/viewer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistryResolve(t *testing.T) {
	r := NewDefaultRegistry(NewPDFSource(0, BlankRasterizer{}))

	for _, name := range []string{"plan.DXF", "scan.pdf", "photo.jpeg", "a.webp", "b.tif", "icon.svg"} {
		_, err := r.Resolve(name)
		assert.NoError(t, err, name)
	}

	for _, name := range []string{"plan.dwg", "notes.txt", "noext"} {
		_, err := r.Resolve(name)
		assert.ErrorIs(t, err, ErrUnsupportedDocumentType, name)
	}
}

func TestCADDocumentLayers(t *testing.T) {
	data, err := os.ReadFile("../parser/testdata/layers.dxf")
	require.NoError(t, err)

	doc, err := NewCADSource().Load(context.Background(), data)
	require.NoError(t, err)

	layered, ok := doc.(LayeredDocument)
	require.True(t, ok)
	assert.Equal(t, []string{"A", "C"}, layered.LayerNames())
	assert.Equal(t, []string{"A", "C"}, layered.DefaultLayers())

	full, err := doc.Render(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, KindMarkup, full.Kind)
	assert.Equal(t, doc.NaturalSize(), full.Size())
	assert.Contains(t, string(full.Markup), `data-layer="C"`)

	onlyA, err := doc.Render(context.Background(), models.NewLayerSet("A"))
	require.NoError(t, err)
	assert.Equal(t, full.Size(), onlyA.Size())
	assert.NotContains(t, string(onlyA.Markup), `data-layer="C"`)
}

func TestCADSourceRejectsGarbage(t *testing.T) {
	_, err := NewCADSource().Load(context.Background(), []byte("not a drawing"))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestRasterSource(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 30, 20))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	doc, err := NewRasterSource().Load(context.Background(), buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, models.Size{Width: 30, Height: 20}, doc.NaturalSize())

	surface, err := doc.Render(context.Background(), models.NewLayerSet("ignored"))
	require.NoError(t, err)
	assert.Equal(t, KindRaster, surface.Kind)
	assert.Equal(t, "image/png", surface.ContentType())

	_, err = NewRasterSource().Load(context.Background(), []byte{0x89, 'P', 'N', 'G'})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestSVGSource(t *testing.T) {
	doc, err := NewSVGSource().Load(context.Background(), []byte(`<svg viewBox="0 0 120 60"></svg>`))
	require.NoError(t, err)
	assert.Equal(t, models.Size{Width: 120, Height: 60}, doc.NaturalSize())

	_, err = NewSVGSource().Load(context.Background(), []byte(`{}`))
	assert.ErrorIs(t, err, ErrDecode)
}

// buildPDF собирает минимальный PDF с одной страницей и корректной таблицей xref.
func buildPDF(pageAttrs string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 200 100] >>",
		"<< /Type /Page /Parent 2 0 R " + pageAttrs + " >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestPDFSourceInheritedMediaBox(t *testing.T) {
	src := NewPDFSource(1.5, BlankRasterizer{})
	doc, err := src.Load(context.Background(), buildPDF(""))
	require.NoError(t, err)
	assert.Equal(t, models.Size{Width: 300, Height: 150}, doc.NaturalSize())

	surface, err := doc.Render(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, KindRaster, surface.Kind)
	assert.Equal(t, 300.0, surface.Width)
	assert.Equal(t, 150.0, surface.Height)
}

func TestPDFSourceRotatedPage(t *testing.T) {
	doc, err := NewPDFSource(1, BlankRasterizer{}).Load(context.Background(), buildPDF("/Rotate 90"))
	require.NoError(t, err)
	assert.Equal(t, models.Size{Width: 100, Height: 200}, doc.NaturalSize())
}

func TestPDFSourceRejectsGarbage(t *testing.T) {
	_, err := NewPDFSource(1, BlankRasterizer{}).Load(context.Background(), []byte("%PDF-1.4\ngarbage"))
	assert.ErrorIs(t, err, ErrDecode)
}

type failingRasterizer struct{}

func (failingRasterizer) Rasterize(context.Context, []byte, float64, models.Size) (image.Image, error) {
	return nil, fmt.Errorf("boom")
}

func TestFallbackRasterizer(t *testing.T) {
	r := &fallbackRasterizer{primary: failingRasterizer{}, fallback: BlankRasterizer{}, log: zap.NewNop()}
	img, err := r.Rasterize(context.Background(), nil, 1, models.Size{Width: 40, Height: 10})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 10), img.Bounds())
}

func TestPDFSourceHugePageFitsPixelLimit(t *testing.T) {
	doc, err := NewPDFSource(1.5, BlankRasterizer{}).Load(context.Background(),
		buildPDF("/MediaBox [0 0 10000000 5000000]"))
	require.NoError(t, err)

	size := doc.NaturalSize()
	assert.LessOrEqual(t, size.Width*size.Height, float64(MaxBitmapPixels)+1)
	assert.InDelta(t, 2.0, size.Width/size.Height, 1e-9)
}

func TestBlankRasterizerRejectsOversizedPage(t *testing.T) {
	_, err := BlankRasterizer{}.Rasterize(context.Background(), nil, 1, models.Size{Width: 1e9, Height: 1})
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = BlankRasterizer{}.Rasterize(context.Background(), nil, 1, models.Size{Width: 1e5, Height: 1e5})
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestCheckPixels(t *testing.T) {
	assert.NoError(t, checkPixels(7000, 7000))
	assert.ErrorIs(t, checkPixels(8000, 8000), ErrTooLarge)
	assert.ErrorIs(t, checkPixels(0, 10), ErrTooLarge)
}
