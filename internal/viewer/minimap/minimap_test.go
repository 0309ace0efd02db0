package minimap

import (
	"image"
	"image/color"
	"testing"

	"drawing-viewer/internal/viewer/models"
	"drawing-viewer/internal/viewer/source"
	"drawing-viewer/internal/viewer/transform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

var frame = transform.Frame{
	Viewport: models.Size{Width: 500, Height: 400},
	Content:  models.Size{Width: 1000, Height: 800},
}

func TestOverlayConcreteScenario(t *testing.T) {
	tr := transform.Transform{Zoom: 2}
	o := Overlay(tr, frame, 240)

	scale := 240.0 / 1000
	assert.InDelta(t, 250*scale, o.Width, tolerance)
	assert.InDelta(t, 200*scale, o.Height, tolerance)
	assert.InDelta(t, 375*scale, o.Left, tolerance)
	assert.InDelta(t, 300*scale, o.Top, tolerance)
}

func TestOverlayShrinksWithZoom(t *testing.T) {
	tr := transform.Transform{PanX: 40, PanY: -25, Zoom: 0.3}
	prev := Overlay(tr, frame, DefaultThumbnailWidth)

	for i := 0; i < 40; i++ {
		tr.ZoomIn()
		next := Overlay(tr, frame, DefaultThumbnailWidth)
		assert.Less(t, next.Width, prev.Width)
		assert.Less(t, next.Height, prev.Height)
		prev = next
	}
}

func TestOverlayFollowsPan(t *testing.T) {
	tr := transform.Transform{Zoom: 2}
	base := Overlay(tr, frame, 1000)

	// сдвиг содержимого вправо открывает область левее
	tr.Pan(100, 0)
	moved := Overlay(tr, frame, 1000)
	assert.InDelta(t, base.Left-50, moved.Left, tolerance)
	assert.InDelta(t, base.Top, moved.Top, tolerance)
}

func TestOverlayIgnoresRotation(t *testing.T) {
	tr := transform.Transform{Zoom: 1.5}
	rotated := tr
	rotated.Rotation = 35
	assert.Equal(t, Overlay(tr, frame, 240), Overlay(rotated, frame, 240))
}

func TestComputeState(t *testing.T) {
	s := Compute(transform.Transform{Zoom: 2}, frame, 240)
	assert.InDelta(t, 192, s.ThumbnailHeight, tolerance)
	assert.InDelta(t, 0.24, s.Scale, tolerance)
	assert.Equal(t, 200, s.ZoomPercent)
	assert.Equal(t, CursorGrab, s.Cursor)

	s = Compute(transform.Transform{Zoom: 0.5}, frame, 240)
	assert.Equal(t, CursorDefault, s.Cursor)
}

func TestThumbnailRaster(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 200))
	surface := &source.Surface{Kind: source.KindRaster, Bitmap: src, Width: 400, Height: 200}

	img, err := Thumbnail(surface, 100)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 50), img.Bounds())
}

func TestThumbnailMarkup(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100" viewBox="0 0 100 100">` +
		`<rect x="0" y="0" width="100" height="100" fill="#ff0000"/></svg>`
	surface := &source.Surface{Kind: source.KindMarkup, Markup: []byte(svg), Width: 100, Height: 100}

	img, err := Thumbnail(surface, 20)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 20), img.Bounds())

	r, g, _, _ := img.At(10, 10).RGBA()
	assert.Greater(t, r, g)
}

func TestThumbnailWithoutSurface(t *testing.T) {
	_, err := Thumbnail(nil, 240)
	assert.ErrorIs(t, err, ErrNoSurface)
}

func TestDrawOverlayKeepsSize(t *testing.T) {
	thumb := image.NewRGBA(image.Rect(0, 0, 240, 192))
	for x := 0; x < 240; x++ {
		for y := 0; y < 192; y++ {
			thumb.Set(x, y, color.White)
		}
	}

	out := DrawOverlay(thumb, models.Rect{Left: 90, Top: 72, Width: 60, Height: 48})
	assert.Equal(t, thumb.Bounds(), out.Bounds())

	_, _, b, _ := out.At(120, 96).RGBA()
	r, _, _, _ := out.At(120, 96).RGBA()
	assert.Greater(t, b, r)
}

func TestFitWidth(t *testing.T) {
	tests := []struct {
		name    string
		natural models.Size
		want    float64
	}{
		{name: "landscape", natural: models.Size{Width: 1000, Height: 800}, want: 240},
		{name: "at limit", natural: models.Size{Width: 100, Height: 400}, want: 240},
		{name: "tall", natural: models.Size{Width: 100, Height: 800}, want: 120},
		{name: "needle", natural: models.Size{Width: 1, Height: 5e6}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, FitWidth(tt.natural, 240), tolerance)
		})
	}
}

func TestThumbnailOfTallDrawingIsBounded(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="1" height="5000000" viewBox="0 0 1 5000000">` +
		`<path d="M 0 0 L 0 5000000" stroke="#000"/></svg>`
	surface := &source.Surface{Kind: source.KindMarkup, Markup: []byte(svg), Width: 1, Height: 5e6}

	img, err := Thumbnail(surface, 240)
	require.NoError(t, err)
	assert.LessOrEqual(t, img.Bounds().Dx(), 240)
	assert.LessOrEqual(t, img.Bounds().Dy(), 240*MaxThumbnailAspect)

	s := Compute(transform.Identity(), transform.Frame{
		Viewport: models.Size{Width: 500, Height: 400},
		Content:  surface.Size(),
	}, 240)
	assert.LessOrEqual(t, s.ThumbnailHeight, 240.0*MaxThumbnailAspect)
}
