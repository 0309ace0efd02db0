package minimap

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"drawing-viewer/internal/viewer/models"
	"drawing-viewer/internal/viewer/source"

	"github.com/fogleman/gg"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
)

var ErrNoSurface = errors.New("no surface to render")

// ============================================================
// Thumbnail
// ============================================================

// Thumbnail растеризует поверхность в изображение заданной ширины
// с сохранением пропорций. Высокие документы вписываются по FitWidth.
func Thumbnail(s *source.Surface, width int) (image.Image, error) {
	if s == nil || s.Width <= 0 || s.Height <= 0 {
		return nil, ErrNoSurface
	}
	if width < 1 {
		width = 1
	}
	maxHeight := width * MaxThumbnailAspect
	width = int(math.Max(1, math.Round(FitWidth(s.Size(), float64(width)))))
	height := int(math.Max(1, math.Round(float64(width)*s.Height/s.Width)))
	if height > maxHeight {
		height = maxHeight
	}

	switch s.Kind {
	case source.KindMarkup:
		return rasterizeSVG(s.Markup, width, height)
	case source.KindRaster:
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), s.Bitmap, s.Bitmap.Bounds(), draw.Src, nil)
		return dst, nil
	}
	return nil, fmt.Errorf("unknown surface kind %q", s.Kind)
}

func rasterizeSVG(markup []byte, width, height int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(markup), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("read svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	raster := rasterx.NewDasher(width, height, scanner)
	icon.Draw(raster, 1.0)
	return img, nil
}

// ============================================================
// Overlay drawing
// ============================================================

// DrawOverlay рисует рамку видимой области поверх миниатюры.
func DrawOverlay(thumb image.Image, overlay models.Rect) image.Image {
	dc := gg.NewContextForImage(thumb)

	dc.SetRGBA(0.2, 0.45, 0.9, 0.15)
	dc.DrawRectangle(overlay.Left, overlay.Top, overlay.Width, overlay.Height)
	dc.Fill()

	dc.SetRGB(0.2, 0.45, 0.9)
	dc.SetLineWidth(2)
	dc.DrawRectangle(overlay.Left, overlay.Top, overlay.Width, overlay.Height)
	dc.Stroke()

	return dc.Image()
}
