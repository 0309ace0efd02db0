// Package minimap строит обзорную миниатюру документа и рамку видимой области на ней.
package minimap

import (
	"math"

	"drawing-viewer/internal/viewer/models"
	"drawing-viewer/internal/viewer/transform"
)

const DefaultThumbnailWidth = 240

// MaxThumbnailAspect: высота миниатюры не больше ширины, умноженной на это значение.
const MaxThumbnailAspect = 4

const (
	CursorGrab    = "grab"
	CursorDefault = "default"
)

// State - всё, что нужно клиенту для отрисовки миниатюры.
type State struct {
	ThumbnailWidth  float64     `json:"thumbnailWidth"`
	ThumbnailHeight float64     `json:"thumbnailHeight"`
	Scale           float64     `json:"scale"`
	Overlay         models.Rect `json:"overlay"`
	ZoomPercent     int         `json:"zoomPercent"`
	Cursor          string      `json:"cursor"`
}

// Scale - коэффициент перевода координат документа в координаты миниатюры.
func Scale(natural models.Size, thumbnailWidth float64) float64 {
	if natural.Width <= 0 {
		return 0
	}
	return thumbnailWidth / natural.Width
}

// FitWidth уменьшает ширину миниатюры так, чтобы высокий документ
// поместился в width x width*MaxThumbnailAspect.
func FitWidth(natural models.Size, width float64) float64 {
	if natural.Width <= 0 || natural.Height <= 0 {
		return width
	}
	maxHeight := width * MaxThumbnailAspect
	if width*natural.Height/natural.Width <= maxHeight {
		return width
	}
	return math.Max(1, maxHeight*natural.Width/natural.Height)
}

// Overlay считает рамку видимой области в координатах миниатюры.
// Поворот не учитывается: рамка всегда выровнена по осям.
func Overlay(t transform.Transform, f transform.Frame, thumbnailWidth float64) models.Rect {
	scale := Scale(f.Content, thumbnailWidth)
	vw, vh := f.Viewport.Width, f.Viewport.Height
	nw, nh := f.Content.Width, f.Content.Height

	return models.Rect{
		Left:   ((-vw/2-t.PanX)/t.Zoom + nw/2) * scale,
		Top:    ((-vh/2-t.PanY)/t.Zoom + nh/2) * scale,
		Width:  (vw / t.Zoom) * scale,
		Height: (vh / t.Zoom) * scale,
	}
}

// Cursor - подсказка курсора: перетаскивание доступно, только если документ
// не помещается в область просмотра.
func Cursor(t transform.Transform, f transform.Frame) string {
	if t.CanPan(f) {
		return CursorGrab
	}
	return CursorDefault
}

func Compute(t transform.Transform, f transform.Frame, thumbnailWidth float64) State {
	thumbnailWidth = FitWidth(f.Content, thumbnailWidth)
	scale := Scale(f.Content, thumbnailWidth)
	return State{
		ThumbnailWidth:  thumbnailWidth,
		ThumbnailHeight: f.Content.Height * scale,
		Scale:           scale,
		Overlay:         Overlay(t, f, thumbnailWidth),
		ZoomPercent:     t.ZoomPercent(),
		Cursor:          Cursor(t, f),
	}
}
