// Package transform описывает пан, масштаб и поворот области просмотра.
package transform

import (
	"math"

	"drawing-viewer/internal/viewer/models"
)

const (
	ZoomStep     = 1.1
	RotationStep = 5.0
)

// ============================================================
// Transform
// ============================================================

// Transform - визуальное преобразование поверх готовой поверхности.
// Zoom всегда строго положителен.
type Transform struct {
	PanX     float64 `json:"panX"`
	PanY     float64 `json:"panY"`
	Zoom     float64 `json:"zoom"`
	Rotation float64 `json:"rotation"`
}

// Frame связывает преобразование с размерами области просмотра и документа.
type Frame struct {
	Viewport models.Size
	Content  models.Size
}

func Identity() Transform {
	return Transform{Zoom: 1}
}

func (t *Transform) ZoomIn() {
	t.setZoom(t.Zoom * ZoomStep)
}

func (t *Transform) ZoomOut() {
	t.setZoom(t.Zoom / ZoomStep)
}

func (t *Transform) ResetZoom() {
	t.Zoom = 1
}

func (t *Transform) RotateLeft() {
	t.Rotation -= RotationStep
}

func (t *Transform) RotateRight() {
	t.Rotation += RotationStep
}

func (t *Transform) ResetRotation() {
	t.Rotation = 0
}

// Pan сдвигает содержимое в пикселях экрана, без учёта масштаба.
func (t *Transform) Pan(dx, dy float64) {
	t.PanX += dx
	t.PanY += dy
}

// setZoom не даёт масштабу уйти в ноль, бесконечность или NaN.
func (t *Transform) setZoom(z float64) {
	if z > 0 && !math.IsInf(z, 0) && !math.IsNaN(z) {
		t.Zoom = z
	}
}

// ZoomPercent - значение для индикатора масштаба.
func (t Transform) ZoomPercent() int {
	return int(math.Round(t.Zoom * 100))
}

// ============================================================
// Projection
// ============================================================

// ToScreen переводит точку документа в пиксели области просмотра:
// центр документа -> поворот -> масштаб -> центр области просмотра + пан.
func (t Transform) ToScreen(f Frame, p models.Point) models.Point {
	c := f.Content.Center()
	v := f.Viewport.Center()

	x, y := rotate(p.X-c.X, p.Y-c.Y, t.Rotation)
	return models.Point{
		X: x*t.Zoom + v.X + t.PanX,
		Y: y*t.Zoom + v.Y + t.PanY,
	}
}

// ToDocument - точная обратная функция к ToScreen.
func (t Transform) ToDocument(f Frame, s models.Point) models.Point {
	c := f.Content.Center()
	v := f.Viewport.Center()

	x := (s.X - v.X - t.PanX) / t.Zoom
	y := (s.Y - v.Y - t.PanY) / t.Zoom
	x, y = rotate(x, y, -t.Rotation)
	return models.Point{X: x + c.X, Y: y + c.Y}
}

// DeltaToDocument переводит относительное смещение указателя в единицы документа.
func (t Transform) DeltaToDocument(dx, dy float64) (float64, float64) {
	return dx / t.Zoom, dy / t.Zoom
}

// CanPan сообщает, выходит ли масштабированный документ за область просмотра.
func (t Transform) CanPan(f Frame) bool {
	return f.Content.Width*t.Zoom > f.Viewport.Width ||
		f.Content.Height*t.Zoom > f.Viewport.Height
}

func rotate(x, y, degrees float64) (float64, float64) {
	if degrees == 0 {
		return x, y
	}
	rad := degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return x*cos - y*sin, x*sin + y*cos
}
