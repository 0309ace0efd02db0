// Package annotation хранит маркеры документа: размещение, перетаскивание,
// попадание указателя и сохранение по хешу содержимого.
package annotation

import (
	"errors"
	"math"

	"drawing-viewer/internal/viewer/models"
	"drawing-viewer/internal/viewer/transform"

	"github.com/google/uuid"
)

// DefaultIconSize - сторона иконки маркера на экране, в пикселях.
const DefaultIconSize = 32

var (
	ErrMarkerNotFound = errors.New("marker not found")
	ErrNoDrag         = errors.New("no marker is being dragged")
)

// Placed - маркер вместе с его текущей позицией на экране.
type Placed struct {
	models.Marker
	ScreenX float64 `json:"screenX"`
	ScreenY float64 `json:"screenY"`
}

type drag struct {
	index   int
	pointer models.Point
	origin  models.Point
}

// ============================================================
// Layer
// ============================================================

// Layer - рабочая копия маркеров открытого документа. Порядок вставки
// задаёт порядок отрисовки: последний маркер сверху.
// Layer не потокобезопасен, синхронизацию обеспечивает сессия.
type Layer struct {
	markers  []models.Marker
	drag     *drag
	iconSize float64
}

func NewLayer(iconSize float64) *Layer {
	if iconSize <= 0 {
		iconSize = DefaultIconSize
	}
	return &Layer{iconSize: iconSize}
}

// Reset заменяет набор маркеров (при загрузке документа).
func (l *Layer) Reset(markers []models.Marker) {
	l.markers = append([]models.Marker(nil), markers...)
	l.drag = nil
}

// Markers возвращает копию списка маркеров.
func (l *Layer) Markers() []models.Marker {
	return append([]models.Marker{}, l.markers...)
}

// Drop размещает новый маркер под точкой экрана.
func (l *Layer) Drop(t transform.Transform, f transform.Frame, iconRef string, screen models.Point) models.Marker {
	p := t.ToDocument(f, screen)
	m := models.Marker{
		ID:      uuid.New().String(),
		IconRef: iconRef,
		X:       p.X,
		Y:       p.Y,
	}
	l.markers = append(l.markers, m)
	return m
}

// Grab начинает перетаскивание: запоминает указатель и исходную позицию.
func (l *Layer) Grab(id string, pointer models.Point) (models.Marker, error) {
	i := l.indexOf(id)
	if i < 0 {
		return models.Marker{}, ErrMarkerNotFound
	}
	m := l.markers[i]
	l.drag = &drag{index: i, pointer: pointer, origin: models.Point{X: m.X, Y: m.Y}}
	return m, nil
}

// Move сдвигает захваченный маркер на смещение указателя, делённое на масштаб.
func (l *Layer) Move(t transform.Transform, pointer models.Point) (models.Marker, error) {
	if l.drag == nil {
		return models.Marker{}, ErrNoDrag
	}
	dx, dy := t.DeltaToDocument(pointer.X-l.drag.pointer.X, pointer.Y-l.drag.pointer.Y)

	m := &l.markers[l.drag.index]
	m.X = l.drag.origin.X + dx
	m.Y = l.drag.origin.Y + dy
	return *m, nil
}

// Release завершает перетаскивание и возвращает итоговую позицию маркера.
func (l *Layer) Release(t transform.Transform, pointer models.Point) (models.Marker, error) {
	m, err := l.Move(t, pointer)
	if err != nil {
		return models.Marker{}, err
	}
	l.drag = nil
	return m, nil
}

// Dragging сообщает id захваченного маркера.
func (l *Layer) Dragging() (string, bool) {
	if l.drag == nil {
		return "", false
	}
	return l.markers[l.drag.index].ID, true
}

// HitTest ищет верхний (последний вставленный) маркер под точкой экрана.
func (l *Layer) HitTest(t transform.Transform, f transform.Frame, screen models.Point) (models.Marker, bool) {
	half := l.iconSize / 2
	for i := len(l.markers) - 1; i >= 0; i-- {
		m := l.markers[i]
		s := t.ToScreen(f, models.Point{X: m.X, Y: m.Y})
		if math.Abs(screen.X-s.X) <= half && math.Abs(screen.Y-s.Y) <= half {
			return m, true
		}
	}
	return models.Marker{}, false
}

// Placed возвращает маркеры с экранными позициями при текущем преобразовании.
func (l *Layer) Placed(t transform.Transform, f transform.Frame) []Placed {
	out := make([]Placed, 0, len(l.markers))
	for _, m := range l.markers {
		s := t.ToScreen(f, models.Point{X: m.X, Y: m.Y})
		out = append(out, Placed{Marker: m, ScreenX: s.X, ScreenY: s.Y})
	}
	return out
}

func (l *Layer) indexOf(id string) int {
	for i, m := range l.markers {
		if m.ID == id {
			return i
		}
	}
	return -1
}
