package service

import (
	"errors"
	"fmt"

	"drawing-viewer/internal/viewer/annotation"
	"drawing-viewer/internal/viewer/models"
)

var ErrBadPhase = errors.New("unknown drag phase")

// Фазы перетаскивания маркера.
const (
	PhaseGrab    = "grab"
	PhaseMove    = "move"
	PhaseRelease = "release"
)

// ============================================================
// Marker controls
// ============================================================

// Markers возвращает маркеры с экранными позициями при текущем преобразовании.
func (s *Session) Markers() ([]annotation.Placed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.markers.Placed(s.transform, s.frame()), nil
}

// Drop размещает иконку в точке экрана и сохраняет список маркеров.
func (s *Session) Drop(iconRef string, screen models.Point) (models.Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return models.Marker{}, err
	}
	if !s.knownIcon(iconRef) {
		return models.Marker{}, fmt.Errorf("%w: %q", ErrUnknownIcon, iconRef)
	}

	m := s.markers.Drop(s.transform, s.frame(), iconRef, screen)
	s.saveLocked()
	return m, nil
}

// Hit возвращает верхний маркер под точкой экрана.
func (s *Session) Hit(screen models.Point) (models.Marker, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return models.Marker{}, false, err
	}
	m, ok := s.markers.HitTest(s.transform, s.frame(), screen)
	return m, ok, nil
}

// Drag обрабатывает одно событие перетаскивания маркера. Сохранение - на отпускании.
func (s *Session) Drag(id, phase string, pointer models.Point) (models.Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return models.Marker{}, err
	}

	switch phase {
	case PhaseGrab:
		return s.markers.Grab(id, pointer)
	case PhaseMove, PhaseRelease:
		if dragging, ok := s.markers.Dragging(); !ok || dragging != id {
			return models.Marker{}, fmt.Errorf("%w: %s", annotation.ErrNoDrag, id)
		}
		if phase == PhaseMove {
			return s.markers.Move(s.transform, pointer)
		}
		m, err := s.markers.Release(s.transform, pointer)
		if err != nil {
			return models.Marker{}, err
		}
		s.saveLocked()
		return m, nil
	}
	return models.Marker{}, fmt.Errorf("%w: %q", ErrBadPhase, phase)
}

func (s *Session) Palette() []string {
	return append([]string(nil), s.palette...)
}

func (s *Session) knownIcon(ref string) bool {
	for _, icon := range s.palette {
		if icon == ref {
			return true
		}
	}
	return false
}

// saveLocked отправляет полный список маркеров в фоновую запись.
// Без хеша содержимого сохранение выключено.
func (s *Session) saveLocked() {
	if !s.persistent || s.saver == nil {
		return
	}
	s.saver.Enqueue(s.hash, s.markers.Markers())
}
