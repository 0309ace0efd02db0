package service

import (
	"context"
	"fmt"
	"image"

	"drawing-viewer/internal/viewer/minimap"
	"drawing-viewer/internal/viewer/models"
)

// Состояние флажка "выбрать все".
const (
	SelectAll  = "all"
	SelectNone = "none"
	SelectSome = "some"
)

type LayerInfo struct {
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
}

type LayersView struct {
	Layers    []LayerInfo `json:"layers"`
	SelectAll string      `json:"selectAll"`
}

// ============================================================
// Layer controls
// ============================================================

func (s *Session) Layers() (LayersView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.layered(); err != nil {
		return LayersView{}, err
	}
	return s.layersLocked(), nil
}

// SetLayers заменяет набор видимых слоёв и перерисовывает поверхность.
func (s *Session) SetLayers(ctx context.Context, names []string) (LayersView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.layered(); err != nil {
		return LayersView{}, err
	}

	for _, name := range names {
		if !s.knownLayer(name) {
			return LayersView{}, fmt.Errorf("%w: %q", ErrUnknownLayer, name)
		}
	}
	if err := s.applyLayersLocked(ctx, models.NewLayerSet(names...)); err != nil {
		return LayersView{}, err
	}
	return s.layersLocked(), nil
}

// SetLayer включает или выключает один слой.
func (s *Session) SetLayer(ctx context.Context, name string, visible bool) (LayersView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.layered(); err != nil {
		return LayersView{}, err
	}
	if !s.knownLayer(name) {
		return LayersView{}, fmt.Errorf("%w: %q", ErrUnknownLayer, name)
	}

	next := s.visible.Clone()
	if visible {
		next[name] = struct{}{}
	} else {
		delete(next, name)
	}
	if err := s.applyLayersLocked(ctx, next); err != nil {
		return LayersView{}, err
	}
	return s.layersLocked(), nil
}

// SetAllLayers показывает все слои или скрывает все.
func (s *Session) SetAllLayers(ctx context.Context, visible bool) (LayersView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.layered(); err != nil {
		return LayersView{}, err
	}

	next := models.NewLayerSet()
	if visible {
		next = models.NewLayerSet(s.allLayers...)
	}
	if err := s.applyLayersLocked(ctx, next); err != nil {
		return LayersView{}, err
	}
	return s.layersLocked(), nil
}

// LayerPreview - миниатюра документа, в котором виден только один слой.
func (s *Session) LayerPreview(ctx context.Context, name string) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.layered(); err != nil {
		return nil, err
	}
	if !s.knownLayer(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayer, name)
	}

	surface, err := s.doc.Render(ctx, models.NewLayerSet(name))
	if err != nil {
		return nil, err
	}
	return minimap.Thumbnail(surface, s.thumbnailWidth)
}

// applyLayersLocked перерисовывает поверхность только при реальном изменении набора.
// Преобразование при этом не сбрасывается.
func (s *Session) applyLayersLocked(ctx context.Context, next models.LayerSet) error {
	if sameLayers(s.visible, next) {
		return nil
	}
	surface, err := s.doc.Render(ctx, next)
	if err != nil {
		return err
	}
	s.surface = surface
	s.visible = next
	return nil
}

func (s *Session) layered() error {
	if err := s.ready(); err != nil {
		return err
	}
	if s.allLayers == nil {
		return ErrNoLayers
	}
	return nil
}

func (s *Session) knownLayer(name string) bool {
	for _, l := range s.allLayers {
		if l == name {
			return true
		}
	}
	return false
}

func (s *Session) layersLocked() LayersView {
	view := LayersView{Layers: make([]LayerInfo, 0, len(s.allLayers))}
	shown := 0
	for _, name := range s.allLayers {
		visible := s.visible.Has(name)
		if visible {
			shown++
		}
		view.Layers = append(view.Layers, LayerInfo{Name: name, Visible: visible})
	}

	switch {
	case shown == len(s.allLayers):
		view.SelectAll = SelectAll
	case shown == 0:
		view.SelectAll = SelectNone
	default:
		view.SelectAll = SelectSome
	}
	return view
}

func sameLayers(a, b models.LayerSet) bool {
	if (a == nil) != (b == nil) || len(a) != len(b) {
		return false
	}
	for name := range a {
		if !b.Has(name) {
			return false
		}
	}
	return true
}
