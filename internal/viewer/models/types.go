package models

import "sort"

// ============================================================
// Geometry primitives
// ============================================================

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center возвращает центр прямоугольника 0,0 - Width,Height.
func (s Size) Center() Point {
	return Point{X: s.Width / 2, Y: s.Height / 2}
}

// Empty сообщает, что размер ещё неизвестен.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ============================================================
// Annotations
// ============================================================

// Marker хранит позицию иконки в координатах документа.
type Marker struct {
	ID      string  `json:"id"`
	IconRef string  `json:"iconRef"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// ============================================================
// Layers
// ============================================================

// LayerSet - множество видимых слоёв. nil означает "все слои".
type LayerSet map[string]struct{}

func NewLayerSet(names ...string) LayerSet {
	set := make(LayerSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

func (s LayerSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names возвращает имена слоёв в алфавитном порядке.
func (s LayerSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s LayerSet) Clone() LayerSet {
	out := make(LayerSet, len(s))
	for name := range s {
		out[name] = struct{}{}
	}
	return out
}

// ============================================================
// Stored documents
// ============================================================

// StoredDocument - загруженный ранее файл, доступный для повторного открытия по хешу.
type StoredDocument struct {
	Hash      string `json:"hash"`
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	CreatedAt string `json:"createdAt"`
}
