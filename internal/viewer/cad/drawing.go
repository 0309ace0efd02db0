// Package cad содержит модель чертежа, чтение DXF, фильтр слоёв и SVG-рендер.
package cad

import "drawing-viewer/internal/viewer/models"

// DefaultLayer - слой сущности, у которой слой не указан.
const DefaultLayer = "0"

// ============================================================
// Drawing database
// ============================================================

// Entity - одна графическая сущность. Геометрия задана в единицах чертежа (ось Y вверх).
// Срез Points общий для исходного чертежа и его отфильтрованных копий и не изменяется.
type Entity struct {
	Handle     string         `json:"handle,omitempty"`
	Type       string         `json:"type"`
	Layer      string         `json:"layer"`
	Points     []models.Point `json:"points,omitempty"`
	Radius     float64        `json:"radius,omitempty"`
	StartAngle float64        `json:"startAngle,omitempty"`
	EndAngle   float64        `json:"endAngle,omitempty"`
	Closed     bool           `json:"closed,omitempty"`
	Text       string         `json:"text,omitempty"`
	Height     float64        `json:"height,omitempty"`
	Block      string         `json:"block,omitempty"`
	Scale      models.Point   `json:"scale,omitempty"`
	Rotation   float64        `json:"rotation,omitempty"`
}

type Block struct {
	Name     string       `json:"name"`
	Base     models.Point `json:"base"`
	Entities []Entity     `json:"entities"`
}

type LayerDef struct {
	Name  string `json:"name"`
	Color int    `json:"color"`
}

type Drawing struct {
	Layers   []LayerDef `json:"layers"`
	Blocks   []Block    `json:"blocks"`
	Entities []Entity   `json:"entities"`
}

// LayerOf возвращает слой сущности.
func LayerOf(e Entity) string {
	if e.Layer == "" {
		return DefaultLayer
	}
	return e.Layer
}

// AllLayerNames - слои из таблицы LAYER в исходном порядке, затем слои,
// на которые ссылаются сущности, но которых нет в таблице.
func (d *Drawing) AllLayerNames() []string {
	seen := make(map[string]bool, len(d.Layers))
	var names []string
	for _, l := range d.Layers {
		if seen[l.Name] {
			continue
		}
		seen[l.Name] = true
		names = append(names, l.Name)
	}

	d.eachEntity(func(e Entity) {
		name := LayerOf(e)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	})
	return names
}

// UsedLayerNames - слои, на которые ссылается хотя бы одна сущность
// (в том числе внутри блоков), в порядке AllLayerNames.
func (d *Drawing) UsedLayerNames() []string {
	used := make(map[string]bool)
	d.eachEntity(func(e Entity) {
		used[LayerOf(e)] = true
	})

	var names []string
	for _, name := range d.AllLayerNames() {
		if used[name] {
			names = append(names, name)
		}
	}
	return names
}

// LayerColor возвращает цвет слоя из таблицы LAYER (ACI), 7 по умолчанию.
func (d *Drawing) LayerColor(name string) int {
	for _, l := range d.Layers {
		if l.Name == name {
			return l.Color
		}
	}
	return 7
}

func (d *Drawing) FindBlock(name string) (Block, bool) {
	for _, b := range d.Blocks {
		if b.Name == name {
			return b, true
		}
	}
	return Block{}, false
}

// EntityCount считает сущности верхнего уровня и сущности блоков.
func (d *Drawing) EntityCount() int {
	n := 0
	d.eachEntity(func(Entity) { n++ })
	return n
}

func (d *Drawing) eachEntity(fn func(Entity)) {
	for _, e := range d.Entities {
		fn(e)
	}
	for _, b := range d.Blocks {
		for _, e := range b.Entities {
			fn(e)
		}
	}
}
