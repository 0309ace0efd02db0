package cad

import "drawing-viewer/internal/viewer/models"

// ============================================================
// Layer Filter
// ============================================================

// FilterByLayers возвращает новый чертёж, в котором остались только сущности
// из слоёв set. Порядок сущностей и определения блоков сохраняются,
// исходный чертёж не изменяется.
func FilterByLayers(d *Drawing, set models.LayerSet) *Drawing {
	out := &Drawing{
		Layers:   append([]LayerDef(nil), d.Layers...),
		Blocks:   make([]Block, len(d.Blocks)),
		Entities: filterEntities(d.Entities, set),
	}

	for i, b := range d.Blocks {
		out.Blocks[i] = Block{
			Name:     b.Name,
			Base:     b.Base,
			Entities: filterEntities(b.Entities, set),
		}
	}

	return out
}

func filterEntities(entities []Entity, set models.LayerSet) []Entity {
	out := make([]Entity, 0, len(entities))
	for _, e := range entities {
		if set.Has(LayerOf(e)) {
			out = append(out, e)
		}
	}
	return out
}
