package source

import (
	"bytes"
	"context"
	"fmt"

	"drawing-viewer/internal/viewer/cad"
	"drawing-viewer/internal/viewer/mapper"
	"drawing-viewer/internal/viewer/models"
	"drawing-viewer/internal/viewer/parser"
)

// ============================================================
// CAD source (DXF)
// ============================================================

type CADSource struct {
	renderer *mapper.Renderer
}

func NewCADSource() *CADSource {
	return &CADSource{renderer: mapper.NewRenderer()}
}

func (s *CADSource) Load(_ context.Context, data []byte) (Document, error) {
	drawing, err := parser.ParseDXF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return &CADDocument{
		drawing:  drawing,
		frame:    s.renderer.Extents(drawing),
		renderer: s.renderer,
	}, nil
}

// CADDocument держит разобранный чертёж. Рамка считается один раз по полному
// чертежу, поэтому скрытие слоёв не сдвигает изображение.
type CADDocument struct {
	drawing  *cad.Drawing
	frame    mapper.Bounds
	renderer *mapper.Renderer
}

func (d *CADDocument) Drawing() *cad.Drawing {
	return d.drawing
}

func (d *CADDocument) NaturalSize() models.Size {
	return d.frame.Size()
}

func (d *CADDocument) LayerNames() []string {
	return d.drawing.UsedLayerNames()
}

// DefaultLayers - после загрузки видны все слои списка.
func (d *CADDocument) DefaultLayers() []string {
	return d.LayerNames()
}

func (d *CADDocument) Render(_ context.Context, visible models.LayerSet) (*Surface, error) {
	drawing := d.drawing
	if visible != nil {
		drawing = cad.FilterByLayers(d.drawing, visible)
	}

	svg, err := d.renderer.Render(drawing, d.frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return markupSurface([]byte(svg), d.frame.Size()), nil
}
