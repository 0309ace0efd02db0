package source

import (
	"bytes"
	"context"
	"fmt"

	"drawing-viewer/internal/viewer/models"
	"drawing-viewer/internal/viewer/parser"
)

// SVGSource отдаёт SVG-файл как есть, читая только его размер.
type SVGSource struct{}

func NewSVGSource() *SVGSource {
	return &SVGSource{}
}

func (s *SVGSource) Load(_ context.Context, data []byte) (Document, error) {
	size, err := parser.ParseSVGSize(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &staticDocument{surface: markupSurface(data, size)}, nil
}

// staticDocument - документ с единственной заранее готовой поверхностью.
type staticDocument struct {
	surface *Surface
}

func (d *staticDocument) NaturalSize() models.Size {
	return d.surface.Size()
}

func (d *staticDocument) Render(context.Context, models.LayerSet) (*Surface, error) {
	return d.surface, nil
}
