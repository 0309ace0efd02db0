// Package source декодирует загруженные файлы в документы и рендерит их в поверхности.
package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"drawing-viewer/internal/viewer/models"
)

var (
	ErrDecode                  = errors.New("document decode failed")
	ErrUnsupportedDocumentType = errors.New("unsupported document type")
	ErrTooLarge                = errors.New("bitmap exceeds pixel limit")
)

// MaxBitmapPixels ограничивает размер любого bitmap, который строит сервис.
const MaxBitmapPixels = 50_000_000

func checkPixels(w, h int) error {
	if w <= 0 || h <= 0 || int64(w)*int64(h) > MaxBitmapPixels {
		return fmt.Errorf("%w: %dx%d", ErrTooLarge, w, h)
	}
	return nil
}

// ============================================================
// Surface
// ============================================================

type Kind string

const (
	KindMarkup Kind = "markup"
	KindRaster Kind = "raster"
)

// Surface - готовый результат рендера документа. После создания не изменяется.
type Surface struct {
	Kind   Kind
	Markup []byte
	Bitmap image.Image
	Width  float64
	Height float64
}

func (s *Surface) Size() models.Size {
	return models.Size{Width: s.Width, Height: s.Height}
}

func (s *Surface) ContentType() string {
	if s.Kind == KindMarkup {
		return "image/svg+xml"
	}
	return "image/png"
}

func markupSurface(svg []byte, size models.Size) *Surface {
	return &Surface{Kind: KindMarkup, Markup: svg, Width: size.Width, Height: size.Height}
}

func rasterSurface(img image.Image) *Surface {
	b := img.Bounds()
	return &Surface{Kind: KindRaster, Bitmap: img, Width: float64(b.Dx()), Height: float64(b.Dy())}
}

// ============================================================
// Document / Source
// ============================================================

type Document interface {
	NaturalSize() models.Size
	// Render строит поверхность. visible == nil означает "все слои";
	// документы без слоёв его игнорируют.
	Render(ctx context.Context, visible models.LayerSet) (*Surface, error)
}

// LayeredDocument - документ со слоями (CAD).
// LayerNames - слои для списка в интерфейсе: только те, в которых есть сущности.
type LayeredDocument interface {
	Document
	LayerNames() []string
	DefaultLayers() []string
}

type Source interface {
	Load(ctx context.Context, data []byte) (Document, error)
}

// ============================================================
// Registry
// ============================================================

// Registry выбирает источник по расширению файла.
type Registry struct {
	sources map[string]Source
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register привязывает источник к расширениям (".dxf", ".png", ...).
func (r *Registry) Register(src Source, exts ...string) {
	for _, ext := range exts {
		r.sources[strings.ToLower(ext)] = src
	}
}

// Resolve возвращает источник для имени файла или ErrUnsupportedDocumentType.
func (r *Registry) Resolve(filename string) (Source, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	src, ok := r.sources[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDocumentType, ext)
	}
	return src, nil
}

func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.sources))
	for ext := range r.sources {
		exts = append(exts, ext)
	}
	return exts
}

// NewDefaultRegistry подключает все встроенные источники.
func NewDefaultRegistry(pdf *PDFSource) *Registry {
	r := NewRegistry()
	r.Register(NewCADSource(), ".dxf")
	r.Register(pdf, ".pdf")
	r.Register(NewRasterSource(), ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp")
	r.Register(NewSVGSource(), ".svg")
	return r
}
