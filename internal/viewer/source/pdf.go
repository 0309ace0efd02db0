package source

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sync"

	"drawing-viewer/internal/viewer/models"

	"rsc.io/pdf"
)

// DefaultPDFScale - масштаб рендера первой страницы.
const DefaultPDFScale = 1.5

// ============================================================
// PDF source
// ============================================================

// PDFSource показывает первую страницу PDF. Геометрия страницы читается
// из MediaBox (с наследованием от дерева страниц) и /Rotate, пиксели
// рисует PageRasterizer.
type PDFSource struct {
	scale      float64
	rasterizer PageRasterizer
}

func NewPDFSource(scale float64, rasterizer PageRasterizer) *PDFSource {
	if scale <= 0 {
		scale = DefaultPDFScale
	}
	return &PDFSource{scale: scale, rasterizer: rasterizer}
}

func (s *PDFSource) Load(_ context.Context, data []byte) (Document, error) {
	size, err := firstPageSize(data)
	if err != nil {
		return nil, err
	}

	scale := fitScale(size, s.scale)
	return &PDFDocument{
		data:       data,
		size:       models.Size{Width: size.Width * scale, Height: size.Height * scale},
		scale:      scale,
		rasterizer: s.rasterizer,
	}, nil
}

// fitScale уменьшает масштаб, если страница не укладывается в MaxBitmapPixels.
func fitScale(page models.Size, scale float64) float64 {
	area := page.Width * page.Height * scale * scale
	if area <= MaxBitmapPixels {
		return scale
	}
	return math.Sqrt(MaxBitmapPixels / (page.Width * page.Height))
}

// firstPageSize возвращает размер первой страницы в пунктах с учётом поворота.
// rsc.io/pdf паникует на повреждённых файлах, паника превращается в ErrDecode.
func firstPageSize(data []byte) (size models.Size, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrDecode, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return models.Size{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if reader.NumPage() < 1 {
		return models.Size{}, fmt.Errorf("%w: document has no pages", ErrDecode)
	}

	page := reader.Page(1)
	if page.V.IsNull() {
		return models.Size{}, fmt.Errorf("%w: first page not found", ErrDecode)
	}

	box := inherited(page.V, "MediaBox")
	if box.Len() != 4 {
		return models.Size{}, fmt.Errorf("%w: page has no MediaBox", ErrDecode)
	}
	w := math.Abs(box.Index(2).Float64() - box.Index(0).Float64())
	h := math.Abs(box.Index(3).Float64() - box.Index(1).Float64())
	if w <= 0 || h <= 0 {
		return models.Size{}, fmt.Errorf("%w: empty MediaBox", ErrDecode)
	}

	rotate := inherited(page.V, "Rotate").Int64() % 360
	if rotate < 0 {
		rotate += 360
	}
	if rotate == 90 || rotate == 270 {
		w, h = h, w
	}
	return models.Size{Width: w, Height: h}, nil
}

// inherited ищет атрибут страницы, поднимаясь по /Parent.
func inherited(v pdf.Value, key string) pdf.Value {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		if val := v.Key(key); !val.IsNull() {
			return val
		}
		v = v.Key("Parent")
	}
	return pdf.Value{}
}

// ============================================================
// PDF document
// ============================================================

type PDFDocument struct {
	data       []byte
	size       models.Size
	scale      float64
	rasterizer PageRasterizer

	once    sync.Once
	surface *Surface
	err     error
}

func (d *PDFDocument) NaturalSize() models.Size {
	return d.size
}

func (d *PDFDocument) Render(ctx context.Context, _ models.LayerSet) (*Surface, error) {
	d.once.Do(func() {
		img, err := d.rasterizer.Rasterize(ctx, d.data, d.scale, d.size)
		if err != nil {
			d.err = fmt.Errorf("%w: %v", ErrDecode, err)
			return
		}
		d.surface = rasterSurface(img)
	})
	return d.surface, d.err
}
