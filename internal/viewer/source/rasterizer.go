package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"os/exec"
	"strconv"

	"drawing-viewer/internal/viewer/models"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
)

// PageRasterizer рисует первую страницу PDF в bitmap заданного масштаба.
type PageRasterizer interface {
	Rasterize(ctx context.Context, data []byte, scale float64, size models.Size) (image.Image, error)
}

// ============================================================
// Poppler
// ============================================================

// PopplerRasterizer вызывает pdftoppm; PDF передаётся через stdin, PNG читается из stdout.
type PopplerRasterizer struct {
	path string
}

func NewPopplerRasterizer(path string) *PopplerRasterizer {
	return &PopplerRasterizer{path: path}
}

func (p *PopplerRasterizer) Rasterize(ctx context.Context, data []byte, scale float64, _ models.Size) (image.Image, error) {
	dpi := strconv.FormatFloat(72*scale, 'f', -1, 64)
	cmd := exec.CommandContext(ctx, p.path, "-f", "1", "-l", "1", "-r", dpi, "-png", "-singlefile", "-")
	cmd.Stdin = bytes.NewReader(data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(stdout.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("pdftoppm output: %w", err)
	}
	if err := checkPixels(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm output: %w", err)
	}
	return img, nil
}

// ============================================================
// Blank page
// ============================================================

// BlankRasterizer рисует пустую страницу нужного размера с рамкой.
type BlankRasterizer struct{}

func (BlankRasterizer) Rasterize(_ context.Context, _ []byte, _ float64, size models.Size) (image.Image, error) {
	w := int(math.Max(1, math.Round(size.Width)))
	h := int(math.Max(1, math.Round(size.Height)))
	if err := checkPixels(w, h); err != nil {
		return nil, err
	}

	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0.8, 0.8, 0.8)
	dc.SetLineWidth(1)
	dc.DrawRectangle(0.5, 0.5, float64(w)-1, float64(h)-1)
	dc.Stroke()
	return dc.Image(), nil
}

// ============================================================
// Fallback
// ============================================================

type fallbackRasterizer struct {
	primary  PageRasterizer
	fallback PageRasterizer
	log      *zap.Logger
}

func (f *fallbackRasterizer) Rasterize(ctx context.Context, data []byte, scale float64, size models.Size) (image.Image, error) {
	img, err := f.primary.Rasterize(ctx, data, scale, size)
	if err == nil {
		return img, nil
	}
	f.log.Warn("pdf rasterizer failed, using blank page", zap.Error(err))
	return f.fallback.Rasterize(ctx, data, scale, size)
}

// NewPageRasterizer возвращает pdftoppm с откатом на пустую страницу,
// либо сразу пустую страницу, если pdftoppm не найден.
func NewPageRasterizer(pdftoppmPath string, log *zap.Logger) PageRasterizer {
	if pdftoppmPath == "" {
		pdftoppmPath = "pdftoppm"
	}
	path, err := exec.LookPath(pdftoppmPath)
	if err != nil {
		log.Info("pdftoppm not found, pdf pages render blank", zap.String("path", pdftoppmPath))
		return BlankRasterizer{}
	}
	return &fallbackRasterizer{
		primary:  NewPopplerRasterizer(path),
		fallback: BlankRasterizer{},
		log:      log,
	}
}
