package mapper

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"

	"drawing-viewer/internal/viewer/cad"
	"drawing-viewer/internal/viewer/models"
)

// maxInsertDepth ограничивает вложенность INSERT (и защищает от циклов блоков).
const maxInsertDepth = 16

// ============================================================
// Bounds
// ============================================================

// Bounds - габариты чертежа в его единицах (ось Y вверх).
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

func emptyBounds() Bounds {
	return Bounds{
		MinX: math.MaxFloat64, MinY: math.MaxFloat64,
		MaxX: -math.MaxFloat64, MaxY: -math.MaxFloat64,
	}
}

func (b *Bounds) add(x, y float64) {
	b.MinX = math.Min(b.MinX, x)
	b.MinY = math.Min(b.MinY, y)
	b.MaxX = math.Max(b.MaxX, x)
	b.MaxY = math.Max(b.MaxY, y)
}

func (b Bounds) valid() bool {
	return b.MinX <= b.MaxX && b.MinY <= b.MaxY
}

// Size возвращает размер, не меньше 1x1.
func (b Bounds) Size() models.Size {
	return models.Size{
		Width:  math.Max(b.MaxX-b.MinX, 1),
		Height: math.Max(b.MaxY-b.MinY, 1),
	}
}

// ============================================================
// Renderer
// ============================================================

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Extents считает габариты чертежа с раскрытыми вставками блоков.
func (r *Renderer) Extents(d *cad.Drawing) Bounds {
	b := emptyBounds()
	for _, e := range flatten(d) {
		extendBounds(&b, e)
	}
	if !b.valid() {
		return Bounds{MaxX: 1, MaxY: 1}
	}
	return b
}

// Render собирает SVG из чертежа в заданной рамке. Рамка передаётся снаружи,
// чтобы отфильтрованный чертёж совпадал по координатам с полным.
func (r *Renderer) Render(d *cad.Drawing, frame Bounds) (string, error) {
	if d == nil {
		return "", fmt.Errorf("drawing is nil")
	}

	size := frame.Size()
	stroke := math.Max(size.Width, size.Height) / 1000

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		formatFloat(size.Width), formatFloat(size.Height), formatFloat(size.Width), formatFloat(size.Height)))
	builder.WriteString("\n")

	for _, e := range flatten(d) {
		elem := r.renderEntity(d, e, frame, stroke)
		if elem == "" {
			continue
		}
		builder.WriteString("  ")
		builder.WriteString(elem)
		builder.WriteString("\n")
	}

	builder.WriteString(`</svg>`)
	return builder.String(), nil
}

// ============================================================
// Element renderers
// ============================================================

func (r *Renderer) renderEntity(d *cad.Drawing, e cad.Entity, frame Bounds, stroke float64) string {
	color := aciColor(d.LayerColor(cad.LayerOf(e)))
	attrs := entityAttrs(e)

	switch e.Type {
	case "LINE", "LWPOLYLINE", "POLYLINE":
		if len(e.Points) < 2 {
			return ""
		}
		var path strings.Builder
		path.WriteString("M ")
		path.WriteString(formatPoint(toSVG(e.Points[0], frame)))
		for _, p := range e.Points[1:] {
			path.WriteString(" L ")
			path.WriteString(formatPoint(toSVG(p, frame)))
		}
		if e.Closed {
			path.WriteString(" Z")
		}
		return fmt.Sprintf(`<path%s d="%s" fill="none" stroke="%s" stroke-width="%s" />`,
			attrs, path.String(), color, formatFloat(stroke))

	case "CIRCLE":
		if len(e.Points) == 0 || e.Radius <= 0 {
			return ""
		}
		c := toSVG(e.Points[0], frame)
		return fmt.Sprintf(`<circle%s cx="%s" cy="%s" r="%s" fill="none" stroke="%s" stroke-width="%s" />`,
			attrs, formatFloat(c.X), formatFloat(c.Y), formatFloat(e.Radius), color, formatFloat(stroke))

	case "ARC":
		if len(e.Points) == 0 || e.Radius <= 0 {
			return ""
		}
		return r.renderArc(e, frame, attrs, color, stroke)

	case "POINT":
		if len(e.Points) == 0 {
			return ""
		}
		c := toSVG(e.Points[0], frame)
		return fmt.Sprintf(`<circle%s cx="%s" cy="%s" r="%s" fill="%s" />`,
			attrs, formatFloat(c.X), formatFloat(c.Y), formatFloat(stroke), color)

	case "TEXT", "MTEXT":
		if len(e.Points) == 0 || e.Text == "" {
			return ""
		}
		p := toSVG(e.Points[0], frame)
		height := e.Height
		if height <= 0 {
			height = stroke * 10
		}
		return fmt.Sprintf(`<text%s x="%s" y="%s" font-size="%s" fill="%s">%s</text>`,
			attrs, formatFloat(p.X), formatFloat(p.Y), formatFloat(height), color, escape(e.Text))
	}

	return ""
}

// renderArc рисует дугу DXF (против часовой стрелки от StartAngle до EndAngle).
func (r *Renderer) renderArc(e cad.Entity, frame Bounds, attrs, color string, stroke float64) string {
	c := e.Points[0]
	sweep := math.Mod(e.EndAngle-e.StartAngle, 360)
	if sweep <= 0 {
		sweep += 360
	}

	start := toSVG(polar(c, e.Radius, e.StartAngle), frame)
	end := toSVG(polar(c, e.Radius, e.StartAngle+sweep), frame)

	largeArc := 0
	if sweep > 180 {
		largeArc = 1
	}

	// после переворота оси Y обход против часовой стрелки даёт sweep-flag 0
	return fmt.Sprintf(`<path%s d="M %s A %s %s 0 %d 0 %s" fill="none" stroke="%s" stroke-width="%s" />`,
		attrs, formatPoint(start), formatFloat(e.Radius), formatFloat(e.Radius), largeArc,
		formatPoint(end), color, formatFloat(stroke))
}

// ============================================================
// Block expansion
// ============================================================

// flatten раскрывает INSERT в сущности блоков в координатах чертежа.
func flatten(d *cad.Drawing) []cad.Entity {
	var out []cad.Entity
	for _, e := range d.Entities {
		out = appendFlattened(out, d, e, 0)
	}
	return out
}

func appendFlattened(out []cad.Entity, d *cad.Drawing, e cad.Entity, depth int) []cad.Entity {
	if e.Type != "INSERT" {
		return append(out, e)
	}
	if depth >= maxInsertDepth || len(e.Points) == 0 {
		return out
	}
	block, ok := d.FindBlock(e.Block)
	if !ok {
		return out
	}

	for _, child := range block.Entities {
		placed := placeEntity(child, block.Base, e)
		out = appendFlattened(out, d, placed, depth+1)
	}
	return out
}

// placeEntity переносит сущность блока: (p - base) * scale, поворот, + точка вставки.
func placeEntity(child cad.Entity, base models.Point, insert cad.Entity) cad.Entity {
	sx, sy := insert.Scale.X, insert.Scale.Y
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	at := insert.Points[0]
	sin, cos := math.Sincos(insert.Rotation * math.Pi / 180)

	place := func(p models.Point) models.Point {
		x := (p.X - base.X) * sx
		y := (p.Y - base.Y) * sy
		return models.Point{X: at.X + x*cos - y*sin, Y: at.Y + x*sin + y*cos}
	}

	placed := child
	placed.Points = make([]models.Point, len(child.Points))
	for i, p := range child.Points {
		placed.Points[i] = place(p)
	}

	scale := math.Sqrt(math.Abs(sx * sy))
	placed.Radius = child.Radius * scale
	placed.Height = child.Height * scale

	if child.Type == "ARC" {
		start, end := child.StartAngle, child.EndAngle
		if sy < 0 {
			start, end = -end, -start
		}
		if sx < 0 {
			start, end = 180-end, 180-start
		}
		placed.StartAngle = start + insert.Rotation
		placed.EndAngle = end + insert.Rotation
	}
	if child.Type == "INSERT" {
		placed.Rotation = child.Rotation + insert.Rotation
		placed.Scale = models.Point{X: child.Scale.X * sx, Y: child.Scale.Y * sy}
	}
	return placed
}

// ============================================================
// Geometry helpers
// ============================================================

func extendBounds(b *Bounds, e cad.Entity) {
	switch e.Type {
	case "CIRCLE", "ARC":
		if len(e.Points) == 0 {
			return
		}
		c := e.Points[0]
		b.add(c.X-e.Radius, c.Y-e.Radius)
		b.add(c.X+e.Radius, c.Y+e.Radius)
	case "TEXT", "MTEXT":
		if len(e.Points) == 0 {
			return
		}
		p := e.Points[0]
		b.add(p.X, p.Y)
		b.add(p.X+float64(len([]rune(e.Text)))*e.Height*0.6, p.Y+e.Height)
	default:
		for _, p := range e.Points {
			b.add(p.X, p.Y)
		}
	}
}

func polar(c models.Point, radius, degrees float64) models.Point {
	sin, cos := math.Sincos(degrees * math.Pi / 180)
	return models.Point{X: c.X + radius*cos, Y: c.Y + radius*sin}
}

// toSVG переводит точку чертежа (ось Y вверх) в координаты SVG (ось Y вниз).
func toSVG(p models.Point, frame Bounds) models.Point {
	return models.Point{X: p.X - frame.MinX, Y: frame.MaxY - p.Y}
}

// aciColor - базовые цвета AutoCAD Color Index; белый рисуется чёрным на светлом фоне.
func aciColor(index int) string {
	if index < 0 {
		index = -index
	}
	switch index {
	case 1:
		return "#ff0000"
	case 2:
		return "#c8b400"
	case 3:
		return "#00a000"
	case 4:
		return "#00a0a0"
	case 5:
		return "#0000ff"
	case 6:
		return "#c000c0"
	case 7, 0:
		return "#000"
	case 8:
		return "#808080"
	case 9:
		return "#c0c0c0"
	}
	return "#404040"
}

// ============================================================
// Formatting helpers
// ============================================================

func entityAttrs(e cad.Entity) string {
	var b strings.Builder
	if e.Handle != "" {
		b.WriteString(` id="`)
		b.WriteString(escape(e.Handle))
		b.WriteString(`"`)
	}
	b.WriteString(` data-layer="`)
	b.WriteString(escape(cad.LayerOf(e)))
	b.WriteString(`"`)
	return b.String()
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}

func formatPoint(p models.Point) string {
	return formatFloat(p.X) + " " + formatFloat(p.Y)
}
