package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"drawing-viewer/internal/viewer/cad"
	"drawing-viewer/internal/viewer/models"
)

var ErrMalformedDXF = errors.New("malformed dxf")

// ============================================================
// Group codes
// ============================================================

type groupPair struct {
	Code  int
	Value string
}

func readPairs(r io.Reader) ([]groupPair, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDXF, err)
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines)%2 != 0 {
		return nil, fmt.Errorf("%w: odd number of lines", ErrMalformedDXF)
	}

	pairs := make([]groupPair, 0, len(lines)/2)
	for i := 0; i < len(lines); i += 2 {
		code, err := strconv.Atoi(strings.TrimSpace(lines[i]))
		if err != nil {
			return nil, fmt.Errorf("%w: bad group code %q at line %d", ErrMalformedDXF, lines[i], i+1)
		}
		pairs = append(pairs, groupPair{Code: code, Value: lines[i+1]})
	}
	return pairs, nil
}

// ============================================================
// Parser
// ============================================================

// ParseDXF читает ASCII DXF: таблицу LAYER, блоки и сущности.
func ParseDXF(r io.Reader) (*cad.Drawing, error) {
	pairs, err := readPairs(r)
	if err != nil {
		return nil, err
	}

	d := &cad.Drawing{}
	sections := 0

	for i := 0; i < len(pairs); i++ {
		p := pairs[i]
		if p.Code != 0 || p.Value != "SECTION" {
			continue
		}
		if i+1 >= len(pairs) || pairs[i+1].Code != 2 {
			return nil, fmt.Errorf("%w: section without name", ErrMalformedDXF)
		}
		sections++
		name := pairs[i+1].Value
		end := findEndSec(pairs, i+2)
		body := pairs[i+2 : end]

		switch name {
		case "TABLES":
			d.Layers = append(d.Layers, parseLayers(body)...)
		case "BLOCKS":
			d.Blocks = append(d.Blocks, parseBlocks(body)...)
		case "ENTITIES":
			d.Entities = append(d.Entities, parseEntities(body)...)
		}
		i = end
	}

	if sections == 0 {
		return nil, fmt.Errorf("%w: no sections", ErrMalformedDXF)
	}
	return d, nil
}

func findEndSec(pairs []groupPair, from int) int {
	for i := from; i < len(pairs); i++ {
		if pairs[i].Code == 0 && (pairs[i].Value == "ENDSEC" || pairs[i].Value == "EOF") {
			return i
		}
	}
	return len(pairs)
}

// splitRecords режет тело секции на записи, каждая начинается с группы 0.
func splitRecords(body []groupPair) [][]groupPair {
	var records [][]groupPair
	for i := 0; i < len(body); i++ {
		if body[i].Code != 0 {
			continue
		}
		j := i + 1
		for j < len(body) && body[j].Code != 0 {
			j++
		}
		records = append(records, body[i:j])
		i = j - 1
	}
	return records
}

func parseLayers(body []groupPair) []cad.LayerDef {
	var layers []cad.LayerDef
	inLayerTable := false

	for _, rec := range splitRecords(body) {
		switch rec[0].Value {
		case "TABLE":
			inLayerTable = valueOf(rec, 2) == "LAYER"
		case "ENDTAB":
			inLayerTable = false
		case "LAYER":
			if !inLayerTable {
				continue
			}
			name := valueOf(rec, 2)
			if name == "" {
				continue
			}
			layers = append(layers, cad.LayerDef{Name: name, Color: atoiOr(valueOf(rec, 62), 7)})
		}
	}
	return layers
}

func parseBlocks(body []groupPair) []cad.Block {
	var blocks []cad.Block
	var current *cad.Block
	var entityRecords [][]groupPair

	for _, rec := range splitRecords(body) {
		switch rec[0].Value {
		case "BLOCK":
			current = &cad.Block{Name: valueOf(rec, 2)}
			if pts := collectPoints(rec); len(pts) > 0 {
				current.Base = pts[0]
			}
			entityRecords = nil
		case "ENDBLK":
			if current != nil {
				current.Entities = buildEntities(entityRecords)
				blocks = append(blocks, *current)
			}
			current = nil
		default:
			if current != nil {
				entityRecords = append(entityRecords, rec)
			}
		}
	}
	return blocks
}

func parseEntities(body []groupPair) []cad.Entity {
	return buildEntities(splitRecords(body))
}

// buildEntities собирает сущности; вершины старого POLYLINE сливаются в одну сущность.
func buildEntities(records [][]groupPair) []cad.Entity {
	entities := make([]cad.Entity, 0, len(records))
	openPolyline := -1

	for _, rec := range records {
		kind := rec[0].Value
		switch kind {
		case "VERTEX":
			if openPolyline >= 0 {
				if pts := collectPoints(rec); len(pts) > 0 {
					entities[openPolyline].Points = append(entities[openPolyline].Points, pts[0])
				}
			}
			continue
		case "SEQEND":
			openPolyline = -1
			continue
		}

		e := buildEntity(kind, rec[1:])
		entities = append(entities, e)
		if kind == "POLYLINE" {
			openPolyline = len(entities) - 1
		}
	}
	return entities
}

func buildEntity(kind string, groups []groupPair) cad.Entity {
	e := cad.Entity{
		Type:   kind,
		Layer:  cad.DefaultLayer,
		Points: collectPoints(groups),
		Scale:  models.Point{X: 1, Y: 1},
	}

	var text strings.Builder
	for _, g := range groups {
		switch g.Code {
		case 5:
			e.Handle = g.Value
		case 8:
			e.Layer = strings.TrimSpace(g.Value)
		case 1, 3:
			text.WriteString(g.Value)
		case 2:
			e.Block = g.Value
		case 40:
			if kind == "CIRCLE" || kind == "ARC" {
				e.Radius = atofOr(g.Value, 0)
			} else {
				e.Height = atofOr(g.Value, 0)
			}
		case 41:
			e.Scale.X = atofOr(g.Value, 1)
		case 42:
			e.Scale.Y = atofOr(g.Value, 1)
		case 50:
			if kind == "ARC" {
				e.StartAngle = atofOr(g.Value, 0)
			} else {
				e.Rotation = atofOr(g.Value, 0)
			}
		case 51:
			e.EndAngle = atofOr(g.Value, 0)
		case 70:
			if kind == "LWPOLYLINE" || kind == "POLYLINE" {
				e.Closed = atoiOr(g.Value, 0)&1 == 1
			}
		}
	}
	e.Text = text.String()
	if e.Layer == "" {
		e.Layer = cad.DefaultLayer
	}
	if kind == "POLYLINE" {
		// у POLYLINE точка 10/20 фиктивная, вершины идут отдельными VERTEX
		e.Points = nil
	}
	return e
}

// collectPoints: каждая группа 10/11 начинает новую точку, 20/21 задаёт её Y.
func collectPoints(groups []groupPair) []models.Point {
	var pts []models.Point
	for _, g := range groups {
		switch g.Code {
		case 10, 11:
			pts = append(pts, models.Point{X: atofOr(g.Value, 0)})
		case 20, 21:
			if len(pts) > 0 {
				pts[len(pts)-1].Y = atofOr(g.Value, 0)
			}
		}
	}
	return pts
}

func valueOf(groups []groupPair, code int) string {
	for _, g := range groups {
		if g.Code == code {
			return strings.TrimSpace(g.Value)
		}
	}
	return ""
}

func atofOr(s string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return v
}

func atoiOr(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}
