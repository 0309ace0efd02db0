package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"drawing-viewer/internal/viewer/models"
)

var ErrMalformedSVG = errors.New("malformed svg")

// ============================================================
// XML Structures
// ============================================================

type svgRoot struct {
	XMLName xml.Name `xml:"svg"`
	Width   string   `xml:"width,attr"`
	Height  string   `xml:"height,attr"`
	ViewBox string   `xml:"viewBox,attr"`
}

// ============================================================
// Parser
// ============================================================

// ParseSVGSize читает собственный размер SVG-документа: width/height корня,
// а если они не заданы или заданы в процентах, то размер из viewBox.
func ParseSVGSize(r io.Reader) (models.Size, error) {
	var root svgRoot
	decoder := xml.NewDecoder(r)
	if err := decoder.Decode(&root); err != nil {
		return models.Size{}, fmt.Errorf("%w: %v", ErrMalformedSVG, err)
	}

	w, wok := parseLength(root.Width)
	h, hok := parseLength(root.Height)
	if wok && hok {
		return models.Size{Width: w, Height: h}, nil
	}

	vb, ok := parseViewBox(root.ViewBox)
	if !ok {
		return models.Size{}, fmt.Errorf("%w: no width/height or viewBox", ErrMalformedSVG)
	}

	// один из размеров задан явно: второй выводим из пропорций viewBox
	switch {
	case wok:
		return models.Size{Width: w, Height: w * vb.Height / vb.Width}, nil
	case hok:
		return models.Size{Width: h * vb.Width / vb.Height, Height: h}, nil
	}
	return models.Size{Width: vb.Width, Height: vb.Height}, nil
}

func parseViewBox(s string) (models.Size, bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n'
	})
	if len(fields) != 4 {
		return models.Size{}, false
	}
	w, err1 := strconv.ParseFloat(fields[2], 64)
	h, err2 := strconv.ParseFloat(fields[3], 64)
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return models.Size{}, false
	}
	return models.Size{Width: w, Height: h}, true
}

// parseLength понимает числа с единицами px/pt/mm/cm/in и переводит их в пиксели (96 dpi).
func parseLength(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "%") {
		return 0, false
	}

	factor := 1.0
	for unit, f := range map[string]float64{"px": 1, "pt": 96.0 / 72, "mm": 96 / 25.4, "cm": 96 / 2.54, "in": 96} {
		if strings.HasSuffix(s, unit) {
			s = strings.TrimSuffix(s, unit)
			factor = f
			break
		}
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v * factor, true
}
