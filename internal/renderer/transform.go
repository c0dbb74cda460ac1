package renderer

import (
	"strconv"
	"strings"

	"github.com/ivlev/vnplay/internal/script"
)

// GenerateTransform builds a CSS-like transform for the fields present in vs,
// e.g. "scale(1.25) rotate(30deg) translate(10%, -5%)". Empty when nothing is set.
func GenerateTransform(vs script.VisualState) string {
	var parts []string

	if vs.Scale != nil {
		parts = append(parts, "scale("+formatNumber(*vs.Scale/100)+")")
	}
	if vs.Rotation != nil {
		parts = append(parts, "rotate("+formatNumber(*vs.Rotation)+"deg)")
	}
	if vs.Position != nil {
		parts = append(parts, "translate("+formatNumber(vs.Position.X)+"%, "+formatNumber(vs.Position.Y)+"%)")
	}

	return strings.Join(parts, " ")
}

// formatNumber prints with at most 4 decimals and no trailing zeros
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}
