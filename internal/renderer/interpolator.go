package renderer

import (
	"fmt"
	"math"
	"strings"

	"github.com/ivlev/vnplay/internal/script"
)

// Interpolate maps progress p in [0,1] between start and end along curve.
// Unknown curves behave as uniform.
func Interpolate(start, end, p float64, curve script.Curve) float64 {
	delta := end - start

	switch curve {
	case script.BackAndForth:
		return start + delta*math.Sin(p*math.Pi)
	case script.Accelerate:
		return start + delta*p*p
	case script.Decelerate:
		return start + delta*(1-(1-p)*(1-p))
	case script.Elastic:
		return start + delta*elastic(p)
	default:
		return lerp(start, end, p)
	}
}

// InterpolateOpt propagates "not specified": nil if either endpoint is nil.
func InterpolateOpt(start, end *float64, p float64, curve script.Curve) *float64 {
	if start == nil || end == nil {
		return nil
	}
	v := Interpolate(*start, *end, p, curve)
	return &v
}

// InterpolateColor blends two hex colors channel by channel in RGB space.
// Returns false when either color is missing or malformed.
func InterpolateColor(start, end string, p float64) (string, bool) {
	r1, g1, b1, ok := ParseHex(start)
	if !ok {
		return "", false
	}
	r2, g2, b2, ok := ParseHex(end)
	if !ok {
		return "", false
	}

	return fmt.Sprintf("#%02x%02x%02x",
		blendChannel(r1, r2, p),
		blendChannel(g1, g2, p),
		blendChannel(b1, b2, p),
	), true
}

// ParseHex accepts #rgb and #rrggbb, case-insensitive
func ParseHex(s string) (r, g, b uint8, ok bool) {
	if !strings.HasPrefix(s, "#") {
		return 0, 0, 0, false
	}
	digits := s[1:]

	var n [6]uint8
	switch len(digits) {
	case 3:
		for i := 0; i < 3; i++ {
			v, ok := hexDigit(digits[i])
			if !ok {
				return 0, 0, 0, false
			}
			n[2*i], n[2*i+1] = v, v
		}
	case 6:
		for i := 0; i < 6; i++ {
			v, ok := hexDigit(digits[i])
			if !ok {
				return 0, 0, 0, false
			}
			n[i] = v
		}
	default:
		return 0, 0, 0, false
	}

	return n[0]<<4 | n[1], n[2]<<4 | n[3], n[4]<<4 | n[5], true
}

func hexDigit(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func blendChannel(a, b uint8, p float64) uint8 {
	v := math.Round(lerp(float64(a), float64(b), p))
	// NaN and out-of-range progress must not wrap around
	if !(v >= 0) {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// elastic remaps p to q in [-1,1] and overshoots around the midpoint
func elastic(p float64) float64 {
	q := 2*p - 1
	if q < 0 {
		return 0.5 * math.Sin(13*math.Pi/2*q) * math.Pow(2, 10*q)
	}
	return 0.5 * (math.Sin(-13*math.Pi/2*q)*math.Pow(2, -10*q) + 2)
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// clamp01 also maps NaN to 0
func clamp01(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
