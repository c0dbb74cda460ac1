package effects

import (
	"time"

	"github.com/ivlev/vnplay/internal/renderer"
	"github.com/ivlev/vnplay/internal/script"
)

const (
	// OverlayOpacity of the screen tint while a color is active
	OverlayOpacity = 0.3
	// VibratePulse is the haptic pulse length requested per vibrating frame
	VibratePulse = 100 * time.Millisecond
)

// Frame is what the presentation surface applies for one tick
type Frame struct {
	Transform      string  `json:"transform"`
	Overlay        string  `json:"overlay,omitempty"`
	OverlayOpacity float64 `json:"overlayOpacity"`
	Shake          bool    `json:"shake"`
	Vibrate        bool    `json:"vibrate"`
	VibrateMS      int64   `json:"vibrateMs,omitempty"`
}

// Effect turns a sampled visual state into a presentation frame
type Effect interface {
	Apply(vs script.VisualState) Frame
}

// DefaultEffect rebuilds the whole frame from the fields present each tick.
// Absent transform parts are left out of the transform string.
type DefaultEffect struct{}

func (e *DefaultEffect) Apply(vs script.VisualState) Frame {
	f := Frame{
		Transform: renderer.GenerateTransform(vs),
	}

	if vs.ScreenColor != "" {
		f.Overlay = vs.ScreenColor
		f.OverlayOpacity = OverlayOpacity
	}

	f.Shake = vs.CameraShake != nil && *vs.CameraShake

	if vs.Vibration != nil && *vs.Vibration {
		f.Vibrate = true
		f.VibrateMS = VibratePulse.Milliseconds()
	}

	return f
}

// Reset is the frame for a freshly loaded unit: no transform, no tint, no shake
func Reset() Frame {
	return Frame{}
}
