package renderer

import (
	"github.com/ivlev/vnplay/internal/script"
)

// Sample computes the visual state of a at elapsed seconds into the current cycle.
func Sample(a *script.Animation, elapsed float64) script.VisualState {
	if a == nil || len(a.Keyframes) == 0 {
		return script.VisualState{}
	}

	progress := 1.0
	if a.Duration > 0 {
		progress = clamp01(elapsed / a.Duration)
	}

	startKf, endKf := segment(a.Keyframes, progress)
	t := segmentProgress(startKf, endKf, progress)

	var vs script.VisualState

	// Scale and rotation share the start frame's rotation curve
	vs.Scale = InterpolateOpt(startKf.Scale, endKf.Scale, t, startKf.RotationType)
	vs.Rotation = InterpolateOpt(startKf.Rotation, endKf.Rotation, t, startKf.RotationType)

	if startKf.Position != nil && endKf.Position != nil {
		vs.Position = &script.Position{
			X: Interpolate(startKf.Position.X, endKf.Position.X, t, startKf.MovementType),
			Y: Interpolate(startKf.Position.Y, endKf.Position.Y, t, startKf.MovementType),
		}
	}

	if startKf.ScreenColor != "" && endKf.ScreenColor != "" {
		if c, ok := InterpolateColor(startKf.ScreenColor, endKf.ScreenColor, t); ok {
			vs.ScreenColor = c
		}
	}

	// Step properties: the segment shows the end frame's value
	if endKf.CameraShake != nil {
		vs.CameraShake = script.Bool(*endKf.CameraShake)
	}
	if endKf.Vibration != nil {
		vs.Vibration = script.Bool(*endKf.Vibration)
	}

	return vs
}

// segment returns the first keyframe pair whose range contains progress,
// clamping to the first or last pair outside the keyframe span.
func segment(kfs []script.KeyFrame, progress float64) (script.KeyFrame, script.KeyFrame) {
	if len(kfs) == 1 {
		return kfs[0], kfs[0]
	}

	for i := 0; i < len(kfs)-1; i++ {
		lo := kfs[i].Percentage / 100
		hi := kfs[i+1].Percentage / 100
		if progress >= lo && progress <= hi {
			return kfs[i], kfs[i+1]
		}
	}

	if progress < kfs[0].Percentage/100 {
		return kfs[0], kfs[1]
	}
	return kfs[len(kfs)-2], kfs[len(kfs)-1]
}

// segmentProgress is the position inside the pair; zero-width pairs snap to the end frame
func segmentProgress(startKf, endKf script.KeyFrame, progress float64) float64 {
	lo := startKf.Percentage / 100
	hi := endKf.Percentage / 100
	width := hi - lo
	if width == 0 {
		return 1
	}
	return clamp01((progress - lo) / width)
}
