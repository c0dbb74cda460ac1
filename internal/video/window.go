package video

import (
	"github.com/ivlev/vnplay/internal/script"
)

// Action the player must take after a time update
type Action int

const (
	None Action = iota
	Seek
	Pause
)

func (a Action) String() string {
	switch a {
	case Seek:
		return "seek"
	case Pause:
		return "pause"
	default:
		return "none"
	}
}

// CheckWindow decides what happens at position (seconds) inside a paragraph's
// time range: at or past the end a looping video seeks back to the start,
// otherwise it pauses. Without a range nothing happens.
func CheckWindow(rng *script.TimeRange, loop bool, position float64) (Action, float64) {
	if rng == nil || rng.End <= rng.Start {
		return None, 0
	}
	if position < rng.End {
		return None, 0
	}
	if loop {
		return Seek, rng.Start
	}
	return Pause, 0
}

// StartPosition is where playback begins for a paragraph
func StartPosition(rng *script.TimeRange) float64 {
	if rng == nil || rng.Start < 0 {
		return 0
	}
	return rng.Start
}
