package script

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrTooFewKeyframes     = errors.New("animation needs at least 2 keyframes")
	ErrNonPositiveDuration = errors.New("animation duration must be positive")
	ErrInvalidRepeat       = errors.New("animation repeat count must be >= 1")
	ErrUnsortedKeyframes   = errors.New("keyframes must be sorted by percentage")
	ErrKeyframeIndex       = errors.New("keyframe index out of range")
)

// MinKeyframes is the floor DeleteKeyframe refuses to go below
const MinKeyframes = 2

// keyframeStep is the percentage gap AddKeyframe leaves after the last frame
const keyframeStep = 25

// DefaultAnimation is what the editor attaches to a dialogue on "add animation"
func DefaultAnimation() *Animation {
	return &Animation{
		StartTime:   0,
		Duration:    1,
		RepeatCount: 1,
		Keyframes: []KeyFrame{
			{Percentage: 0, Scale: Float(100), Rotation: Float(0), RotationType: Uniform, Position: &Position{}, MovementType: Uniform},
			{Percentage: 100, Scale: Float(100), Rotation: Float(0), RotationType: Uniform, Position: &Position{}, MovementType: Uniform},
		},
	}
}

// SortKeyframes orders keyframes by percentage. Equal percentages keep
// their relative order so "first match wins" stays stable.
func SortKeyframes(a *Animation) {
	sort.SliceStable(a.Keyframes, func(i, j int) bool {
		return a.Keyframes[i].Percentage < a.Keyframes[j].Percentage
	})
}

// AddKeyframe appends a copy of the last frame 25% further along (capped at 100).
func AddKeyframe(a *Animation) {
	if len(a.Keyframes) == 0 {
		a.Keyframes = append(a.Keyframes, DefaultAnimation().Keyframes...)
		return
	}

	maxPct := a.Keyframes[0].Percentage
	for _, kf := range a.Keyframes[1:] {
		if kf.Percentage > maxPct {
			maxPct = kf.Percentage
		}
	}
	pct := maxPct + keyframeStep
	if pct > 100 {
		pct = 100
	}

	kf := a.Keyframes[len(a.Keyframes)-1].Clone()
	kf.Percentage = pct
	a.Keyframes = append(a.Keyframes, kf)
	SortKeyframes(a)
}

// UpdateKeyframe replaces keyframe i and restores ordering.
func UpdateKeyframe(a *Animation, i int, kf KeyFrame) error {
	if i < 0 || i >= len(a.Keyframes) {
		return fmt.Errorf("update keyframe %d: %w", i, ErrKeyframeIndex)
	}
	a.Keyframes[i] = kf
	SortKeyframes(a)
	return nil
}

// DeleteKeyframe removes keyframe i unless that would leave fewer than two.
func DeleteKeyframe(a *Animation, i int) error {
	if len(a.Keyframes) <= MinKeyframes {
		return ErrTooFewKeyframes
	}
	if i < 0 || i >= len(a.Keyframes) {
		return fmt.Errorf("delete keyframe %d: %w", i, ErrKeyframeIndex)
	}
	a.Keyframes = append(a.Keyframes[:i], a.Keyframes[i+1:]...)
	return nil
}

// Validate reports precondition violations the playback core assumes away.
func (a *Animation) Validate() error {
	if len(a.Keyframes) < MinKeyframes {
		return ErrTooFewKeyframes
	}
	if !(a.Duration > 0) {
		return ErrNonPositiveDuration
	}
	if a.RepeatCount < 1 {
		return ErrInvalidRepeat
	}
	for i := 1; i < len(a.Keyframes); i++ {
		if a.Keyframes[i].Percentage < a.Keyframes[i-1].Percentage {
			return ErrUnsortedKeyframes
		}
	}
	return nil
}

// Validate checks every animation in the script.
func (s *DialogueScript) Validate() error {
	for p, para := range s.Paragraphs {
		for d, dlg := range para.Dialogues {
			if dlg.Animation == nil {
				continue
			}
			if err := dlg.Animation.Validate(); err != nil {
				return fmt.Errorf("paragraph %d dialogue %d (%s): %w", p, d, dlg.ID, err)
			}
		}
	}
	return nil
}
