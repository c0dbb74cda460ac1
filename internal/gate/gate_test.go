package gate

import (
	"testing"
	"time"

	"github.com/ivlev/vnplay/internal/timing"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestGate() (*Gate, *timing.Manual, *int) {
	m := timing.NewManual(epoch)
	advances := 0
	g := New(m, timing.Inline, 500*time.Millisecond, func() { advances++ })
	return g, m, &advances
}

func TestFlags(t *testing.T) {
	var f Flags
	if f.Satisfied() {
		t.Error("Empty flags should not be satisfied")
	}
	f |= Flags(Text) | Flags(Audio)
	if !f.Has(Text) || !f.Has(Audio) || f.Has(Animation) {
		t.Errorf("Unexpected flags %s", f)
	}
	f |= Flags(Animation)
	if !f.Satisfied() {
		t.Errorf("All flags set should be satisfied: %s", f)
	}
	if f.String() != "[text,audio,animation]" {
		t.Errorf("Unexpected string %s", f)
	}
}

func TestResetPresetsAbsentChannels(t *testing.T) {
	g, _, _ := newTestGate()

	tests := []struct {
		audio, anim bool
		expected    Flags
	}{
		{false, false, Flags(Audio | Animation)},
		{true, false, Flags(Animation)},
		{false, true, Flags(Audio)},
		{true, true, 0},
	}

	for _, tt := range tests {
		g.Reset(tt.audio, tt.anim)
		if g.Flags() != tt.expected {
			t.Errorf("Reset(%v, %v): expected %s, got %s", tt.audio, tt.anim, tt.expected, g.Flags())
		}
	}
}

func TestAllOrderingsScheduleOneAdvance(t *testing.T) {
	orders := [][]Channel{
		{Text, Audio, Animation},
		{Text, Animation, Audio},
		{Audio, Text, Animation},
		{Audio, Animation, Text},
		{Animation, Text, Audio},
		{Animation, Audio, Text},
	}

	for _, order := range orders {
		g, m, advances := newTestGate()
		g.SetAutoPlay(true)
		tok := g.Reset(true, true)

		for i, ch := range order {
			if g.Pending() {
				t.Fatalf("%v: trigger armed after only %d signals", order, i)
			}
			g.Complete(tok, ch)
			m.Advance(50 * time.Millisecond)
		}

		if !g.Pending() {
			t.Fatalf("%v: expected a pending trigger", order)
		}

		m.Advance(449 * time.Millisecond)
		if *advances != 0 {
			t.Fatalf("%v: advanced before the delay elapsed", order)
		}
		m.Advance(time.Millisecond)
		if *advances != 1 {
			t.Fatalf("%v: expected one advance, got %d", order, *advances)
		}

		m.Advance(5 * time.Second)
		if *advances != 1 {
			t.Errorf("%v: expected exactly one advance, got %d", order, *advances)
		}
	}
}

func TestSameTickCompletion(t *testing.T) {
	g, m, advances := newTestGate()
	g.SetAutoPlay(true)
	tok := g.Reset(true, true)

	g.Complete(tok, Audio)
	g.Complete(tok, Animation)
	g.Complete(tok, Text)
	// Repeated signals do not re-arm
	g.Complete(tok, Text)
	g.Complete(tok, Audio)

	m.Advance(time.Second)
	if *advances != 1 {
		t.Errorf("Expected one advance, got %d", *advances)
	}
}

func TestDisableAutoPlayCancels(t *testing.T) {
	g, m, advances := newTestGate()
	g.SetAutoPlay(true)
	tok := g.Reset(false, false)
	g.Complete(tok, Text)

	m.Advance(200 * time.Millisecond)
	g.SetAutoPlay(false)
	m.Advance(time.Second)

	if *advances != 0 {
		t.Errorf("Advance fired after auto-play was disabled")
	}
	if m.Pending() != 0 {
		t.Errorf("Disabling left %d timers pending", m.Pending())
	}
}

func TestEnableAutoPlayWhenAlreadyDone(t *testing.T) {
	g, m, advances := newTestGate()
	tok := g.Reset(false, false)
	g.Complete(tok, Text)

	m.Advance(time.Second)
	if *advances != 0 {
		t.Fatal("Advanced without auto-play")
	}

	g.SetAutoPlay(true)
	g.SetAutoPlay(true) // re-arming replaces, never stacks
	m.Advance(500 * time.Millisecond)
	if *advances != 1 {
		t.Errorf("Expected one advance after enabling, got %d", *advances)
	}
}

func TestStaleTokenIgnored(t *testing.T) {
	g, m, advances := newTestGate()
	g.SetAutoPlay(true)

	old := g.Reset(true, false)
	fresh := g.Reset(true, false)

	if g.Complete(old, Audio) {
		t.Error("Stale completion should be ignored")
	}
	if g.Flags().Has(Audio) {
		t.Error("Stale completion marked the new unit")
	}

	g.Complete(fresh, Text)
	g.Complete(fresh, Audio)
	m.Advance(time.Second)
	if *advances != 1 {
		t.Errorf("Expected one advance, got %d", *advances)
	}
}

func TestResetCancelsPending(t *testing.T) {
	g, m, advances := newTestGate()
	g.SetAutoPlay(true)
	tok := g.Reset(false, false)
	g.Complete(tok, Text)

	g.Reset(true, true)
	m.Advance(time.Second)
	if *advances != 0 {
		t.Error("Pending trigger survived a unit reset")
	}
}

func TestCancelAfterTimerQueued(t *testing.T) {
	// The timer fires but its posted callback runs after a Cancel
	m := timing.NewManual(epoch)
	var queued []func()
	exec := timing.ExecutorFunc(func(fn func()) { queued = append(queued, fn) })

	advances := 0
	g := New(m, exec, 500*time.Millisecond, func() { advances++ })
	g.SetAutoPlay(true)
	tok := g.Reset(false, false)
	g.Complete(tok, Text)

	m.Advance(time.Second)
	g.Cancel()
	for _, fn := range queued {
		fn()
	}

	if advances != 0 {
		t.Error("Cancelled trigger still advanced")
	}
}
