package anim

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/ivlev/vnplay/internal/renderer"
	"github.com/ivlev/vnplay/internal/script"
	"github.com/ivlev/vnplay/internal/timing"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func testAnimation(duration float64, repeat int) *script.Animation {
	return &script.Animation{
		Duration:    duration,
		RepeatCount: repeat,
		Keyframes: []script.KeyFrame{
			{Percentage: 0, Scale: script.Float(0)},
			{Percentage: 100, Scale: script.Float(100)},
		},
	}
}

func TestClockCompletesOnce(t *testing.T) {
	m := timing.NewManual(epoch)
	c := NewClock(m, timing.Inline, SyncSampler{}, 100*time.Millisecond)

	frames, completions := 0, 0
	c.Start(testAnimation(1, 2), func(script.VisualState) { frames++ }, func() { completions++ })

	if c.State() != Running {
		t.Fatalf("Expected running, got %s", c.State())
	}

	m.Advance(1999 * time.Millisecond)
	if completions != 0 {
		t.Fatalf("Completed early after %d frames", frames)
	}
	if frames != 20 {
		t.Errorf("Expected 20 frames before the end, got %d", frames)
	}

	m.Advance(time.Millisecond)
	if completions != 1 {
		t.Fatalf("Expected one completion, got %d", completions)
	}
	if c.State() != Completed {
		t.Errorf("Expected completed, got %s", c.State())
	}

	m.Advance(5 * time.Second)
	if completions != 1 || m.Pending() != 0 {
		t.Errorf("Clock kept running after completion: completions=%d pending=%d", completions, m.Pending())
	}
}

func TestClockCycles(t *testing.T) {
	m := timing.NewManual(epoch)
	c := NewClock(m, timing.Inline, nil, 100*time.Millisecond)

	var last script.VisualState
	c.Start(testAnimation(1, 3), func(vs script.VisualState) { last = vs }, func() {})

	if last.Scale == nil || *last.Scale != 0 {
		t.Fatalf("First frame should be sampled immediately at 0, got %v", last.Scale)
	}

	m.Advance(1500 * time.Millisecond)
	if last.Scale == nil || abs(*last.Scale-50) > 1e-6 {
		t.Errorf("Expected scale 50 half-way through the second cycle, got %+v", last)
	}
}

func TestClockCancel(t *testing.T) {
	m := timing.NewManual(epoch)
	c := NewClock(m, timing.Inline, SyncSampler{}, 100*time.Millisecond)

	completed := false
	c.Start(testAnimation(1, 1), func(script.VisualState) {}, func() { completed = true })
	m.Advance(300 * time.Millisecond)
	c.Cancel()

	if c.State() != Idle {
		t.Errorf("Expected idle after cancel, got %s", c.State())
	}
	if m.Pending() != 0 {
		t.Errorf("Cancel left %d timers pending", m.Pending())
	}

	m.Advance(2 * time.Second)
	if completed {
		t.Error("Cancelled clock reported completion")
	}

	// Cancel on an idle clock is a no-op
	c.Cancel()
}

func TestClockRestartWhileRunning(t *testing.T) {
	m := timing.NewManual(epoch)
	c := NewClock(m, timing.Inline, SyncSampler{}, 100*time.Millisecond)

	first, second := 0, 0
	c.Start(testAnimation(1, 1), func(script.VisualState) {}, func() { first++ })
	m.Advance(500 * time.Millisecond)
	c.Start(testAnimation(2, 1), func(script.VisualState) {}, func() { second++ })

	m.Advance(time.Second)
	if first != 0 {
		t.Error("Replaced run reported completion")
	}

	m.Advance(time.Second)
	if second != 1 {
		t.Errorf("Expected the new run to complete once, got %d", second)
	}
	if m.Pending() != 0 {
		t.Errorf("Expected no pending timers, got %d", m.Pending())
	}
}

func TestClockInlineSamplingWithFullInbox(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := timing.NewLoop(2)
	go loop.Run(ctx)

	c := NewClock(timing.Real(), loop, SyncSampler{}, 10*time.Millisecond)
	frames := 0

	loop.Post(func() {
		// inbox fills while the owner is busy
		loop.Post(func() {})
		loop.Post(func() {})
		c.Start(testAnimation(0.05, 1), func(script.VisualState) { frames++ }, func() {})
	})

	callCtx, callCancel := context.WithTimeout(context.Background(), time.Second)
	defer callCancel()

	got := 0
	if err := loop.Call(callCtx, func() { got = frames }); err != nil {
		t.Fatalf("Loop stalled: %v", err)
	}
	if got < 1 {
		t.Errorf("Expected the first frame delivered on Start, got %d", got)
	}
}

// deferredSampler holds deliveries until flushed to simulate a slow worker.
type deferredSampler struct {
	pending []func()
}

func (d *deferredSampler) Submit(a *script.Animation, elapsed float64, deliver func(script.VisualState)) {
	vs := renderer.Sample(a, elapsed)
	d.pending = append(d.pending, func() { deliver(vs) })
}

func TestClockDropsLateFrames(t *testing.T) {
	m := timing.NewManual(epoch)
	slow := &deferredSampler{}
	c := NewClock(m, timing.Inline, slow, 100*time.Millisecond)

	frames := 0
	c.Start(testAnimation(1, 1), func(script.VisualState) { frames++ }, func() {})
	c.Cancel()

	for _, f := range slow.pending {
		f()
	}
	if frames != 0 {
		t.Errorf("Frames from a cancelled run reached the sink: %d", frames)
	}
}

func TestWorkerMatchesSyncSampler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWorker(16)
	go w.Run(ctx)

	a := &script.Animation{
		Duration:    2,
		RepeatCount: 1,
		Keyframes: []script.KeyFrame{
			{Percentage: 0, Scale: script.Float(100), Position: &script.Position{}, MovementType: script.Elastic, ScreenColor: "#000"},
			{Percentage: 100, Scale: script.Float(180), Position: &script.Position{X: 40, Y: -20}, ScreenColor: "#fff", CameraShake: script.Bool(true)},
		},
	}

	for _, elapsed := range []float64{0, 0.3, 1, 1.7, 2} {
		got := make(chan script.VisualState, 1)
		w.Submit(a, elapsed, func(vs script.VisualState) { got <- vs })

		select {
		case vs := <-got:
			var want script.VisualState
			SyncSampler{}.Submit(a, elapsed, func(s script.VisualState) { want = s })
			if !reflect.DeepEqual(vs, want) {
				t.Errorf("At %.2f: worker %+v differs from sync %+v", elapsed, vs, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("Worker did not deliver at %.2f", elapsed)
		}
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
