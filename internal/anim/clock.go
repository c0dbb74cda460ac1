package anim

import (
	"math"
	"time"

	"github.com/ivlev/vnplay/internal/renderer"
	"github.com/ivlev/vnplay/internal/script"
	"github.com/ivlev/vnplay/internal/timing"
)

// State of an animation clock
type State int

const (
	Idle State = iota
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return "idle"
	}
}

// DefaultFrameInterval is one tick at 60 FPS
const DefaultFrameInterval = time.Second / 60

// Clock drives sampling of one animation across wall-clock time.
// Every method and callback runs on the executor's goroutine.
type Clock struct {
	sched    timing.Scheduler
	exec     timing.Executor
	sampler  Sampler
	interval time.Duration

	state   State
	gen     uint64
	anim    *script.Animation
	started time.Time
	timer   timing.Timer
	sink    func(script.VisualState)
	done    func()
}

// NewClock creates an idle clock. interval <= 0 uses DefaultFrameInterval.
func NewClock(sched timing.Scheduler, exec timing.Executor, sampler Sampler, interval time.Duration) *Clock {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	if sampler == nil {
		sampler = SyncSampler{}
	}
	return &Clock{
		sched:    sched,
		exec:     exec,
		sampler:  sampler,
		interval: interval,
	}
}

// Start begins playing a. A running clock is cancelled first.
// sink receives every sampled state; done fires once when duration x repeatCount elapses.
func (c *Clock) Start(a *script.Animation, sink func(script.VisualState), done func()) {
	if c.state == Running {
		c.Cancel()
	}

	c.gen++
	c.state = Running
	c.anim = a
	c.sink = sink
	c.done = done
	c.started = c.sched.Now()

	c.tick(c.gen)
}

// Cancel stops a running clock without reporting completion.
func (c *Clock) Cancel() {
	if c.state != Running {
		return
	}
	c.gen++
	c.state = Idle
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.sink = nil
	c.done = nil
}

func (c *Clock) State() State { return c.state }

func (c *Clock) tick(gen uint64) {
	if gen != c.gen || c.state != Running {
		return
	}
	c.timer = nil

	elapsed := c.sched.Now().Sub(c.started).Seconds()
	total := c.anim.Duration * float64(c.anim.RepeatCount)

	if elapsed < total {
		cycle := math.Mod(elapsed, c.anim.Duration)
		sink := c.sink
		if _, inline := c.sampler.(SyncSampler); inline {
			// Already on the owner goroutine; posting here could block on our own inbox
			sink(renderer.Sample(c.anim, cycle))
			if gen != c.gen || c.state != Running {
				return
			}
		} else {
			c.sampler.Submit(c.anim, cycle, func(vs script.VisualState) {
				c.exec.Post(func() {
					// Late frames from a cancelled run are dropped
					if gen == c.gen && c.state == Running {
						sink(vs)
					}
				})
			})
		}

		c.timer = c.sched.AfterFunc(c.interval, func() {
			c.exec.Post(func() { c.tick(gen) })
		})
		return
	}

	c.state = Completed
	done := c.done
	c.sink = nil
	c.done = nil
	if done != nil {
		done()
	}
}
