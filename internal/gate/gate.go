// Package gate tracks per-unit media completion and the auto-advance trigger.
package gate

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ivlev/vnplay/internal/timing"
)

// Channel is one completion source gating auto-advance
type Channel uint8

const (
	Text Channel = 1 << iota
	Audio
	Animation
)

// All is the joint-completion mask
const All = Text | Audio | Animation

func (c Channel) String() string {
	switch c {
	case Text:
		return "text"
	case Audio:
		return "audio"
	case Animation:
		return "animation"
	}
	return "unknown"
}

// Flags is the set of channels that have completed for the current unit
type Flags uint8

func (f Flags) Has(c Channel) bool { return f&Flags(c) != 0 }

// Satisfied reports whether every channel has completed
func (f Flags) Satisfied() bool { return f&Flags(All) == Flags(All) }

func (f Flags) String() string {
	var done []string
	for _, c := range []Channel{Text, Audio, Animation} {
		if f.Has(c) {
			done = append(done, c.String())
		}
	}
	return "[" + strings.Join(done, ",") + "]"
}

// Token identifies a unit. Completions carrying an older token are ignored.
type Token uint64

// DefaultDelay between joint completion and auto-advance
const DefaultDelay = 500 * time.Millisecond

// Gate must only be used from the executor's goroutine.
type Gate struct {
	sched   timing.Scheduler
	exec    timing.Executor
	delay   time.Duration
	advance func()

	flags    Flags
	token    Token
	autoPlay bool

	timer timing.Timer
	armed uint64
}

// New creates a gate that calls advance when auto-play fires.
func New(sched timing.Scheduler, exec timing.Executor, delay time.Duration, advance func()) *Gate {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Gate{
		sched:   sched,
		exec:    exec,
		delay:   delay,
		advance: advance,
	}
}

// Reset starts a new unit. Channels that do not apply start completed.
func (g *Gate) Reset(hasAudio, hasAnimation bool) Token {
	g.Cancel()
	g.token++
	g.flags = 0
	if !hasAudio {
		g.flags |= Flags(Audio)
	}
	if !hasAnimation {
		g.flags |= Flags(Animation)
	}
	return g.token
}

// Complete records that ch finished for the unit identified by token.
// Reports whether the flag changed.
func (g *Gate) Complete(token Token, ch Channel) bool {
	if token != g.token {
		log.Debug().Stringer("channel", ch).Uint64("token", uint64(token)).Msg("stale completion ignored")
		return false
	}
	if g.flags.Has(ch) {
		return false
	}
	g.flags |= Flags(ch)
	g.evaluate()
	return true
}

// SetAutoPlay toggles auto-advance. Enabling re-evaluates the current unit.
func (g *Gate) SetAutoPlay(on bool) {
	g.autoPlay = on
	if !on {
		g.Cancel()
		return
	}
	g.evaluate()
}

func (g *Gate) AutoPlay() bool { return g.autoPlay }

// Cancel drops a pending auto-advance.
func (g *Gate) Cancel() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.armed++
}

// Pending reports whether an auto-advance is scheduled
func (g *Gate) Pending() bool { return g.timer != nil }

func (g *Gate) Flags() Flags { return g.flags }

func (g *Gate) Token() Token { return g.token }

func (g *Gate) evaluate() {
	if !g.autoPlay || !g.flags.Satisfied() {
		return
	}
	g.arm()
}

// arm replaces any pending trigger with a fresh one
func (g *Gate) arm() {
	g.Cancel()
	id := g.armed
	g.timer = g.sched.AfterFunc(g.delay, func() {
		g.exec.Post(func() {
			if id != g.armed {
				return
			}
			g.timer = nil
			g.armed++
			g.advance()
		})
	})
}
