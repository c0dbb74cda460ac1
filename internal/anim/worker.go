package anim

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ivlev/vnplay/internal/renderer"
	"github.com/ivlev/vnplay/internal/script"
)

// Sampler turns (animation, elapsed-in-cycle) into a visual state and hands
// it to deliver, possibly on another goroutine.
type Sampler interface {
	Submit(a *script.Animation, elapsed float64, deliver func(script.VisualState))
}

// SyncSampler samples inline on the caller's goroutine.
type SyncSampler struct{}

func (SyncSampler) Submit(a *script.Animation, elapsed float64, deliver func(script.VisualState)) {
	deliver(renderer.Sample(a, elapsed))
}

type job struct {
	anim    *script.Animation
	elapsed float64
	deliver func(script.VisualState)
}

// Worker samples on a background goroutine so the owner loop never blocks
// on curve math. Results are identical to SyncSampler.
type Worker struct {
	jobs chan job
}

// NewWorker creates a worker with a bounded queue. Call Run to start it.
func NewWorker(queue int) *Worker {
	if queue < 1 {
		queue = 1
	}
	return &Worker{jobs: make(chan job, queue)}
}

// Submit enqueues a sample request. A full queue drops the frame;
// the next tick supersedes it anyway.
func (w *Worker) Submit(a *script.Animation, elapsed float64, deliver func(script.VisualState)) {
	select {
	case w.jobs <- job{anim: a, elapsed: elapsed, deliver: deliver}:
	default:
		log.Debug().Float64("elapsed", elapsed).Msg("sampler queue full, frame dropped")
	}
}

// Run processes requests until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-w.jobs:
			j.deliver(renderer.Sample(j.anim, j.elapsed))
		}
	}
}
