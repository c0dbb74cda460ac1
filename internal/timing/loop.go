package timing

import (
	"context"
	"sync"
)

// Executor runs functions on the goroutine that owns playback state.
type Executor interface {
	Post(fn func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func())

func (f ExecutorFunc) Post(fn func()) { f(fn) }

// Inline runs posted functions immediately on the caller's goroutine.
// Only safe when every caller already runs on the owner, as in tests with Manual.
var Inline Executor = ExecutorFunc(func(fn func()) { fn() })

// Loop is a single-goroutine inbox. Everything posted runs in order on Run's goroutine.
type Loop struct {
	inbox chan func()
	done  chan struct{}
	once  sync.Once
}

// NewLoop creates a loop with the given inbox capacity.
func NewLoop(size int) *Loop {
	if size < 1 {
		size = 1
	}
	return &Loop{
		inbox: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// Post enqueues fn. Blocks while the inbox is full; dropped once the loop has stopped.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.done:
	case l.inbox <- fn:
	}
}

// Run drains the inbox until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.inbox:
			fn()
		}
	}
}

// Call posts fn and waits for it to finish. Returns ctx.Err() if the loop
// is not draining before ctx ends.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}

	select {
	case l.inbox <- wrapped:
	case <-l.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed after Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }
