package director

import (
	"time"

	"github.com/ivlev/vnplay/internal/timing"
)

// DefaultCharDelay between revealed characters
const DefaultCharDelay = 50 * time.Millisecond

// typewriter reveals text one rune per step. Used only from the executor.
type typewriter struct {
	sched timing.Scheduler
	exec  timing.Executor
	delay time.Duration

	runes   []rune
	shown   int
	running bool
	gen     uint64
	timer   timing.Timer

	update func(string)
	done   func()
}

func newTypewriter(sched timing.Scheduler, exec timing.Executor, delay time.Duration) *typewriter {
	if delay <= 0 {
		delay = DefaultCharDelay
	}
	return &typewriter{sched: sched, exec: exec, delay: delay}
}

// start cancels any reveal in progress and begins a new one.
// The cleared text is emitted first, then the first rune immediately.
func (tw *typewriter) start(text string, update func(string), done func()) {
	tw.cancel()
	tw.gen++
	tw.runes = []rune(text)
	tw.shown = 0
	tw.update = update
	tw.done = done
	tw.running = true

	update("")
	tw.step(tw.gen)
}

// skip shows the whole text and reports completion.
func (tw *typewriter) skip() {
	if !tw.running {
		return
	}
	tw.stopTimer()
	tw.shown = len(tw.runes)
	tw.update(string(tw.runes))
	tw.finish()
}

func (tw *typewriter) cancel() {
	tw.stopTimer()
	tw.running = false
	tw.gen++
}

func (tw *typewriter) step(gen uint64) {
	if gen != tw.gen || !tw.running {
		return
	}
	tw.timer = nil

	if tw.shown >= len(tw.runes) {
		tw.finish()
		return
	}

	tw.shown++
	tw.update(string(tw.runes[:tw.shown]))

	if tw.shown >= len(tw.runes) {
		tw.finish()
		return
	}

	tw.timer = tw.sched.AfterFunc(tw.delay, func() {
		tw.exec.Post(func() { tw.step(gen) })
	})
}

func (tw *typewriter) finish() {
	tw.running = false
	done := tw.done
	tw.done = nil
	if done != nil {
		done()
	}
}

func (tw *typewriter) stopTimer() {
	if tw.timer != nil {
		tw.timer.Stop()
		tw.timer = nil
	}
}
