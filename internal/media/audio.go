package media

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ivlev/vnplay/internal/timing"
)

// DefaultProbeTimeout bounds how long a clip may take to load
const DefaultProbeTimeout = 5 * time.Second

// AudioChannel "plays" voice clips by waiting out their probed duration.
// Output devices are the presentation layer's concern; playback here only
// drives the completion signal.
type AudioChannel struct {
	prober  Prober
	sched   timing.Scheduler
	baseDir string
	timeout time.Duration
}

// NewAudioChannel resolves relative clip paths against baseDir.
func NewAudioChannel(p Prober, sched timing.Scheduler, baseDir string, timeout time.Duration) *AudioChannel {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &AudioChannel{
		prober:  p,
		sched:   sched,
		baseDir: baseDir,
		timeout: timeout,
	}
}

// Play starts url and calls done once: nil when the clip ends, an error when
// it cannot be loaded. done never runs after stop.
func (a *AudioChannel) Play(url string, done func(err error)) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	src := Resolve(a.baseDir, url)

	var (
		mu       sync.Mutex
		finished bool
		timer    timing.Timer
	)

	finish := func(err error) {
		mu.Lock()
		if finished {
			mu.Unlock()
			return
		}
		finished = true
		mu.Unlock()
		cancel()
		done(err)
	}

	go func() {
		probeCtx, probeCancel := context.WithTimeout(ctx, a.timeout)
		defer probeCancel()

		d, err := a.prober.Duration(probeCtx, src)
		if err != nil {
			finish(err)
			return
		}

		log.Debug().Str("url", src).Dur("duration", d).Msg("voice clip playing")

		mu.Lock()
		defer mu.Unlock()
		if finished {
			return
		}
		timer = a.sched.AfterFunc(d, func() { finish(nil) })
	}()

	return func() {
		mu.Lock()
		finished = true
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		cancel()
	}
}
