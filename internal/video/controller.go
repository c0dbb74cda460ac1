package video

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ivlev/vnplay/internal/media"
	"github.com/ivlev/vnplay/internal/script"
	"github.com/ivlev/vnplay/internal/timing"
)

// DefaultLoadTimeout before a background video is replaced by the fallback
const DefaultLoadTimeout = 10 * time.Second

// FallbackBackground is shown when a video cannot be loaded
const FallbackBackground = "#000000"

// State describes the background of the current paragraph
type State struct {
	Index      int     `json:"index"`
	URL        string  `json:"url,omitempty"`
	Muted      bool    `json:"muted"`
	Loop       bool    `json:"loop"`
	Start      float64 `json:"start"`
	End        float64 `json:"end,omitempty"`
	Duration   float64 `json:"duration,omitempty"` // seconds, once probed
	Ready      bool    `json:"ready"`
	Fallback   bool    `json:"fallback"`
	Background string  `json:"background,omitempty"`
}

// Sink receives background updates on the executor goroutine
type Sink interface {
	OnVideo(st State)
	OnVideoAction(index int, action Action, seekTo float64)
}

// Controller loads paragraph videos and enforces their time windows.
// Load and TimeUpdate must be called from the executor.
type Controller struct {
	prober  media.Prober
	exec    timing.Executor
	sink    Sink
	baseDir string
	timeout time.Duration

	gen     uint64
	cancel  context.CancelFunc
	current State
	para    script.Paragraph
}

func NewController(p media.Prober, exec timing.Executor, sink Sink, baseDir string, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	return &Controller{
		prober:  p,
		exec:    exec,
		sink:    sink,
		baseDir: baseDir,
		timeout: timeout,
	}
}

// Load switches the background to paragraph index. The video is probed in
// the background; failure or timeout substitutes the fallback.
func (c *Controller) Load(index int, p script.Paragraph) {
	c.Stop()
	gen := c.gen
	c.para = p

	if p.VideoURL == "" {
		c.emit(fallback(index))
		return
	}

	st := State{
		Index: index,
		URL:   p.VideoURL,
		Muted: p.VideoMuted,
		Loop:  p.VideoLoop,
		Start: StartPosition(p.VideoTimeRange),
	}
	if p.VideoTimeRange != nil {
		st.End = p.VideoTimeRange.End
	}
	c.emit(st)

	src := media.Resolve(c.baseDir, p.VideoURL)
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	c.cancel = cancel
	go func() {
		defer cancel()

		d, err := c.prober.Duration(ctx, src)
		c.exec.Post(func() {
			if gen != c.gen {
				return
			}
			if err != nil {
				log.Warn().Err(err).Int("paragraph", index).Str("url", src).Msg("background video failed, using fallback")
				c.emit(fallback(index))
				return
			}
			st.Duration = d.Seconds()
			st.Ready = true
			c.emit(st)
		})
	}()
}

// Stop abandons a duration lookup in flight. Its result, if any, is dropped.
func (c *Controller) Stop() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// TimeUpdate applies the paragraph window to a reported playback position.
func (c *Controller) TimeUpdate(index int, position float64) Action {
	if index != c.current.Index || c.current.Fallback {
		return None
	}
	action, seekTo := CheckWindow(c.para.VideoTimeRange, c.para.VideoLoop, position)
	if action != None && c.sink != nil {
		c.sink.OnVideoAction(index, action, seekTo)
	}
	return action
}

// Current returns the last emitted state
func (c *Controller) Current() State { return c.current }

func (c *Controller) emit(st State) {
	c.current = st
	if c.sink != nil {
		c.sink.OnVideo(st)
	}
}

func fallback(index int) State {
	return State{Index: index, Fallback: true, Background: FallbackBackground}
}
