// Package engine wires a dialogue script to the playback core, the media
// channels and the websocket hub, and supervises them for one session.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/vnplay/internal/anim"
	"github.com/ivlev/vnplay/internal/config"
	"github.com/ivlev/vnplay/internal/director"
	"github.com/ivlev/vnplay/internal/media"
	"github.com/ivlev/vnplay/internal/script"
	"github.com/ivlev/vnplay/internal/server"
	"github.com/ivlev/vnplay/internal/system"
	"github.com/ivlev/vnplay/internal/timing"
	"github.com/ivlev/vnplay/internal/video"
)

// inboxSize leaves room for self-posted frames when sampling inline
const inboxSize = 256

const stopTimeout = 2 * time.Second

// Snapshot is a consistent view of playback taken on the loop
type Snapshot struct {
	Paragraph int         `json:"paragraph"`
	Dialogue  int         `json:"dialogue"`
	Speaker   string      `json:"speaker"`
	Text      string      `json:"text"`
	Typing    bool        `json:"typing"`
	Ended     bool        `json:"ended"`
	AutoPlay  bool        `json:"autoPlay"`
	Flags     string      `json:"flags"`
	Video     video.State `json:"video"`
}

// Session owns one playback run. Advance, Rewind, SetAutoPlay, VideoTime
// and Snapshot are safe to call from any goroutine.
type Session struct {
	cfg    *config.Config
	script *script.DialogueScript

	loop     *timing.Loop
	worker   *anim.Worker
	hub      *server.Hub
	video    *video.Controller
	director *director.Director

	ended     chan struct{}
	endOnce   sync.Once
	units     int
	startTime time.Time
}

// NewSession builds the playback graph. Extra presenters receive the same
// output as the websocket hub.
func NewSession(cfg *config.Config, s *script.DialogueScript, presenters ...director.Presenter) (*Session, error) {
	prober, err := media.NewProber(cfg.Media.Prober)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		cfg:    cfg,
		script: s,
		loop:   timing.NewLoop(inboxSize),
		ended:  make(chan struct{}),
	}
	sched := timing.Real()

	var sampler anim.Sampler = anim.SyncSampler{}
	if cfg.Playback.Offload {
		sess.worker = anim.NewWorker(cfg.Playback.WorkerQueue)
		sampler = sess.worker
	}

	sess.hub = server.NewHub(s, nil)
	sess.hub.SetController(sess)
	sess.video = video.NewController(prober, sess.loop, sess.hub, cfg.Media.Dir, cfg.Media.VideoLoadTimeout())

	all := append([]director.Presenter{sess.hub, (*tracker)(sess)}, presenters...)
	sess.director = director.New(s, director.Multi(all...), sched, sess.loop, director.Options{
		AutoPlay:      cfg.Playback.AutoPlay,
		AutoPlayDelay: cfg.Playback.AutoPlayDelay(),
		CharDelay:     cfg.Playback.CharDelay(),
		FrameInterval: cfg.Playback.FrameInterval(),
		Sampler:       sampler,
		Audio:         media.NewAudioChannel(prober, sched, cfg.Media.Dir, cfg.Media.ProbeTimeout()),
		Video:         sess.video,
	})
	return sess, nil
}

// Handler serves the hub's websocket and health endpoints
func (s *Session) Handler() http.Handler { return s.hub.Handler() }

// Ended is closed the first time the script reaches its end
func (s *Session) Ended() <-chan struct{} { return s.ended }

// Run plays the script until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	s.startTime = time.Now()
	s.printBanner()

	g, ctx := errgroup.WithContext(ctx)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	g.Go(func() error { return s.loop.Run(loopCtx) })
	if s.worker != nil {
		g.Go(func() error { return s.worker.Run(loopCtx) })
	}

	var srv *http.Server
	if s.cfg.Addr != "" {
		srv = &http.Server{
			Addr:         s.cfg.Addr,
			Handler:      s.Handler(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		g.Go(func() error {
			log.Info().Str("addr", s.cfg.Addr).Msg("HTTP сервер запущен")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}

	s.loop.Post(s.director.Start)

	g.Go(func() error {
		<-ctx.Done()

		callCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := s.loop.Call(callCtx, s.director.Stop); err != nil {
			log.Warn().Err(err).Msg("остановка воспроизведения не подтверждена")
		}
		if srv != nil {
			if err := srv.Shutdown(callCtx); err != nil {
				log.Warn().Err(err).Msg("HTTP сервер остановлен принудительно")
			}
		}
		stopLoop()
		return nil
	})

	err := g.Wait()
	s.printReport()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Session) Advance()            { s.loop.Post(s.director.Advance) }
func (s *Session) Rewind()             { s.loop.Post(s.director.Rewind) }
func (s *Session) SetAutoPlay(on bool) { s.loop.Post(func() { s.director.SetAutoPlay(on) }) }

// ToggleAutoPlay flips auto-advance
func (s *Session) ToggleAutoPlay() {
	s.loop.Post(func() { s.director.SetAutoPlay(!s.director.AutoPlay()) })
}

// VideoTime reports the background player's position for paragraph index
func (s *Session) VideoTime(index int, position float64) {
	s.loop.Post(func() { s.video.TimeUpdate(index, position) })
}

// Snapshot waits for the loop to read the current state.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.loop.Call(ctx, func() {
		d := s.director
		snap.Paragraph, snap.Dialogue = d.Position()
		snap.Text = d.Text()
		snap.Typing = d.Typing()
		snap.Ended = d.Ended()
		snap.AutoPlay = d.AutoPlay()
		snap.Flags = d.Flags().String()
		snap.Video = s.video.Current()
		if unit, ok := d.Current(); ok {
			snap.Speaker = s.script.DisplaySpeaker(unit)
		}
	})
	return snap, err
}

func (s *Session) printBanner() {
	units := 0
	for _, p := range s.script.Paragraphs {
		units += len(p.Dialogues)
	}

	fmt.Println("--- [VNPLAY: PLAYBACK ENGINE] ---")
	fmt.Printf("[*] Сценарий: %s | Параграфов: %d | Реплик: %d\n", s.script.Name, len(s.script.Paragraphs), units)
	fmt.Printf("[*] Автовоспроизведение: %v | FPS: %d | Медиа: %s\n", s.cfg.Playback.AutoPlay, s.cfg.Playback.FPS, s.cfg.Media.Dir)
	fmt.Println("---------------------------------")
}

func (s *Session) printReport() {
	if !s.cfg.ShowStats {
		return
	}

	st, err := system.ProcessStats()
	if err != nil {
		log.Debug().Err(err).Msg("process stats")
	}
	fmt.Printf(
		"--- [SESSION REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Units Shown: %d\n"+
			"RSS: %.1f MiB\n"+
			"CPU: %.1f%%\n"+
			"------------------------\n",
		s.cfg.BuildVersion, time.Since(s.startTime).Seconds(), s.units,
		float64(st.RSSBytes)/(1<<20), st.CPUPercent,
	)
}

// tracker counts shown units and closes Ended. Runs on the loop.
type tracker Session

func (t *tracker) OnVisualStateChange(script.VisualState) {}
func (t *tracker) OnTextUpdate(string)                    {}
func (t *tracker) OnUnitChanged(int, int)                 { t.units++ }

func (t *tracker) OnScriptEnd() {
	t.endOnce.Do(func() { close(t.ended) })
}
