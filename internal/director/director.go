// Package director walks a dialogue script one unit at a time, starting the
// text, audio and animation channels for each unit and advancing when the
// completion gate allows it.
package director

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ivlev/vnplay/internal/anim"
	"github.com/ivlev/vnplay/internal/gate"
	"github.com/ivlev/vnplay/internal/script"
	"github.com/ivlev/vnplay/internal/timing"
)

// Options tune a Director. Zero values fall back to package defaults.
type Options struct {
	AutoPlay      bool
	AutoPlayDelay time.Duration
	CharDelay     time.Duration
	FrameInterval time.Duration
	Sampler       anim.Sampler
	Audio         AudioPlayer
	Video         VideoLoader
}

// Director is the playback sequencer. All methods must be called from the
// executor's goroutine; timer and media callbacks re-enter through it.
type Director struct {
	script    *script.DialogueScript
	presenter Presenter
	sched     timing.Scheduler
	exec      timing.Executor
	audio     AudioPlayer
	video     VideoLoader

	gate  *gate.Gate
	clock *anim.Clock
	typer *typewriter

	paragraph int
	dialogue  int
	text      string
	ended     bool

	token      gate.Token
	stopAudio  func()
	startTimer timing.Timer
}

// New creates a director over a read-only script snapshot.
func New(s *script.DialogueScript, p Presenter, sched timing.Scheduler, exec timing.Executor, opts Options) *Director {
	if p == nil {
		p = Nop{}
	}
	d := &Director{
		script:    s,
		presenter: p,
		sched:     sched,
		exec:      exec,
		audio:     opts.Audio,
		video:     opts.Video,
		clock:     anim.NewClock(sched, exec, opts.Sampler, opts.FrameInterval),
		typer:     newTypewriter(sched, exec, opts.CharDelay),
	}
	d.gate = gate.New(sched, exec, opts.AutoPlayDelay, d.Advance)
	d.gate.SetAutoPlay(opts.AutoPlay)
	return d
}

// Start loads the first unit of the script.
func (d *Director) Start() {
	if !d.LoadParagraph(0) {
		log.Warn().Msg("script has no paragraphs")
		return
	}
	d.LoadDialogue(0)
}

// LoadParagraph switches to paragraph i and rewinds to its first dialogue.
// Out-of-range indices are ignored.
func (d *Director) LoadParagraph(i int) bool {
	if i < 0 || i >= len(d.script.Paragraphs) {
		return false
	}

	d.cancelUnit()
	d.resetVisuals()

	d.paragraph = i
	d.dialogue = 0

	if d.video != nil {
		d.video.Load(i, d.script.Paragraphs[i])
	}
	return true
}

// LoadDialogue starts unit j of the current paragraph. Out-of-range indices are ignored.
func (d *Director) LoadDialogue(j int) bool {
	unit, ok := d.script.Unit(d.paragraph, j)
	if !ok {
		return false
	}

	d.cancelUnit()

	hasAudio := unit.VoiceURL != "" && d.audio != nil
	d.token = d.gate.Reset(hasAudio, unit.Animation != nil)
	d.resetVisuals()

	d.dialogue = j
	d.ended = false
	d.presenter.OnUnitChanged(d.paragraph, j)

	log.Debug().
		Int("paragraph", d.paragraph).
		Int("dialogue", j).
		Str("speaker", d.script.DisplaySpeaker(unit)).
		Msg("unit loaded")

	token := d.token
	d.typer.start(d.script.DisplayText(unit), d.setText, func() {
		d.gate.Complete(token, gate.Text)
	})

	if hasAudio {
		d.playAudio(unit.VoiceURL, token)
	}

	if unit.Animation != nil {
		d.startAnimation(unit.Animation, token)
	}
	return true
}

// Advance skips the reveal if text is still typing, otherwise moves to the
// next unit. Past the last unit it parks and reports the end once.
func (d *Director) Advance() {
	if d.ended || len(d.script.Paragraphs) == 0 {
		return
	}
	if d.typer.running {
		d.typer.skip()
		return
	}

	d.gate.Cancel()

	switch {
	case d.dialogue+1 < len(d.script.Paragraphs[d.paragraph].Dialogues):
		d.LoadDialogue(d.dialogue + 1)
	case d.paragraph+1 < len(d.script.Paragraphs):
		d.LoadParagraph(d.paragraph + 1)
		d.LoadDialogue(0)
	default:
		d.ended = true
		log.Info().Int("paragraph", d.paragraph).Int("dialogue", d.dialogue).Msg("end of script")
		d.presenter.OnScriptEnd()
	}
}

// Rewind moves to the previous unit, crossing into the previous paragraph's last dialogue.
func (d *Director) Rewind() {
	switch {
	case d.dialogue > 0:
		d.LoadDialogue(d.dialogue - 1)
	case d.paragraph > 0:
		prev := d.paragraph - 1
		d.LoadParagraph(prev)
		d.LoadDialogue(len(d.script.Paragraphs[prev].Dialogues) - 1)
	}
}

// SetAutoPlay toggles auto-advance.
func (d *Director) SetAutoPlay(on bool) {
	d.gate.SetAutoPlay(on)
}

// Stop cancels every channel and timer. The director can be restarted with Start.
func (d *Director) Stop() {
	d.cancelUnit()
	if d.video != nil {
		d.video.Stop()
	}
}

func (d *Director) Position() (paragraph, dialogue int) { return d.paragraph, d.dialogue }

func (d *Director) Ended() bool { return d.ended }

func (d *Director) Typing() bool { return d.typer.running }

func (d *Director) Text() string { return d.text }

func (d *Director) AutoPlay() bool { return d.gate.AutoPlay() }

func (d *Director) Flags() gate.Flags { return d.gate.Flags() }

func (d *Director) Script() *script.DialogueScript { return d.script }

// Current returns the dialogue at the current position.
func (d *Director) Current() (script.Dialogue, bool) {
	return d.script.Unit(d.paragraph, d.dialogue)
}

func (d *Director) setText(text string) {
	d.text = text
	d.presenter.OnTextUpdate(text)
}

func (d *Director) playAudio(url string, token gate.Token) {
	d.stopAudio = d.audio.Play(url, func(err error) {
		d.exec.Post(func() {
			if err != nil {
				log.Warn().Err(err).Str("url", url).Msg("voice playback failed, not waiting for it")
			}
			d.gate.Complete(token, gate.Audio)
		})
	})
}

func (d *Director) startAnimation(a *script.Animation, token gate.Token) {
	run := func() {
		d.clock.Start(a, d.presenter.OnVisualStateChange, func() {
			d.gate.Complete(token, gate.Animation)
		})
	}

	if a.StartTime <= 0 {
		run()
		return
	}

	delay := time.Duration(a.StartTime * float64(time.Second))
	var timer timing.Timer
	timer = d.sched.AfterFunc(delay, func() {
		d.exec.Post(func() {
			if d.startTimer != timer || d.token != token {
				return
			}
			d.startTimer = nil
			run()
		})
	})
	d.startTimer = timer
}

// cancelUnit stops everything the current unit started
func (d *Director) cancelUnit() {
	d.gate.Cancel()
	d.typer.cancel()
	d.clock.Cancel()
	if d.startTimer != nil {
		d.startTimer.Stop()
		d.startTimer = nil
	}
	if d.stopAudio != nil {
		d.stopAudio()
		d.stopAudio = nil
	}
}

func (d *Director) resetVisuals() {
	if r, ok := d.presenter.(VisualResetter); ok {
		r.OnVisualReset()
	}
}
