package director

import (
	"errors"
	"testing"
	"time"

	"github.com/ivlev/vnplay/internal/gate"
	"github.com/ivlev/vnplay/internal/script"
	"github.com/ivlev/vnplay/internal/timing"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type recorder struct {
	units   [][2]int
	texts   []string
	visuals []script.VisualState
	ends    int
	resets  int
}

func (r *recorder) OnVisualStateChange(vs script.VisualState) { r.visuals = append(r.visuals, vs) }
func (r *recorder) OnTextUpdate(text string)                  { r.texts = append(r.texts, text) }
func (r *recorder) OnUnitChanged(p, d int)                    { r.units = append(r.units, [2]int{p, d}) }
func (r *recorder) OnScriptEnd()                              { r.ends++ }
func (r *recorder) OnVisualReset()                            { r.resets++ }

func (r *recorder) lastText() string {
	if len(r.texts) == 0 {
		return ""
	}
	return r.texts[len(r.texts)-1]
}

type fakeAudio struct {
	urls  []string
	dones []func(error)
	stops int
}

func (f *fakeAudio) Play(url string, done func(error)) func() {
	f.urls = append(f.urls, url)
	f.dones = append(f.dones, done)
	return func() { f.stops++ }
}

type fakeVideo struct {
	loads []int
	stops int
}

func (f *fakeVideo) Load(index int, p script.Paragraph) { f.loads = append(f.loads, index) }
func (f *fakeVideo) Stop()                              { f.stops++ }

func testScript() *script.DialogueScript {
	return &script.DialogueScript{
		ID:         "s1",
		PlayerName: "Alice",
		Paragraphs: []script.Paragraph{
			{
				ID: "p0",
				Dialogues: []script.Dialogue{
					{ID: "d0", Speaker: "NPC", Content: "Hi @player"},
					{ID: "d1", Speaker: "@player", Content: "abc", VoiceURL: "v1.mp3"},
					{ID: "d2", Speaker: "NPC", Content: "ok", VoiceURL: "v2.mp3"},
				},
			},
			{
				ID: "p1",
				Dialogues: []script.Dialogue{
					{ID: "d3", Speaker: "NPC", Content: "x", Animation: &script.Animation{
						StartTime:   0.5,
						Duration:    1,
						RepeatCount: 1,
						Keyframes: []script.KeyFrame{
							{Percentage: 0, Scale: script.Float(100)},
							{Percentage: 100, Scale: script.Float(200)},
						},
					}},
					{ID: "d4", Speaker: "NPC", Content: "yz"},
				},
			},
		},
	}
}

type fixture struct {
	d     *Director
	m     *timing.Manual
	rec   *recorder
	audio *fakeAudio
	video *fakeVideo
}

func newFixture(autoPlay bool) *fixture {
	f := &fixture{
		m:     timing.NewManual(epoch),
		rec:   &recorder{},
		audio: &fakeAudio{},
		video: &fakeVideo{},
	}
	f.d = New(testScript(), f.rec, f.m, timing.Inline, Options{
		AutoPlay:      autoPlay,
		FrameInterval: 100 * time.Millisecond,
		Audio:         f.audio,
		Video:         f.video,
	})
	return f
}

// finishText skips any reveal in progress so the next Advance moves position
func (f *fixture) finishText() {
	if f.d.Typing() {
		f.d.Advance()
	}
}

func assertPosition(t *testing.T, d *Director, p, dl int) {
	t.Helper()
	gp, gd := d.Position()
	if gp != p || gd != dl {
		t.Fatalf("Expected position (%d,%d), got (%d,%d)", p, dl, gp, gd)
	}
}

func TestTypewriterReveal(t *testing.T) {
	f := newFixture(false)
	f.d.Start()

	assertPosition(t, f.d, 0, 0)
	if len(f.rec.units) != 1 || f.rec.units[0] != [2]int{0, 0} {
		t.Fatalf("Expected unit (0,0) reported, got %v", f.rec.units)
	}
	if f.rec.texts[0] != "" || f.rec.lastText() != "H" {
		t.Fatalf("Expected cleared text then first rune, got %q", f.rec.texts)
	}

	f.m.Advance(300 * time.Millisecond)
	if !f.d.Typing() {
		t.Fatal("Reveal finished early")
	}
	f.m.Advance(50 * time.Millisecond)
	if f.d.Typing() {
		t.Fatal("Reveal should be done after 7 steps")
	}
	if f.d.Text() != "Hi Alice" {
		t.Errorf("Expected substituted text, got %q", f.d.Text())
	}
	if !f.d.Flags().Has(gate.Text) {
		t.Error("Text flag not set after reveal")
	}
	if f.m.Pending() != 0 {
		t.Errorf("Reveal left %d timers pending", f.m.Pending())
	}
}

func TestAdvanceSkipsTypingFirst(t *testing.T) {
	f := newFixture(false)
	f.d.Start()

	f.d.Advance()
	assertPosition(t, f.d, 0, 0)
	if f.d.Typing() || f.d.Text() != "Hi Alice" {
		t.Fatalf("First advance should complete the text, got %q", f.d.Text())
	}
	if !f.d.Flags().Has(gate.Text) {
		t.Error("Force-complete should set the text flag")
	}

	f.d.Advance()
	assertPosition(t, f.d, 0, 1)
}

func TestTerminalIdempotence(t *testing.T) {
	f := newFixture(false)
	f.d.Start()

	for i := 0; i < 20; i++ {
		f.d.Advance()
	}

	assertPosition(t, f.d, 1, 1)
	if !f.d.Ended() {
		t.Fatal("Expected end of script")
	}
	if f.rec.ends != 1 {
		t.Errorf("Expected OnScriptEnd once, got %d", f.rec.ends)
	}

	units := len(f.rec.units)
	for i := 0; i < 5; i++ {
		f.d.Advance()
	}
	assertPosition(t, f.d, 1, 1)
	if len(f.rec.units) != units || f.rec.ends != 1 {
		t.Error("Advance past the end produced observable changes")
	}
}

func TestAdvanceRewindInverse(t *testing.T) {
	f := newFixture(false)
	f.d.Start()
	f.d.LoadDialogue(1)
	assertPosition(t, f.d, 0, 1)

	f.finishText()
	f.d.Advance()
	assertPosition(t, f.d, 0, 2)

	f.d.Rewind()
	assertPosition(t, f.d, 0, 1)
}

func TestRewindAcrossParagraphs(t *testing.T) {
	f := newFixture(false)
	f.d.Start()
	f.d.LoadParagraph(1)
	f.d.LoadDialogue(0)

	f.d.Rewind()
	assertPosition(t, f.d, 0, 2)

	f.d.LoadDialogue(0)
	f.d.Rewind()
	assertPosition(t, f.d, 0, 0)

	if len(f.video.loads) != 3 || f.video.loads[1] != 1 || f.video.loads[2] != 0 {
		t.Errorf("Expected video loads [0 1 0], got %v", f.video.loads)
	}
}

func TestBoundsChecks(t *testing.T) {
	f := newFixture(false)
	f.d.Start()

	if f.d.LoadDialogue(3) || f.d.LoadDialogue(-1) {
		t.Error("Out-of-range dialogue should be rejected")
	}
	if f.d.LoadParagraph(2) || f.d.LoadParagraph(-1) {
		t.Error("Out-of-range paragraph should be rejected")
	}
	assertPosition(t, f.d, 0, 0)
}

func TestAutoPlayWaitsForAudio(t *testing.T) {
	f := newFixture(true)
	f.d.Start()

	// "Hi Alice" finishes at 350ms, auto-advance 500ms later
	f.m.Advance(849 * time.Millisecond)
	assertPosition(t, f.d, 0, 0)
	f.m.Advance(time.Millisecond)
	assertPosition(t, f.d, 0, 1)

	if len(f.audio.urls) != 1 || f.audio.urls[0] != "v1.mp3" {
		t.Fatalf("Expected voice clip started, got %v", f.audio.urls)
	}

	f.m.Advance(3 * time.Second)
	assertPosition(t, f.d, 0, 1)

	f.audio.dones[0](nil)
	f.m.Advance(500 * time.Millisecond)
	assertPosition(t, f.d, 0, 2)
}

func TestDisableAutoPlayPreventsAdvance(t *testing.T) {
	f := newFixture(true)
	f.d.Start()

	f.m.Advance(500 * time.Millisecond)
	f.d.SetAutoPlay(false)
	f.m.Advance(2 * time.Second)
	assertPosition(t, f.d, 0, 0)
}

func TestStaleAudioCompletion(t *testing.T) {
	f := newFixture(false)
	f.d.Start()
	f.d.LoadDialogue(1)
	f.d.LoadDialogue(2)

	if f.audio.stops != 1 {
		t.Errorf("Expected the first clip stopped, got %d stops", f.audio.stops)
	}

	// The abandoned clip's completion arrives late
	f.audio.dones[0](nil)
	if f.d.Flags().Has(gate.Audio) {
		t.Fatal("Stale completion marked the new unit's audio flag")
	}

	f.audio.dones[1](errors.New("decode error"))
	if !f.d.Flags().Has(gate.Audio) {
		t.Error("Audio failure should mark the channel complete")
	}
}

func TestAnimationStartDelay(t *testing.T) {
	f := newFixture(false)
	f.d.Start()
	f.d.LoadParagraph(1)
	f.d.LoadDialogue(0)

	if f.d.Flags().Has(gate.Animation) {
		t.Fatal("Animation flag should start unset")
	}

	f.m.Advance(400 * time.Millisecond)
	if len(f.rec.visuals) != 0 {
		t.Fatal("Animation started before its start time")
	}

	f.m.Advance(100 * time.Millisecond)
	if len(f.rec.visuals) == 0 {
		t.Fatal("Animation did not start at its start time")
	}
	if s := f.rec.visuals[0].Scale; s == nil || *s != 100 {
		t.Errorf("Expected first frame at scale 100, got %v", s)
	}

	f.m.Advance(time.Second)
	if !f.d.Flags().Has(gate.Animation) {
		t.Error("Animation flag not set after duration")
	}
}

func TestNavigateAwayCancelsAnimation(t *testing.T) {
	f := newFixture(false)
	f.d.Start()
	f.d.LoadParagraph(1)
	f.d.LoadDialogue(0)

	f.d.LoadDialogue(1)
	f.m.Advance(3 * time.Second)

	if len(f.rec.visuals) != 0 {
		t.Errorf("Cancelled animation emitted %d frames", len(f.rec.visuals))
	}
	if f.m.Pending() != 0 {
		t.Errorf("Unit change leaked %d timers", f.m.Pending())
	}
}

func TestVisualResetOnLoads(t *testing.T) {
	f := newFixture(false)
	f.d.Start()

	// paragraph load + unit load
	if f.rec.resets != 2 {
		t.Errorf("Expected 2 resets on start, got %d", f.rec.resets)
	}
}

func TestStopCancelsEverything(t *testing.T) {
	f := newFixture(true)
	f.d.Start()
	f.d.LoadDialogue(1)
	f.d.Stop()

	if f.audio.stops != 1 {
		t.Errorf("Expected audio stopped, got %d", f.audio.stops)
	}
	if f.video.stops != 1 {
		t.Errorf("Expected video load abandoned, got %d stops", f.video.stops)
	}
	if f.m.Pending() != 0 {
		t.Errorf("Stop left %d timers pending", f.m.Pending())
	}
}

func TestEmptyScript(t *testing.T) {
	d := New(&script.DialogueScript{}, nil, timing.NewManual(epoch), timing.Inline, Options{})
	d.Start()
	d.Advance()
	d.Rewind()
	assertPosition(t, d, 0, 0)
}
