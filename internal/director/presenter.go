package director

import (
	"github.com/ivlev/vnplay/internal/script"
)

// Presenter receives playback output. Calls arrive on the executor goroutine.
type Presenter interface {
	OnVisualStateChange(vs script.VisualState)
	OnTextUpdate(text string)
	OnUnitChanged(paragraph, dialogue int)
	OnScriptEnd()
}

// VisualResetter is implemented by presenters that clear transforms on paragraph and unit loads.
type VisualResetter interface {
	OnVisualReset()
}

// AudioPlayer plays a voice clip and calls done once when playback ends or fails.
// done may run on any goroutine. stop aborts playback; done is not called after it.
type AudioPlayer interface {
	Play(url string, done func(err error)) (stop func())
}

// VideoLoader prepares a paragraph's background video. Stop abandons any load in flight.
type VideoLoader interface {
	Load(index int, p script.Paragraph)
	Stop()
}

// Multi fans out to several presenters in order.
func Multi(presenters ...Presenter) Presenter {
	return multi(presenters)
}

type multi []Presenter

func (m multi) OnVisualStateChange(vs script.VisualState) {
	for _, p := range m {
		p.OnVisualStateChange(vs)
	}
}

func (m multi) OnTextUpdate(text string) {
	for _, p := range m {
		p.OnTextUpdate(text)
	}
}

func (m multi) OnUnitChanged(paragraph, dialogue int) {
	for _, p := range m {
		p.OnUnitChanged(paragraph, dialogue)
	}
}

func (m multi) OnScriptEnd() {
	for _, p := range m {
		p.OnScriptEnd()
	}
}

func (m multi) OnVisualReset() {
	for _, p := range m {
		if r, ok := p.(VisualResetter); ok {
			r.OnVisualReset()
		}
	}
}

// Nop discards all output
type Nop struct{}

func (Nop) OnVisualStateChange(script.VisualState) {}
func (Nop) OnTextUpdate(string)                    {}
func (Nop) OnUnitChanged(int, int)                 {}
func (Nop) OnScriptEnd()                           {}
