// Package server exposes playback to browser clients over websockets.
package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ivlev/vnplay/internal/effects"
	"github.com/ivlev/vnplay/internal/script"
	"github.com/ivlev/vnplay/internal/video"
)

const writeWait = 200 * time.Millisecond

// Controller receives commands from /control clients.
// Implementations must be safe to call from any goroutine.
type Controller interface {
	Advance()
	Rewind()
	SetAutoPlay(on bool)
	VideoTime(index int, position float64)
}

// Hub fans presenter output out to every connected /events client.
// It implements director.Presenter, director.VisualResetter and video.Sink.
type Hub struct {
	mu      sync.Mutex
	script  *script.DialogueScript
	effect  effects.Effect
	control Controller

	clients map[*websocket.Conn]string

	// replayed to new clients
	lastUnit  []byte
	lastText  []byte
	lastVideo []byte

	paragraph int
	dialogue  int
	ended     bool
	startTime time.Time
}

func NewHub(s *script.DialogueScript, effect effects.Effect) *Hub {
	if effect == nil {
		effect = &effects.DefaultEffect{}
	}
	return &Hub{
		script:    s,
		effect:    effect,
		clients:   map[*websocket.Conn]string{},
		startTime: time.Now(),
	}
}

// SetController attaches the command target. Without one /control rejects commands.
func (h *Hub) SetController(c Controller) {
	h.mu.Lock()
	h.control = c
	h.mu.Unlock()
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) OnVisualStateChange(vs script.VisualState) {
	h.broadcast(map[string]any{"type": "visual", "frame": h.effect.Apply(vs)}, nil)
}

func (h *Hub) OnVisualReset() {
	h.broadcast(map[string]any{"type": "visual", "frame": effects.Reset()}, nil)
}

func (h *Hub) OnTextUpdate(text string) {
	h.broadcast(map[string]any{"type": "text", "text": text}, &h.lastText)
}

func (h *Hub) OnUnitChanged(paragraph, dialogue int) {
	speaker := ""
	if unit, ok := h.script.Unit(paragraph, dialogue); ok {
		speaker = h.script.DisplaySpeaker(unit)
	}

	h.mu.Lock()
	h.paragraph, h.dialogue, h.ended = paragraph, dialogue, false
	h.mu.Unlock()

	h.broadcast(map[string]any{
		"type":      "unit",
		"paragraph": paragraph,
		"dialogue":  dialogue,
		"speaker":   speaker,
	}, &h.lastUnit)
}

func (h *Hub) OnScriptEnd() {
	h.mu.Lock()
	h.ended = true
	h.mu.Unlock()

	h.broadcast(map[string]any{"type": "end"}, nil)
}

func (h *Hub) OnVideo(st video.State) {
	h.broadcast(map[string]any{"type": "video", "video": st}, &h.lastVideo)
}

func (h *Hub) OnVideoAction(index int, action video.Action, seekTo float64) {
	h.broadcast(map[string]any{
		"type":   "videoAction",
		"index":  index,
		"action": action.String(),
		"seekTo": seekTo,
	}, nil)
}

// broadcast encodes msg once and writes it to every client.
// When keep is set the encoded message is remembered for replay.
func (h *Hub) broadcast(msg map[string]any, keep *[]byte) {
	b, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Interface("type", msg["type"]).Msg("encode event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if keep != nil {
		*keep = b
	}
	for c, id := range h.clients {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Str("client", id).Msg("write event, dropping client")
			delete(h.clients, c)
			c.Close()
		}
	}
}

// register adds a client and replays the current unit, text and background
func (h *Hub) register(conn *websocket.Conn) string {
	id := uuid.NewString()

	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[conn] = id
	for _, b := range [][]byte{h.lastVideo, h.lastUnit, h.lastText} {
		if b == nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Str("client", id).Msg("replay event, dropping client")
			delete(h.clients, conn)
			conn.Close()
			break
		}
	}
	return id
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}
