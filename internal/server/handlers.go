package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ivlev/vnplay/internal/system"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Command is a /control message
type Command struct {
	Cmd      string  `json:"cmd"` // advance | rewind | autoplay | videoTime
	Value    bool    `json:"value,omitempty"`
	Index    int     `json:"index,omitempty"`
	Position float64 `json:"position,omitempty"`
}

// Handler serves /events, /control and /health.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", h.HandleEventsWS)
	mux.HandleFunc("/control", h.HandleControl)
	mux.HandleFunc("/health", h.HandleHealth)
	return withCORS(mux)
}

func (h *Hub) HandleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	id := h.register(conn)
	log.Debug().Str("client", id).Str("remote", r.RemoteAddr).Msg("events client connected")

	go func() {
		defer h.unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// HandleControl accepts commands over a websocket or as a single POST body.
func (h *Hub) HandleControl(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var cmd Command
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			http.Error(w, "bad command", http.StatusBadRequest)
			return
		}
		if !h.apply(cmd) {
			http.Error(w, "unknown command", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}
		h.apply(cmd)
	}
}

func (h *Hub) apply(cmd Command) bool {
	h.mu.Lock()
	c := h.control
	h.mu.Unlock()
	if c == nil {
		return false
	}

	switch cmd.Cmd {
	case "advance":
		c.Advance()
	case "rewind":
		c.Rewind()
	case "autoplay":
		c.SetAutoPlay(cmd.Value)
	case "videoTime":
		c.VideoTime(cmd.Index, cmd.Position)
	default:
		log.Debug().Str("cmd", cmd.Cmd).Msg("unknown control command")
		return false
	}
	return true
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	resp := map[string]any{
		"uptime_s":  time.Since(h.startTime).Seconds(),
		"clients":   len(h.clients),
		"paragraph": h.paragraph,
		"dialogue":  h.dialogue,
		"ended":     h.ended,
	}
	h.mu.Unlock()

	if st, err := system.ProcessStats(); err == nil {
		resp["process"] = st
	} else {
		log.Debug().Err(err).Msg("process stats")
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
