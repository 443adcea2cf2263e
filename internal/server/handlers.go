package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/roomchat/internal/config"
	"github.com/Tyrowin/roomchat/internal/session"
)

// Stats is the body of GET /stats.
type Stats struct {
	Sessions    int      `json:"sessions"`
	Connections int      `json:"connections"`
	Rooms       []string `json:"rooms"`
}

// Handler serves the relay's HTTP endpoints.
type Handler struct {
	log        *slog.Logger
	cfg        config.Config
	hub        *Hub
	dispatcher Dispatcher
	registry   *session.Registry
	upgrader   websocket.Upgrader
}

// NewHandler builds the HTTP handlers and the upgrader's origin policy from cfg.
func NewHandler(log *slog.Logger, cfg config.Config, hub *Hub, dispatcher Dispatcher, registry *session.Registry) *Handler {
	origins := newOriginPolicy(log, cfg.AllowedOrigins)
	return &Handler{
		log:        log,
		cfg:        cfg,
		hub:        hub,
		dispatcher: dispatcher,
		registry:   registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
	}
}

// WebSocket upgrades the request and registers a new client under a fresh
// connection id. The hub starts the client's pumps.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, h.hub, h.dispatcher, uuid.NewString(), r.RemoteAddr, h.cfg)
	if !h.hub.Register(client) {
		h.log.Warn("Hub is shutting down; rejecting connection", "addr", r.RemoteAddr)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
	}
}

// Health reports that the relay is up.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "Chat relay is running!")
}

// Stats reports live session and connection counts and the occupied rooms.
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	rooms := h.registry.Rooms()
	if rooms == nil {
		rooms = []string{}
	}
	respondJSON(h.log, w, http.StatusOK, Stats{
		Sessions:    h.registry.Len(),
		Connections: h.hub.ConnectionCount(),
		Rooms:       rooms,
	})
}

func respondJSON(log *slog.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}
