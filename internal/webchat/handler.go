// Package webchat serves the embeddable chat widget: a WebSocket channel for
// real-time turns plus an HTTP fallback for clients that cannot upgrade.
package webchat

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/dentalcare-connect/portal/internal/conversation"
	"github.com/dentalcare-connect/portal/internal/identity"
	"github.com/dentalcare-connect/portal/pkg/logging"
)

// Service is the slice of the portal coordinator the widget needs.
type Service interface {
	StartSession(id identity.Identity) (sessionID string, greeting conversation.Turn)
	SendChat(ctx context.Context, sessionID, message string) (reply string, refreshSuggested bool, err error)
	Transcript(sessionID string) ([]conversation.Turn, error)
}

// Handler manages web chat connections and messages.
type Handler struct {
	service Service
	logger  *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*wsConn // session ID -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	done chan struct{}
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type      string `json:"type"` // "message", "ping"
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "typing", "history", "session", "refresh", "error", "pong"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"` // "assistant" or "user"
	SessionID string           `json:"session_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified transcript entry for history replay.
type HistoryMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// NewHandler creates a web chat handler.
func NewHandler(service Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("webchat: chat service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:  service,
		logger:   logger,
		sessions: make(map[string]*wsConn),
	}
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		var greeting conversation.Turn
		sessionID, greeting = h.service.StartSession(identity.Identity{
			Role:  identity.RolePatient,
			Email: r.URL.Query().Get("email"),
		})
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})
		_ = websocket.JSON.Send(conn, OutboundMessage{
			Type:      "message",
			Role:      "assistant",
			Text:      greeting.Text,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	} else {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})
		h.replayHistory(conn, sessionID)
	}

	wsc := &wsConn{conn: conn, done: make(chan struct{})}
	h.mu.Lock()
	h.sessions[sessionID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[sessionID] == wsc {
			delete(h.sessions, sessionID)
		}
		h.mu.Unlock()
		close(wsc.done)
	}()

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}

		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		h.processMessage(r.Context(), sessionID, msg.Text)
	}
}

func (h *Handler) replayHistory(conn *websocket.Conn, sessionID string) {
	turns, err := h.service.Transcript(sessionID)
	if err != nil || len(turns) == 0 {
		return
	}
	history := make([]HistoryMessage, 0, len(turns))
	for _, t := range turns {
		role := "assistant"
		if t.Speaker == conversation.SpeakerUser {
			role = "user"
		}
		history = append(history, HistoryMessage{Role: role, Text: t.Text})
	}
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: history})
}

func (h *Handler) processMessage(ctx context.Context, sessionID, text string) {
	h.SendToSession(sessionID, OutboundMessage{Type: "typing"})

	reply, refresh, err := h.service.SendChat(ctx, sessionID, text)
	if err != nil {
		h.logger.Error("webchat: chat turn failed", "session_id", sessionID, "error", err)
		h.SendToSession(sessionID, OutboundMessage{
			Type: "error",
			Text: "Sorry, something went wrong. Please try again.",
		})
		return
	}

	h.SendToSession(sessionID, OutboundMessage{
		Type:      "message",
		Role:      "assistant",
		Text:      reply,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if refresh {
		h.SendToSession(sessionID, OutboundMessage{Type: "refresh"})
	}
}

// SendToSession sends a message to an active WebSocket session.
func (h *Handler) SendToSession(sessionID string, msg OutboundMessage) {
	h.mu.RLock()
	wsc, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	_ = websocket.JSON.Send(wsc.conn, msg)
}

// HandleMessage is the HTTP fallback for clients without WebSocket support.
// Unlike the socket path it answers synchronously.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID, _ = h.service.StartSession(identity.Identity{Role: identity.RolePatient})
	}

	reply, refresh, err := h.service.SendChat(r.Context(), req.SessionID, req.Text)
	if err != nil {
		http.Error(w, "chat failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id":        req.SessionID,
		"reply":             reply,
		"refresh_suggested": refresh,
	})
}
