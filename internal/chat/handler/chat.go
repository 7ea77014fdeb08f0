package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"medportal/internal/chat/service"
	httputil "medportal/pkg/http"
	"medportal/pkg/logger"
	"medportal/pkg/model"
)

const wsWriteDeadline = 10 * time.Second

type ChatHandler struct {
	service  service.ChatService
	upgrader websocket.Upgrader
	log      *logger.Logger
}

func NewChatHandler(service service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "CreateSession", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	session, err := h.service.CreateSession(r.Context(), req.UserID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CreateSession", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, session); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateSession", "operation", "WriteCreated", "error", err)
	}
}

func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	session, err := h.service.GetSession(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetSession", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, session); err != nil {
		h.log.Error("failed to write success response", "handler", "GetSession", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sessions, err := h.service.ListSessions(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListSessions", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteList(w, sessions, len(sessions)); err != nil {
		h.log.Error("failed to write list response", "handler", "ListSessions", "operation", "WriteList", "error", err)
	}
}

func (h *ChatHandler) ReplaceMessages(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req struct {
		Messages []model.ChatMessage `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "ReplaceMessages", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.ReplaceMessages(r.Context(), ps.ByName("id"), req.Messages); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ReplaceMessages", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.DeleteSession(r.Context(), ps.ByName("id")); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "DeleteSession", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

// Relay is the REST entry point mirroring the agent's own surface: the
// message is appended to the session and the agent's reply returned inline.
func (h *ChatHandler) Relay(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Message   string `json:"message"`
		UserID    string `json:"userId"`
		SessionID string `json:"sessionId"`
		FileID    string `json:"fileId,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Relay", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	reply, err := h.service.Relay(r.Context(), req.SessionID, req.Message, req.FileID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Relay", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, reply); err != nil {
		h.log.Error("failed to write success response", "handler", "Relay", "operation", "WriteSuccess", "error", err)
	}
}

type wsInbound struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	FileID string `json:"fileId,omitempty"`
}

// Stream carries a chat conversation over a websocket: each inbound
// message is relayed to the agent and the reply pushed back on the same
// connection.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sessionID := ps.ByName("sessionId")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	for {
		var inbound wsInbound
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("chat websocket closed unexpectedly", "session_id", sessionID, "error", err)
			}
			return
		}

		reply, err := h.service.Relay(r.Context(), sessionID, inbound.Text, inbound.FileID)
		if err != nil {
			h.log.Warn("failed to relay chat message", "session_id", sessionID, "error", err)
			reply = &model.ChatMessage{
				Sender:    "agent",
				Text:      "Something went wrong handling that message.",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			}
		}

		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline)); err != nil {
			return
		}
		if err := conn.WriteJSON(reply); err != nil {
			h.log.Warn("failed to push chat reply", "session_id", sessionID, "error", err)
			return
		}
	}
}

func (h *ChatHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/chat/sessions", h.CreateSession)
	router.GET("/api/v1/chat/sessions/id/:id", h.GetSession)
	router.PUT("/api/v1/chat/sessions/id/:id/messages", h.ReplaceMessages)
	router.DELETE("/api/v1/chat/sessions/id/:id", h.DeleteSession)
	router.GET("/api/v1/chat/sessions/user/:id", h.ListSessions)
	router.POST("/api/message", h.Relay)
}

// RegisterWSRoutes attaches the websocket endpoint; it lives on the
// lightweight chain without body-size or content-type middleware.
func (h *ChatHandler) RegisterWSRoutes(router *httprouter.Router) {
	router.GET("/ws/chat/:userId/:sessionId", h.Stream)
}
