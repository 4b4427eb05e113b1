package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kyyril/portfolio/internal/chat"
	"github.com/kyyril/portfolio/internal/service"
)

// ChatHandler relays /api/chat to the assistant, either as one JSON reply
// or as a plain-text stream of fragments.
type ChatHandler struct {
	chat          *service.ChatService
	streamDefault bool
	logger        *slog.Logger
}

// NewChatHandler creates a ChatHandler. streamDefault applies when the
// request body has no "stream" field.
func NewChatHandler(svc *service.ChatService, streamDefault bool, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		chat:          svc,
		streamDefault: streamDefault,
		logger:        logger,
	}
}

type chatRequest struct {
	Message string      `json:"message"`
	History []chat.Turn `json:"history" validate:"max=100,dive"`
	Stream  *bool       `json:"stream"`
}

// HandleChat answers a chat message.
//
// HTTP: POST /api/chat
// REQUEST BODY: {"message": "hi", "history": [{"role":"user","text":"..."}], "stream": false}
// RESPONSE:
//
//	stream=false → 200 {"reply": "...", "title": "..."}
//	stream=true  → 200 text/plain, fragments flushed as they arrive
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	sreq := service.ChatRequest{Message: req.Message, History: req.History}

	stream := h.streamDefault
	if req.Stream != nil {
		stream = *req.Stream
	}
	if stream {
		h.stream(w, r, sreq)
		return
	}

	reply, err := h.chat.Reply(r.Context(), sreq)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// stream copies fragments to the client as they arrive.
//
// Headers are held back until the first fragment, so an error that happens
// before any text (bad credential, upstream 4xx) still gets a proper JSON
// error response. After that the status is already sent and a failure can
// only end the body early.
//
// The request context is the upstream call's parent: when the client
// disconnects, the upstream request is aborted with it.
func (h *ChatHandler) stream(w http.ResponseWriter, r *http.Request, req service.ChatRequest) {
	seq, err := h.chat.Stream(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	rc := http.NewResponseController(w)
	// A stream may outlive the server-wide write timeout; the chat service
	// applies its own deadline.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn("chat stream: clearing write deadline failed", slog.String("error", err.Error()))
	}

	started := false
	start := func() {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusOK)
		started = true
	}

	for fragment, err := range seq {
		if err != nil {
			if !started {
				writeError(w, h.logger, err)
				return
			}
			h.logger.Warn("chat stream ended early", slog.String("error", err.Error()))
			return
		}

		if !started {
			start()
		}
		if _, err := io.WriteString(w, fragment); err != nil {
			// Client went away; breaking out cancels the upstream.
			return
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return
		}
	}

	if !started {
		start()
	}
}
