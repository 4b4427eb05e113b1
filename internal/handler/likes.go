package handler

import (
	"log/slog"
	"net/http"

	"github.com/kyyril/portfolio/internal/service"
)

// LikeHandler serves /api/likes. Both routes require a session.
type LikeHandler struct {
	likes  *service.LikeService
	logger *slog.Logger
}

func NewLikeHandler(likes *service.LikeService, logger *slog.Logger) *LikeHandler {
	return &LikeHandler{
		likes:  likes,
		logger: logger,
	}
}

type likeRequest struct {
	Emote     string `json:"emote"`
	MessageID string `json:"messageId"`
}

// HandleCreate reacts to an entry. A repeated (user, entry, emote) triple
// is answered with 409.
//
// HTTP: POST /api/likes
// REQUEST BODY: {"emote": "🚀", "messageId": "..."}
func (h *LikeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	me, err := caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req likeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	like, err := h.likes.Create(r.Context(), me.ID, req.MessageID, req.Emote)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, like)
}

// HTTP: DELETE /api/likes
// REQUEST BODY: {"messageId": "...", "emote": "🚀"}
func (h *LikeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	me, err := caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req likeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.likes.Delete(r.Context(), me.ID, req.MessageID, req.Emote); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
