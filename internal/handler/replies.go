package handler

import (
	"log/slog"
	"net/http"

	"github.com/kyyril/portfolio/internal/service"
)

// ReplyHandler serves /api/replies.
type ReplyHandler struct {
	replies *service.ReplyService
	logger  *slog.Logger
}

func NewReplyHandler(replies *service.ReplyService, logger *slog.Logger) *ReplyHandler {
	return &ReplyHandler{
		replies: replies,
		logger:  logger,
	}
}

// createReplyRequest accepts the parent as guestbookEntryId or, as older
// clients send it, messageId.
type createReplyRequest struct {
	GuestbookEntryID string `json:"guestbookEntryId"`
	MessageID        string `json:"messageId"`
	Content          string `json:"content"`
}

func (req createReplyRequest) parentID() string {
	if req.GuestbookEntryID != "" {
		return req.GuestbookEntryID
	}
	return req.MessageID
}

type updateReplyRequest struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// HandleList returns the replies of one entry, oldest first. An unknown
// entry yields [].
//
// HTTP: GET /api/replies?messageId=...
func (h *ReplyHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	replies, err := h.replies.ListByEntry(r.Context(), r.URL.Query().Get("messageId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, replies)
}

// HTTP: POST /api/replies
// REQUEST BODY: {"guestbookEntryId": "...", "content": "..."}
func (h *ReplyHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	me, err := caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req createReplyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	reply, err := h.replies.Create(r.Context(), me.ID, req.parentID(), req.Content)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}

// HTTP: PUT /api/replies
// REQUEST BODY: {"id": "...", "content": "..."}
func (h *ReplyHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	me, err := caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req updateReplyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	reply, err := h.replies.Update(r.Context(), me.ID, req.ID, req.Content)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// HTTP: DELETE /api/replies
// REQUEST BODY: {"id": "..."}
func (h *ReplyHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	me, err := caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req deleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.replies.Delete(r.Context(), me.ID, req.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
