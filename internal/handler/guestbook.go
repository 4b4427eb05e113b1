package handler

import (
	"log/slog"
	"net/http"

	"github.com/kyyril/portfolio/internal/service"
)

// GuestbookHandler serves /api/guestbook. Reads are public; writes run
// behind auth.RequireAuth and identify the caller from the context.
type GuestbookHandler struct {
	entries *service.EntryService
	logger  *slog.Logger
}

func NewGuestbookHandler(entries *service.EntryService, logger *slog.Logger) *GuestbookHandler {
	return &GuestbookHandler{
		entries: entries,
		logger:  logger,
	}
}

type createEntryRequest struct {
	Message string `json:"message"`
}

type updateEntryRequest struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type deleteRequest struct {
	ID string `json:"id"`
}

// HandleList returns every entry, newest first, with author, replies
// (oldest first), likes, and likeCounts.
//
// HTTP: GET /api/guestbook
func (h *GuestbookHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.entries.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleCreate posts a new entry as the caller.
//
// HTTP: POST /api/guestbook
// REQUEST BODY: {"message": "hello"}
func (h *GuestbookHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	me, err := caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req createEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	entry, err := h.entries.Create(r.Context(), me.ID, req.Message)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// HandleUpdate edits the caller's own entry.
//
// HTTP: PUT /api/guestbook
// REQUEST BODY: {"id": "...", "message": "edited"}
func (h *GuestbookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	me, err := caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req updateEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	entry, err := h.entries.Update(r.Context(), me.ID, req.ID, req.Message)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleDelete removes the caller's own entry together with its replies
// and likes.
//
// HTTP: DELETE /api/guestbook
// REQUEST BODY: {"id": "..."}
// RESPONSE: 204 No Content
func (h *GuestbookHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.entries.Delete(r.Context(), me.ID, req.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
