package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kyyril/portfolio/internal/apperror"
	"github.com/kyyril/portfolio/internal/content"
)

// BlogHandler serves the blog collection loaded at startup.
type BlogHandler struct {
	posts  *content.Collection
	logger *slog.Logger
}

func NewBlogHandler(posts *content.Collection, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{posts: posts, logger: logger}
}

// HandleList returns post summaries, newest first.
//
// HTTP: GET /api/blog[?tag=go]
func (h *BlogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.posts.List(r.URL.Query().Get("tag")))
}

// HandleGet returns one post including its markdown body.
//
// HTTP: GET /api/blog/{slug}
func (h *BlogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, ok := h.posts.Get(chi.URLParam(r, "slug"))
	if !ok {
		writeError(w, h.logger, apperror.NotFound("Post"))
		return
	}
	writeJSON(w, http.StatusOK, post)
}
