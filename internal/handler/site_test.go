package handler_test

import (
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyyril/portfolio/internal/content"
	"github.com/kyyril/portfolio/internal/handler"
)

func testPosts(t *testing.T) *content.Collection {
	t.Helper()
	posts, err := content.LoadFS(fstest.MapFS{
		"hello-go.md": {Data: []byte("---\ntitle: Hello Go\npublishedAt: 2024-01-10\nreadTime: 2 min\ntags: [go]\nexcerpt: hi\n---\nbody one")},
		"astro.md":    {Data: []byte("---\ntitle: Astro\npublishedAt: 2024-02-10\nreadTime: 4 min\ntags: [web]\nexcerpt: hey\n---\nbody two")},
	}, discardLogger())
	require.NoError(t, err)
	return posts
}

func TestBlog_List(t *testing.T) {
	h := handler.NewBlogHandler(testPosts(t), discardLogger())

	rr := serve(h.HandleList, httptest.NewRequest(http.MethodGet, "/api/blog", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	posts := decode[[]content.Post](t, rr)
	require.Len(t, posts, 2)
	assert.Equal(t, "astro", posts[0].Slug)
	assert.Empty(t, posts[0].Body)

	rr = serve(h.HandleList, httptest.NewRequest(http.MethodGet, "/api/blog?tag=go", nil))
	posts = decode[[]content.Post](t, rr)
	require.Len(t, posts, 1)
	assert.Equal(t, "hello-go", posts[0].Slug)
}

func TestBlog_Get(t *testing.T) {
	h := handler.NewBlogHandler(testPosts(t), discardLogger())
	r := chi.NewRouter()
	r.Get("/api/blog/{slug}", h.HandleGet)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/blog/hello-go", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "body one", decode[content.Post](t, rr).Body)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/blog/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Post not found", decode[errorBody](t, rr).Message)
}

func TestSEO_Robots(t *testing.T) {
	h := handler.NewSEOHandler("https://site.example/", testPosts(t), discardLogger())

	rr := serve(h.HandleRobots, httptest.NewRequest(http.MethodGet, "/robots.txt", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=86400", rr.Header().Get("Cache-Control"))
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, rr.Body.String(), "Sitemap: https://site.example/sitemap.xml")
	assert.Contains(t, rr.Body.String(), "Disallow: /api/")
}

func TestSEO_Sitemap(t *testing.T) {
	h := handler.NewSEOHandler("https://site.example", testPosts(t), discardLogger())

	rr := serve(h.HandleSitemap, httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/xml", rr.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))

	var set struct {
		URLs []struct {
			Loc      string `xml:"loc"`
			LastMod  string `xml:"lastmod"`
			Priority string `xml:"priority"`
		} `xml:"url"`
	}
	require.NoError(t, xml.Unmarshal(rr.Body.Bytes(), &set))

	locs := make(map[string]string, len(set.URLs))
	for _, u := range set.URLs {
		locs[u.Loc] = u.Priority
	}
	assert.Equal(t, "1.0", locs["https://site.example"])
	assert.Equal(t, "0.8", locs["https://site.example/guestbook"])
	assert.Equal(t, "0.7", locs["https://site.example/blog/hello-go"])
	assert.Equal(t, "0.6", locs["https://site.example/projects/hadith-api"])

	for _, u := range set.URLs {
		if u.Loc == "https://site.example/blog/astro" {
			assert.Equal(t, "2024-02-10T00:00:00Z", u.LastMod)
		}
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	rr := serve(handler.NewHealthHandler(stubPinger{}, discardLogger()).HandleHealth, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = serve(handler.NewHealthHandler(stubPinger{err: errors.New("disk full")}, discardLogger()).HandleHealth, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
