package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kyyril/portfolio/internal/auth"
	"github.com/kyyril/portfolio/internal/handler"
	"github.com/kyyril/portfolio/internal/model"
	"github.com/kyyril/portfolio/internal/repository/sqlite"
	"github.com/kyyril/portfolio/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// testAPI wires real services over a throwaway SQLite file, with two
// registered users.
type testAPI struct {
	db    *sqlite.DB
	alice auth.Identity
	bob   auth.Identity

	guestbook *handler.GuestbookHandler
	replies   *handler.ReplyHandler
	likes     *handler.LikeHandler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := discardLogger()

	db, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "handler.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	api := &testAPI{
		db:        db,
		alice:     registerUser(t, db, "1", "alice"),
		bob:       registerUser(t, db, "2", "bob"),
		guestbook: handler.NewGuestbookHandler(service.NewEntryService(db.Entries(), logger), logger),
		replies:   handler.NewReplyHandler(service.NewReplyService(db.Replies(), db.Entries(), logger), logger),
		likes:     handler.NewLikeHandler(service.NewLikeService(db.Likes(), db.Entries(), logger), logger),
	}
	return api
}

func registerUser(t *testing.T, db *sqlite.DB, githubID, username string) auth.Identity {
	t.Helper()
	u := &model.User{GitHubID: githubID, Username: username, AvatarURL: "https://avatars.example/" + username}
	require.NoError(t, db.Users().Upsert(context.Background(), u))
	return service.IdentityOf(u)
}

// newRequest builds a request with an optional JSON body. A nil as leaves
// the request anonymous.
func newRequest(t *testing.T, method, target string, body any, as *auth.Identity) *http.Request {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), *as))
	}
	return req
}

// serve runs h and returns the recorder.
func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// createEntry posts message as id and returns the created entry.
func (api *testAPI) createEntry(t *testing.T, id auth.Identity, message string) model.Entry {
	t.Helper()
	rr := serve(api.guestbook.HandleCreate, newRequest(t, http.MethodPost, "/api/guestbook", map[string]string{"message": message}, &id))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[model.Entry](t, rr)
}
