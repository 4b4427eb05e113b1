package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kyyril/portfolio/internal/apperror"
	"github.com/kyyril/portfolio/internal/auth"
	"github.com/kyyril/portfolio/internal/service"
)

// OAuthProvider is the part of auth.GitHubProvider the handler uses.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// Where the browser lands after the callback. Failures add ?error=<reason>.
const (
	loginLandingPath  = "/guestbook"
	signoutTargetPath = "/"
)

// AuthHandler manages the GitHub OAuth login flow and the session cookie.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → verify state, exchange the code, upsert the user, set the cookie
//   - HandleSignout        → clear the cookie
//   - HandleStatus         → report who is logged in
type AuthHandler struct {
	provider OAuthProvider // nil when GitHub credentials are not configured
	sessions *auth.SessionManager
	users    *service.AuthService
	logger   *slog.Logger
}

func NewAuthHandler(
	provider OAuthProvider,
	sessions *auth.SessionManager,
	users *service.AuthService,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		sessions: sessions,
		users:    users,
		logger:   logger,
	}
}

func (h *AuthHandler) notConfigured(w http.ResponseWriter) {
	writeError(w, h.logger, apperror.NotConfigured("GitHub OAuth not configured"))
}

// HandleGitHubLogin redirects to GitHub. The random state is also kept in
// a signed, 10-minute cookie; the callback only proceeds when both match,
// which proves the login was started here and not by a CSRF attacker.
//
// HTTP: GET /api/auth/github
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		h.logger.Error("GitHub login requested but OAuth is not configured")
		h.notConfigured(w)
		return
	}

	state := h.sessions.NewState(w)
	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusFound)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /api/auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Upsert the user in the database
//  4. Write the session cookie
//  5. Redirect to the guestbook
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		h.notConfigured(w)
		return
	}

	// --- Step 1: CSRF state ---
	if !h.sessions.VerifyState(w, r) {
		h.logger.Warn("auth callback: invalid OAuth state")
		h.fail(w, r, "invalid_state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.logger.Info("auth callback: no code", slog.String("githubError", r.URL.Query().Get("error")))
		h.fail(w, r, "no_code")
		return
	}

	// --- Step 2: code → GitHub profile ---
	ghUser, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		h.fail(w, r, "token_error")
		return
	}

	// --- Step 3: upsert ---
	result, err := h.users.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: login failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		h.fail(w, r, "server_error")
		return
	}

	// --- Step 4: session cookie ---
	if err := h.sessions.SetCookie(w, result.Identity); err != nil {
		h.logger.Error("auth callback: issuing session failed", slog.String("error", err.Error()))
		h.fail(w, r, "server_error")
		return
	}

	// --- Step 5: back to the app ---
	http.Redirect(w, r, loginLandingPath, http.StatusFound)
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, loginLandingPath+"?error="+reason, http.StatusFound)
}

// HandleSignout clears the session cookie and sends the browser home.
//
// HTTP: POST /api/auth/signout
//
// Signing out changes state, so it is POST only: a GET could be triggered
// by a cross-site image tag or a browser prefetch.
func (h *AuthHandler) HandleSignout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	http.Redirect(w, r, signoutTargetPath, http.StatusFound)
}

// anonymous is sent without identity fields at all.
var anonymous = map[string]bool{"authenticated": false}

type statusResponse struct {
	Authenticated bool `json:"authenticated"`
	auth.Identity
}

// HandleStatus reports the current session.
//
// HTTP: GET /api/auth/status
// RESPONSE: 200 {"authenticated":true,"id":...,"username":...,"avatarUrl":...}
//
//	or 401 {"authenticated":false}
//
// The identity is refreshed from the database so a changed GitHub avatar
// shows up without logging in again. If the user row is gone the cookie is
// cleared; if the database is unreachable the cookie's copy is returned.
func (h *AuthHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessions.FromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, anonymous)
		return
	}

	fresh, err := h.users.CurrentIdentity(r.Context(), id)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		h.sessions.ClearCookie(w)
		writeJSON(w, http.StatusUnauthorized, anonymous)
		return
	case err != nil:
		h.logger.Warn("auth status: refreshing identity failed",
			slog.String("userID", id.ID),
			slog.String("error", err.Error()),
		)
		fresh = id
	}

	writeJSON(w, http.StatusOK, statusResponse{Authenticated: true, Identity: fresh})
}
