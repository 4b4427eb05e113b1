package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/rs/xid"
)

const (
	// StateCookieName holds the OAuth state between the redirect to GitHub
	// and the callback.
	StateCookieName = "oauth_state"

	stateTTL = 10 * time.Minute
)

// NewState creates a random state value, writes it to a signed,
// short-lived cookie and returns it for the authorize URL.
func (m *SessionManager) NewState(w http.ResponseWriter) string {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state + "." + m.signState(state),
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return state
}

// VerifyState checks the callback's state parameter against the state
// cookie. The cookie is single-use and cleared either way.
func (m *SessionManager) VerifyState(w http.ResponseWriter, r *http.Request) bool {
	cookie, err := r.Cookie(StateCookieName)

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	if err != nil {
		return false
	}
	state, sig, ok := strings.Cut(cookie.Value, ".")
	if !ok || state == "" {
		return false
	}
	if !hmac.Equal([]byte(sig), []byte(m.signState(state))) {
		return false
	}
	return r.URL.Query().Get("state") == state
}

func (m *SessionManager) signState(state string) string {
	mac := hmac.New(sha256.New, m.stateKey)
	mac.Write([]byte(state))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
