// Package auth resolves requests to user identities.
//
// SESSION FLOW:
//  1. /api/auth/github redirects to GitHub
//  2. GitHub calls back /api/auth/github/callback with a code
//  3. The server exchanges the code, upserts the user, and writes a signed
//     token into the "user_session" cookie
//  4. Middleware reads the cookie on later requests and puts the Identity
//     in the request context
//
// The cookie carries the same fields the browser code expects
// (id, username, avatarUrl) but as HS256-signed JWT claims instead of bare
// JSON, so a client cannot forge someone else's identity.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionCookieName is shared with the browser code.
	SessionCookieName = "user_session"

	// SessionTTL is both the token lifetime and the cookie Max-Age.
	SessionTTL = 7 * 24 * time.Hour

	issuer = "portfolio"
)

// Identity is the authenticated user as seen by request handlers.
type Identity struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
}

// sessionClaims stores the user id in "sub" and the display fields
// alongside it.
type sessionClaims struct {
	jwt.RegisteredClaims
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// SessionManager signs, verifies, and moves session tokens in and out of
// cookies.
type SessionManager struct {
	key      []byte
	stateKey []byte
	secure   bool
}

// NewSessionManager derives the signing key from secret. secure sets the
// cookie's Secure flag and should be true in production.
func NewSessionManager(secret string, secure bool) (*SessionManager, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	key, err := DeriveKey([]byte(secret), "session")
	if err != nil {
		return nil, err
	}
	stateKey, err := DeriveKey([]byte(secret), "oauth-state")
	if err != nil {
		return nil, err
	}
	return &SessionManager{key: key, stateKey: stateKey, secure: secure}, nil
}

// Issue signs a token for id that expires after SessionTTL.
func (m *SessionManager) Issue(id Identity) (string, error) {
	return m.issue(id, SessionTTL)
}

func (m *SessionManager) issue(id Identity, ttl time.Duration) (string, error) {
	if id.ID == "" {
		return "", errors.New("auth: identity has no id")
	}

	now := time.Now()
	c := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
		Username:  id.Username,
		AvatarURL: id.AvatarURL,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("auth: signing session: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the identity it carries. Only HS256
// tokens from this issuer with an expiry are accepted.
func (m *SessionManager) Parse(token string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(
		token,
		&sessionClaims{},
		func(*jwt.Token) (any, error) { return m.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, errors.New("auth: session expired")
		}
		return Identity{}, fmt.Errorf("auth: invalid session: %w", err)
	}

	c, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || c.Subject == "" {
		return Identity{}, errors.New("auth: invalid session claims")
	}

	return Identity{ID: c.Subject, Username: c.Username, AvatarURL: c.AvatarURL}, nil
}

// SetCookie issues a token for id and writes it as the session cookie.
func (m *SessionManager) SetCookie(w http.ResponseWriter, id Identity) error {
	token, err := m.Issue(id)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie tells the browser to drop the session cookie.
func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest resolves the session cookie. A missing, tampered, or expired
// cookie yields ok == false; it is never an error for the caller.
func (m *SessionManager) FromRequest(r *http.Request) (Identity, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return Identity{}, false
	}

	id, err := m.Parse(cookie.Value)
	if err != nil {
		return Identity{}, false
	}
	return id, true
}
