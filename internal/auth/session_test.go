package auth

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-characters!!"

func newTestSessions(t *testing.T) *SessionManager {
	t.Helper()
	m, err := NewSessionManager(testSecret, false)
	require.NoError(t, err)
	return m
}

var alice = Identity{ID: "u-alice", Username: "alice", AvatarURL: "https://avatars.example/alice.png"}

func TestNewSessionManager_ShortSecret(t *testing.T) {
	_, err := NewSessionManager("short", false)
	assert.Error(t, err)
}

func TestIssueParse_RoundTrip(t *testing.T) {
	m := newTestSessions(t)

	token, err := m.Issue(alice)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."), "token should look like a JWT")

	got, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, alice, got)
}

func TestIssue_RequiresID(t *testing.T) {
	m := newTestSessions(t)

	_, err := m.Issue(Identity{Username: "nobody"})
	assert.Error(t, err)
}

func TestParse_Rejects(t *testing.T) {
	m := newTestSessions(t)
	other, err := NewSessionManager("a-completely-different-secret-value", false)
	require.NoError(t, err)

	expired, err := m.issue(alice, -time.Minute)
	require.NoError(t, err)

	foreign, err := other.Issue(alice)
	require.NoError(t, err)

	valid, err := m.Issue(alice)
	require.NoError(t, err)
	parts := strings.Split(valid, ".")
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u-mallory","iss":"portfolio","exp":9999999999}`))
	tampered := strings.Join(parts, ".")

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"bare JSON like the old cookie", `{"id":"u-alice","username":"alice"}`},
		{"expired", expired},
		{"signed with another secret", foreign},
		{"payload swapped under the old signature", tampered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Parse(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestSetCookie_Attributes(t *testing.T) {
	m, err := NewSessionManager(testSecret, true)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	require.NoError(t, m.SetCookie(rr, alice))

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]

	assert.Equal(t, SessionCookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 7*24*60*60, c.MaxAge)
	assert.Equal(t, "/", c.Path)
}

func TestClearCookie(t *testing.T) {
	m := newTestSessions(t)

	rr := httptest.NewRecorder()
	m.ClearCookie(rr)

	c := rr.Result().Cookies()[0]
	assert.Equal(t, SessionCookieName, c.Name)
	assert.Equal(t, -1, c.MaxAge)
}

func TestFromRequest(t *testing.T) {
	m := newTestSessions(t)
	token, err := m.Issue(alice)
	require.NoError(t, err)

	t.Run("valid cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})

		id, ok := m.FromRequest(r)
		assert.True(t, ok)
		assert.Equal(t, alice, id)
	})

	t.Run("no cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		_, ok := m.FromRequest(r)
		assert.False(t, ok)
	})

	t.Run("corrupt cookie is anonymous, not an error", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "%%%"})
		_, ok := m.FromRequest(r)
		assert.False(t, ok)
	})
}
