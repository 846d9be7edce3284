package sessions

import (
	"net/http"
	"time"

	"taskmaster/models"

	"github.com/google/uuid"
	"github.com/umakantv/go-utils/cache"
)

// CookieName is the session cookie set at login.
const CookieName = "session_id"

// keyPrefix namespaces session entries in the cache.
const keyPrefix = "session:"

// Identity is the resolved user bound to a request's session.
type Identity struct {
	UserID int
	Name   string
	Email  string
}

// Manager binds HTTP requests to users through an opaque session id.
// The id is an unguessable UUID stored in an httpOnly cookie; the user
// payload lives server-side in the cache, so a client cannot forge
// another user's identity.
type Manager struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewManager creates a session manager with the given session lifetime.
func NewManager(c cache.Cache, ttl time.Duration) *Manager {
	return &Manager{cache: c, ttl: ttl}
}

// Establish creates a session for user and sets the session cookie.
func (m *Manager) Establish(w http.ResponseWriter, user *models.User) string {
	sessionID := uuid.New().String()
	sessionData := map[string]interface{}{
		"user_id": user.ID,
		"name":    user.Name,
		"email":   user.Email,
	}
	m.cache.Set(keyPrefix+sessionID, sessionData, m.ttl)

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,  // Prevent JS access
		Secure:   false, // True in prod HTTPS
		MaxAge:   int(m.ttl.Seconds()),
	})
	return sessionID
}

// Current resolves the request's identity. The second return value is
// false for anonymous requests (no cookie, or expired/unknown session).
func (m *Manager) Current(r *http.Request) (*Identity, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, false
	}

	cached, err := m.cache.Get(keyPrefix + cookie.Value)
	if err != nil {
		return nil, false
	}

	sessionData, ok := cached.(map[string]interface{})
	if !ok {
		return nil, false
	}

	userID, ok := asInt(sessionData["user_id"])
	if !ok {
		return nil, false
	}
	name, _ := sessionData["name"].(string)
	email, _ := sessionData["email"].(string)

	return &Identity{UserID: userID, Name: name, Email: email}, true
}

// Revoke clears the request's session. Subsequent Current calls with
// the same cookie resolve to anonymous.
func (m *Manager) Revoke(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(CookieName); err == nil {
		m.cache.Delete(keyPrefix + cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// asInt tolerates both backends: the memory cache returns the stored
// int, the redis backend round-trips through JSON and yields float64.
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
