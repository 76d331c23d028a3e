package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "letivo_session"

// Session is one logged-in browser. The current screen lives server-side so
// navigation can be validated against the state machine in screen.go.
type Session struct {
	Token   string
	Email   string
	Screen  Screen
	Expires time.Time
}

// SessionStore keeps sessions in memory. Sessions do not survive a restart;
// the browser simply logs in again.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
}

// NewSessionStore builds a store whose sessions live for ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Create opens a session for email, already on the dashboard.
func (st *SessionStore) Create(email string) *Session {
	s := &Session{
		Token:   uuid.NewString(),
		Email:   email,
		Screen:  ScreenDashboard,
		Expires: time.Now().Add(st.ttl),
	}

	st.mu.Lock()
	st.sessions[s.Token] = s
	st.purgeLocked()
	st.mu.Unlock()
	return s
}

// Get returns the live session for token, extending its lifetime.
func (st *SessionStore) Get(token string) (*Session, bool) {
	if token == "" {
		return nil, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[token]
	if !ok {
		return nil, false
	}
	if time.Now().After(s.Expires) {
		delete(st.sessions, token)
		return nil, false
	}
	s.Expires = time.Now().Add(st.ttl)
	return s, true
}

// SetScreen moves the session to a new screen.
func (st *SessionStore) SetScreen(token string, screen Screen) {
	st.mu.Lock()
	if s, ok := st.sessions[token]; ok {
		s.Screen = screen
	}
	st.mu.Unlock()
}

// Delete ends the session. Unknown tokens are a no-op.
func (st *SessionStore) Delete(token string) {
	st.mu.Lock()
	delete(st.sessions, token)
	st.mu.Unlock()
}

func (st *SessionStore) purgeLocked() {
	now := time.Now()
	for t, s := range st.sessions {
		if now.After(s.Expires) {
			delete(st.sessions, t)
		}
	}
}

// FromRequest resolves the session named by the request's cookie.
func (st *SessionStore) FromRequest(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}
	return st.Get(c.Value)
}

func setSessionCookie(w http.ResponseWriter, s *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.Expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
