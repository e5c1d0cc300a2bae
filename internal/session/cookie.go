package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	SessionName = "driveup-session"
	UserKey     = "user"
	StateKey    = "oauth_state"
)

var ErrStateMismatch = errors.New("oauth state mismatch")

type Manager struct {
	store sessions.Store
}

type User struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	HD      string `json:"hd"`
}

func NewManager(sessionSecret string, secure bool) *Manager {
	store := sessions.NewCookieStore([]byte(sessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   12 * 60 * 60, // 12 hours
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode, // the OAuth callback is a cross-site redirect
	}

	return &Manager{
		store: store,
	}
}

func (m *Manager) SetUser(w http.ResponseWriter, r *http.Request, user *User) error {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return err
	}

	userBytes, err := json.Marshal(user)
	if err != nil {
		return err
	}

	session.Values[UserKey] = string(userBytes)
	delete(session.Values, StateKey)
	return session.Save(r, w)
}

func (m *Manager) GetUser(r *http.Request) (*User, error) {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return nil, err
	}

	userStr, ok := session.Values[UserKey].(string)
	if !ok || userStr == "" {
		return nil, nil
	}

	var user User
	if err := json.Unmarshal([]byte(userStr), &user); err != nil {
		return nil, err
	}

	return &user, nil
}

// SetState remembers the OAuth state parameter for the callback.
func (m *Manager) SetState(w http.ResponseWriter, r *http.Request, state string) error {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return err
	}

	session.Values[StateKey] = state
	return session.Save(r, w)
}

// CheckState compares the callback state with the one stored at login.
func (m *Manager) CheckState(r *http.Request, state string) error {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return err
	}

	stored, ok := session.Values[StateKey].(string)
	if !ok || stored == "" || stored != state {
		return ErrStateMismatch
	}
	return nil
}

func (m *Manager) ClearSession(w http.ResponseWriter, r *http.Request) error {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return err
	}

	session.Values[UserKey] = ""
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
