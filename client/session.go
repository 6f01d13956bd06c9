package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"civicreport-be/models"
)

// SessionState is where a Session is in its lifecycle.
type SessionState string

const (
	SessionAnonymous     SessionState = "anonymous"
	SessionAuthenticated SessionState = "authenticated"
	SessionCleared       SessionState = "cleared"
)

// Session holds the caller's credentials. It starts anonymous, becomes
// authenticated after login and is cleared on logout. It is safe for
// concurrent use.
type Session struct {
	mu    sync.RWMutex
	state SessionState
	token string
	user  *models.User
}

func NewSession() *Session {
	return &Session{state: SessionAnonymous}
}

// Authenticate stores the token and profile returned by login or register.
func (s *Session) Authenticate(token string, user models.User) error {
	if token == "" {
		return errors.New("session: empty token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SessionAuthenticated
	s.token = token
	s.user = &user
	return nil
}

// Clear drops the credentials.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SessionCleared
	s.token = ""
	s.user = nil
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Token is empty unless the session is authenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

type sessionFile struct {
	State SessionState `json:"state"`
	Token string       `json:"token,omitempty"`
	User  *models.User `json:"user,omitempty"`
}

// Save writes the session to path with owner-only permissions.
func (s *Session) Save(path string) error {
	s.mu.RLock()
	data, err := json.MarshalIndent(sessionFile{State: s.state, Token: s.token, User: s.user}, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadSession reads a session saved by Save. A missing file yields an
// anonymous session.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewSession(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	var f sessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", path, err)
	}
	s := NewSession()
	switch f.State {
	case SessionAuthenticated:
		if f.Token == "" || f.User == nil {
			return nil, fmt.Errorf("session: %s: authenticated session without credentials", path)
		}
		s.state, s.token, s.user = f.State, f.Token, f.User
	case SessionCleared:
		s.state = SessionCleared
	}
	return s, nil
}

// DefaultSessionPath is ~/.civicctl/session.json.
func DefaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".civicctl", "session.json"), nil
}
