// Package session owns the per-browser identity: which user is signed in
// and under which id. It reads and writes the session's kv storage keys.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"arty-web/internal/observability"
	"arty-web/internal/platform/backend"
	"arty-web/internal/platform/kv"
)

// Storage keys
const (
	KeyUserID     = "userId"
	KeyUserEmail  = "userEmail"
	KeyIsLoggedIn = "isLoggedIn"
)

var ErrEmailRequired = errors.New("email is required")

// Session is the identity stored for one browser
type Session struct {
	ID       string
	UserID   backend.UserID
	Email    string
	LoggedIn bool
}

// IDResolver maps an email to the backend user id
type IDResolver interface {
	UserID(ctx context.Context, email string) (backend.UserID, error)
}

// Manager loads and mutates sessions
type Manager struct {
	store    kv.Store
	resolver IDResolver
	logger   *observability.Logger
}

func NewManager(store kv.Store, resolver IDResolver, logger *observability.Logger) *Manager {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Manager{store: store, resolver: resolver, logger: logger.Component("session")}
}

// NewID returns a fresh opaque session id
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like one NewID produced
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Load reads the session's keys. Missing keys leave the matching field empty.
func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	s := &Session{ID: id}

	userID, err := m.get(ctx, id, KeyUserID)
	if err != nil {
		return nil, err
	}
	s.UserID = backend.UserID(userID)

	if s.Email, err = m.get(ctx, id, KeyUserEmail); err != nil {
		return nil, err
	}

	loggedIn, err := m.get(ctx, id, KeyIsLoggedIn)
	if err != nil {
		return nil, err
	}
	s.LoggedIn = loggedIn == "true"

	return s, nil
}

func (m *Manager) get(ctx context.Context, id, key string) (string, error) {
	v, err := m.store.Get(ctx, id, key)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, nil
}

// Login resolves the user id for email and stores the three session keys
func (m *Manager) Login(ctx context.Context, id, email string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	userID, err := m.resolver.UserID(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user id: %w", err)
	}

	writes := []struct{ key, value string }{
		{KeyUserID, userID.String()},
		{KeyUserEmail, email},
		{KeyIsLoggedIn, "true"},
	}
	for _, w := range writes {
		if err := m.store.Set(ctx, id, w.key, w.value); err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", w.key, err)
		}
	}

	m.logger.Info(ctx).Str("session_id", id).Str("user_id", userID.String()).Msg("User logged in")

	return &Session{ID: id, UserID: userID, Email: email, LoggedIn: true}, nil
}

// Logout clears every session key
func (m *Manager) Logout(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id, KeyIsLoggedIn, KeyUserEmail, KeyUserID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	m.logger.Info(ctx).Str("session_id", id).Msg("User logged out")
	return nil
}
