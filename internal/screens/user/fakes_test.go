package user

import (
	"context"
	"errors"
	"sync"

	"arty-web/internal/platform/backend"
	"arty-web/internal/session"
)

type call struct {
	op   string
	id   backend.UserID
	path string
}

type fakeBackend struct {
	mu sync.Mutex

	ids       map[string]backend.UserID
	emails    map[backend.UserID]string
	saved     map[backend.UserID][]string
	generated map[backend.UserID][]string

	failLookup    error
	failSaved     error
	failGenerated error
	failProfile   error
	failMutations error

	calls []call
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		ids:       map[string]backend.UserID{},
		emails:    map[backend.UserID]string{},
		saved:     map[backend.UserID][]string{},
		generated: map[backend.UserID][]string{},
	}
}

func (f *fakeBackend) record(op string, id backend.UserID, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op, id, path})
}

func (f *fakeBackend) callsFor(prefix string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if len(c.op) >= len(prefix) && c.op[:len(prefix)] == prefix {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeBackend) UserID(ctx context.Context, email string) (backend.UserID, error) {
	f.record("lookup", "", email)
	if f.failLookup != nil {
		return "", f.failLookup
	}
	id, ok := f.ids[email]
	if !ok {
		return "", &backend.StatusError{Method: "POST", Path: "/backend/users/get_id", StatusCode: 404}
	}
	return id, nil
}

func (f *fakeBackend) User(ctx context.Context, id backend.UserID) (*backend.User, error) {
	f.record("profile", id, "")
	if f.failProfile != nil {
		return nil, f.failProfile
	}
	return &backend.User{ID: id, Email: f.emails[id]}, nil
}

func (f *fakeBackend) SavedImages(ctx context.Context, id backend.UserID) ([]string, error) {
	f.record("get saved", id, "")
	if f.failSaved != nil {
		return nil, f.failSaved
	}
	return append([]string{}, f.saved[id]...), nil
}

func (f *fakeBackend) GeneratedImages(ctx context.Context, id backend.UserID) ([]string, error) {
	f.record("get generated", id, "")
	if f.failGenerated != nil {
		return nil, f.failGenerated
	}
	return append([]string{}, f.generated[id]...), nil
}

func (f *fakeBackend) InsertSavedImage(ctx context.Context, id backend.UserID, path string) error {
	f.record("insert saved", id, path)
	return f.failMutations
}

func (f *fakeBackend) DeleteSavedImage(ctx context.Context, id backend.UserID, path string) error {
	f.record("delete saved", id, path)
	return f.failMutations
}

func (f *fakeBackend) InsertGeneratedImage(ctx context.Context, id backend.UserID, path string) error {
	f.record("insert generated", id, path)
	return f.failMutations
}

func (f *fakeBackend) DeleteGeneratedImage(ctx context.Context, id backend.UserID, path string) error {
	f.record("delete generated", id, path)
	return f.failMutations
}

type fakeSessions struct {
	sessions  map[string]*session.Session
	loggedOut []string
	loadErr   error
}

func (f *fakeSessions) Load(ctx context.Context, id string) (*session.Session, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if s, ok := f.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return &session.Session{ID: id}, nil
}

func (f *fakeSessions) Logout(ctx context.Context, id string) error {
	f.loggedOut = append(f.loggedOut, id)
	delete(f.sessions, id)
	return nil
}

var errBoom = errors.New("backend unreachable")
