// Package user is the state container behind the user page
package user

import (
	"context"
	"errors"
	"strings"
	"sync"

	"arty-web/internal/observability"
	"arty-web/internal/platform/backend"
	"arty-web/internal/session"
)

// MaxVisibleSaved caps the saved grid
const MaxVisibleSaved = 999

var (
	// ErrNoUserID is returned when a save needs a user id and the session has none
	ErrNoUserID = errors.New("user id is not available")
	// ErrNoEmail is returned when identity lookup has no stored email to work with
	ErrNoEmail = errors.New("no email found in session")
	ErrStale   = errors.New("superseded by a newer request")
)

// Backend is the subset of the backend API the user page calls
type Backend interface {
	UserID(ctx context.Context, email string) (backend.UserID, error)
	User(ctx context.Context, id backend.UserID) (*backend.User, error)
	SavedImages(ctx context.Context, id backend.UserID) ([]string, error)
	GeneratedImages(ctx context.Context, id backend.UserID) ([]string, error)
	InsertSavedImage(ctx context.Context, id backend.UserID, path string) error
	DeleteSavedImage(ctx context.Context, id backend.UserID, path string) error
	InsertGeneratedImage(ctx context.Context, id backend.UserID, path string) error
	DeleteGeneratedImage(ctx context.Context, id backend.UserID, path string) error
}

// Sessions loads and clears the browser session
type Sessions interface {
	Load(ctx context.Context, id string) (*session.Session, error)
	Logout(ctx context.Context, id string) error
}

// Deps are the collaborators of a Screen
type Deps struct {
	Backend  Backend
	Sessions Sessions
	// RollbackOnFailure reverts an optimistic toggle when the backend call fails
	RollbackOnFailure bool
	Logger            *observability.Logger
}

// State is a snapshot of the user page
type State struct {
	// UserID is the id stored in the session; saves and deletes use it
	UserID backend.UserID
	// LookupID is the id the backend returned for the stored email; hydration uses it
	LookupID             backend.UserID
	Email                string
	SavedImages          []string
	GeneratedImages      []string
	SavedGeneratedImages []string

	saved          map[string]bool
	savedGenerated map[string]bool
}

// Username is the greeting name derived from Email
func (s State) Username() string { return UsernameFromEmail(s.Email) }

func (s State) IsSaved(url string) bool { return s.saved[url] }

func (s State) IsGeneratedSaved(url string) bool { return s.savedGenerated[url] }

// VisibleSaved is the rendered part of the saved grid
func (s State) VisibleSaved() []string {
	return s.SavedImages[:min(len(s.SavedImages), MaxVisibleSaved)]
}

// ShowSaved and ShowWorks decide each grid on its own contents
func (s State) ShowSaved() bool { return len(s.SavedImages) > 0 }

func (s State) ShowWorks() bool { return len(s.GeneratedImages) > 0 }

// UsernameFromEmail returns the part before the first "@", or the whole string
func UsernameFromEmail(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}

// Screen holds one session's user page state
type Screen struct {
	sessionID string
	deps      Deps

	mu              sync.Mutex
	storedID        backend.UserID
	lookupID        backend.UserID
	email           string
	saved           *orderedSet
	generated       []string
	savedGenerated  *orderedSet
	hydratedFor     backend.UserID
	generation      uint64
	cancelHydration context.CancelFunc
}

func New(sessionID string, deps Deps) *Screen {
	if deps.Logger == nil {
		deps.Logger = observability.NopLogger()
	}
	deps.Logger = deps.Logger.Component("user")

	return &Screen{
		sessionID:      sessionID,
		deps:           deps,
		saved:          newOrderedSet(),
		generated:      []string{},
		savedGenerated: newOrderedSet(),
	}
}

// Snapshot returns a copy of the current state
func (s *Screen) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		UserID:               s.storedID,
		LookupID:             s.lookupID,
		Email:                s.email,
		SavedImages:          s.saved.Items(),
		GeneratedImages:      append([]string{}, s.generated...),
		SavedGeneratedImages: s.savedGenerated.Items(),
		saved:                make(map[string]bool, len(s.saved.items)),
		savedGenerated:       make(map[string]bool, len(s.savedGenerated.items)),
	}
	for _, u := range st.SavedImages {
		st.saved[u] = true
	}
	for _, u := range st.SavedGeneratedImages {
		st.savedGenerated[u] = true
	}
	return st
}

// Mount runs identity resolution, which hydrates when the looked-up id is new
func (s *Screen) Mount(ctx context.Context) error {
	return s.ResolveIdentity(ctx)
}

// ResolveIdentity reads the stored user id and, separately, looks the stored
// email up on the backend. The two ids are not reconciled; a mismatch is only logged.
func (s *Screen) ResolveIdentity(ctx context.Context) error {
	sess, err := s.deps.Sessions.Load(ctx, s.sessionID)
	if err != nil {
		s.deps.Logger.Error(ctx).Err(err).Msg("Error loading session")
		return err
	}

	s.mu.Lock()
	s.storedID = sess.UserID
	s.mu.Unlock()

	if sess.Email == "" {
		s.deps.Logger.Error(ctx).Msg("No email found in session")
		return ErrNoEmail
	}

	lookupID, err := s.deps.Backend.UserID(ctx, sess.Email)
	if err != nil {
		s.deps.Logger.Error(ctx).Err(err).Msg("Failed to fetch user ID")
		return err
	}

	if !sess.UserID.IsZero() && sess.UserID != lookupID {
		s.deps.Logger.Warn(ctx).
			Str("stored_id", sess.UserID.String()).
			Str("lookup_id", lookupID.String()).
			Msg("Stored user id differs from email lookup")
	}

	s.mu.Lock()
	s.lookupID = lookupID
	changed := lookupID != s.hydratedFor
	s.mu.Unlock()

	if !changed {
		return nil
	}
	return s.Hydrate(ctx, lookupID)
}

// Hydrate loads saved images, generated images and the profile for id.
// Each part fails on its own and leaves its slice of state untouched.
func (s *Screen) Hydrate(ctx context.Context, id backend.UserID) error {
	s.mu.Lock()
	if s.cancelHydration != nil {
		s.cancelHydration()
	}
	s.generation++
	gen := s.generation
	hctx, cancel := context.WithCancel(ctx)
	s.cancelHydration = cancel
	s.hydratedFor = id
	s.mu.Unlock()
	defer cancel()

	var (
		wg   sync.WaitGroup
		errs = make([]error, 3)
	)

	wg.Go(func() {
		paths, err := s.deps.Backend.SavedImages(hctx, id)
		errs[0] = s.apply(hctx, gen, "saved images", err, func() {
			s.saved = newOrderedSet(paths...)
		})
	})
	wg.Go(func() {
		urls, err := s.deps.Backend.GeneratedImages(hctx, id)
		errs[1] = s.apply(hctx, gen, "generated images", err, func() {
			s.generated = urls
		})
	})
	wg.Go(func() {
		profile, err := s.deps.Backend.User(hctx, id)
		errs[2] = s.apply(hctx, gen, "user data", err, func() {
			s.email = profile.Email
		})
	})
	wg.Wait()

	s.mu.Lock()
	if gen == s.generation {
		s.cancelHydration = nil
	}
	s.mu.Unlock()

	return errors.Join(errs...)
}

// apply commits one hydration result if its generation is still current
func (s *Screen) apply(ctx context.Context, gen uint64, what string, err error, commit func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return ErrStale
	}
	if err != nil {
		s.deps.Logger.Error(ctx).Err(err).Str("part", what).Msg("Error fetching user page data")
		return err
	}
	commit()
	return nil
}

type toggleTarget struct {
	kind   string
	set    func(*Screen) *orderedSet
	insert func(ctx context.Context, id backend.UserID, path string) error
	remove func(ctx context.Context, id backend.UserID, path string) error
}

// ToggleSaveImage saves url when unsaved and unsaves it otherwise
func (s *Screen) ToggleSaveImage(ctx context.Context, url string) error {
	return s.toggle(ctx, url, toggleTarget{
		kind:   "image",
		set:    func(s *Screen) *orderedSet { return s.saved },
		insert: s.deps.Backend.InsertSavedImage,
		remove: s.deps.Backend.DeleteSavedImage,
	})
}

// ToggleSaveGeneratedImage is ToggleSaveImage for the generated-image set
func (s *Screen) ToggleSaveGeneratedImage(ctx context.Context, url string) error {
	return s.toggle(ctx, url, toggleTarget{
		kind:   "generated image",
		set:    func(s *Screen) *orderedSet { return s.savedGenerated },
		insert: s.deps.Backend.InsertGeneratedImage,
		remove: s.deps.Backend.DeleteGeneratedImage,
	})
}

// toggle flips membership before the backend answers. A save without a user
// id changes nothing; an unsave without one still drops the url locally.
func (s *Screen) toggle(ctx context.Context, url string, target toggleTarget) error {
	s.mu.Lock()
	id := s.storedID
	set := target.set(s)
	wasSaved := set.Has(url)

	if !wasSaved && id.IsZero() {
		s.mu.Unlock()
		s.deps.Logger.Error(ctx).Str("kind", target.kind).Msg("User ID is not available. Cannot save image.")
		return ErrNoUserID
	}

	if wasSaved {
		set.Remove(url)
	} else {
		set.Add(url)
	}
	s.mu.Unlock()

	var err error
	switch {
	case wasSaved && id.IsZero():
		s.deps.Logger.Error(ctx).Str("kind", target.kind).Msg("User ID is not available. Cannot delete image.")
		return ErrNoUserID
	case wasSaved:
		err = target.remove(ctx, id, url)
	default:
		err = target.insert(ctx, id, url)
	}

	if err == nil {
		return nil
	}

	s.deps.Logger.Error(ctx).Err(err).Str("kind", target.kind).Bool("unsave", wasSaved).Msg("Error updating saved state")

	if s.deps.RollbackOnFailure {
		s.mu.Lock()
		set = target.set(s)
		switch {
		case wasSaved && !set.Has(url):
			set.Add(url)
		case !wasSaved && set.Has(url):
			set.Remove(url)
		}
		s.mu.Unlock()
	}
	return err
}

// HandleLogout clears the session keys. The caller sends the browser to "/".
func (s *Screen) HandleLogout(ctx context.Context) error {
	if err := s.deps.Sessions.Logout(ctx, s.sessionID); err != nil {
		s.deps.Logger.Error(ctx).Err(err).Msg("Error clearing session")
		return err
	}
	return nil
}

// Close cancels an in-flight hydration
func (s *Screen) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelHydration != nil {
		s.cancelHydration()
		s.cancelHydration = nil
	}
	s.generation++
}
