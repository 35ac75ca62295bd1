// Package search is the state container behind the search page
package search

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strings"
	"sync"

	"arty-web/internal/observability"
	"arty-web/internal/platform/storage"
)

// PageSize is both the initial visible count and the load-more step
const PageSize = 9

// InvalidFileMessage is alerted when a file other than png or jpeg is chosen
const InvalidFileMessage = "Please select a valid .png or .jpg file."

var (
	ErrInvalidFileType = errors.New("file type is not accepted")
	// ErrStale is returned by a fetch whose result was discarded because a newer fetch started
	ErrStale = errors.New("superseded by a newer request")
)

// DefaultAllowedTypes are accepted when Deps.AllowedTypes is empty
var DefaultAllowedTypes = []string{"image/png", "image/jpeg"}

// ImageSource is the backend side of the search page
type ImageSource interface {
	Listing(ctx context.Context) ([]string, error)
	Search(ctx context.Context, query string) ([]string, error)
}

// Alerter shows a blocking message to the user
type Alerter interface {
	Alert(message string)
}

// File is an uploaded file as the browser described it
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Deps are the collaborators of a Screen
type Deps struct {
	Source    ImageSource
	Previews  storage.PreviewStore
	Processor *storage.PreviewProcessor
	// AllowedTypes are the media types a preview may have
	AllowedTypes []string
	// PreviewURL turns a stored preview id into a browser URL
	PreviewURL func(id string) string
	Logger     *observability.Logger
}

// State is a snapshot of the search page
type State struct {
	Images       []string
	VisibleCount int
	Query        string
	PreviewURL   string
	Loading      bool
}

// Visible returns the rendered prefix of Images
func (s State) Visible() []string {
	return s.Images[:min(s.VisibleCount, len(s.Images))]
}

// HasMore reports whether load-more should be offered
func (s State) HasMore() bool {
	return s.VisibleCount < len(s.Images)
}

// Screen holds one session's search page state
type Screen struct {
	deps    Deps
	allowed map[string]bool

	mu         sync.Mutex
	state      State
	previewID  string
	mounted    bool
	generation uint64
	cancel     context.CancelFunc
}

func New(deps Deps) *Screen {
	if deps.Logger == nil {
		deps.Logger = observability.NopLogger()
	}
	deps.Logger = deps.Logger.Component("search")
	if deps.PreviewURL == nil {
		deps.PreviewURL = func(id string) string { return "/previews/" + id }
	}

	types := deps.AllowedTypes
	if len(types) == 0 {
		types = DefaultAllowedTypes
	}
	allowed := make(map[string]bool, len(types))
	for _, t := range types {
		allowed[strings.ToLower(t)] = true
	}

	return &Screen{
		deps:    deps,
		allowed: allowed,
		state:   State{Images: []string{}, VisibleCount: PageSize},
	}
}

// Snapshot returns a copy of the current state
func (s *Screen) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.Images = append([]string(nil), s.state.Images...)
	return st
}

// Mount fetches the listing the first time the screen is rendered
func (s *Screen) Mount(ctx context.Context) error {
	s.mu.Lock()
	if s.mounted {
		s.mu.Unlock()
		return nil
	}
	s.mounted = true
	s.mu.Unlock()

	return s.FetchImages(ctx)
}

// FetchImages replaces Images with the backend listing
func (s *Screen) FetchImages(ctx context.Context) error {
	return s.fetch(ctx, "listing", s.deps.Source.Listing)
}

// HandleSubmit records query and replaces Images with the search results.
// An empty query is sent as is.
func (s *Screen) HandleSubmit(ctx context.Context, query string) error {
	s.mu.Lock()
	s.state.Query = query
	s.mu.Unlock()

	return s.fetch(ctx, "search", func(ctx context.Context) ([]string, error) {
		return s.deps.Source.Search(ctx, query)
	})
}

// fetch runs call under a fresh generation. Only the latest generation may
// touch Images or clear Loading; older in-flight calls are cancelled.
func (s *Screen) fetch(ctx context.Context, op string, call func(context.Context) ([]string, error)) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state.Loading = true
	s.mu.Unlock()

	images, err := call(fetchCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	cancel()

	if gen != s.generation {
		s.deps.Logger.Debug(ctx).Str("op", op).Uint64("generation", gen).Msg("Discarding stale response")
		return ErrStale
	}

	s.cancel = nil
	s.state.Loading = false

	if err != nil {
		s.deps.Logger.Error(ctx).Err(err).Str("op", op).Msg("Error fetching images")
		return err
	}

	if images == nil {
		images = []string{}
	}
	s.state.Images = images
	return nil
}

// LoadMore reveals the next page. It does nothing once everything is visible.
func (s *Screen) LoadMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.HasMore() {
		return false
	}
	s.state.VisibleCount += PageSize
	return true
}

// HandleFileChange previews an uploaded file of an allowed type. Anything else
// raises exactly one alert and leaves the state as it was. Nothing goes to the backend.
func (s *Screen) HandleFileChange(ctx context.Context, file File, alerter Alerter) error {
	contentType := fileType(file)
	if !s.allowed[contentType] {
		alerter.Alert(InvalidFileMessage)
		s.deps.Logger.Warn(ctx).Str("file", file.Name).Str("content_type", contentType).Msg("Rejected preview file")
		return ErrInvalidFileType
	}

	// Stored under the decoded format when decoding works, the declared type otherwise
	data, storedType := file.Data, contentType
	if s.deps.Processor != nil {
		fitted, fittedType, err := s.deps.Processor.Fit(data)
		if err != nil {
			s.deps.Logger.Warn(ctx).Err(err).Str("file", file.Name).Msg("Keeping preview at original size")
		} else {
			data, storedType = fitted, fittedType
		}
	}

	id, err := s.deps.Previews.Put(ctx, storedType, data)
	if err != nil {
		s.deps.Logger.Error(ctx).Err(err).Str("file", file.Name).Msg("Error storing preview")
		return err
	}

	s.mu.Lock()
	old := s.previewID
	s.previewID = id
	s.state.PreviewURL = s.deps.PreviewURL(id)
	s.mu.Unlock()

	if old != "" {
		s.release(ctx, old)
	}
	return nil
}

// fileType trusts the declared type and sniffs the bytes only when none was declared
func fileType(file File) string {
	declared := file.ContentType
	if declared == "" {
		declared = http.DetectContentType(file.Data)
	}
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return declared
	}
	return mediaType
}

func (s *Screen) release(ctx context.Context, id string) {
	if err := s.deps.Previews.Release(ctx, id); err != nil {
		s.deps.Logger.Warn(ctx).Err(err).Str("preview_id", id).Msg("Error releasing preview")
	}
}

// Close cancels any in-flight fetch and releases the preview
func (s *Screen) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	id := s.previewID
	s.previewID = ""
	s.state.PreviewURL = ""
	s.mu.Unlock()

	if id != "" {
		s.release(context.Background(), id)
	}
}
