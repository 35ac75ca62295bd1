package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arty-web/internal/config"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *[]recordedRequest) {
	t.Helper()

	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			assert.NoError(t, json.Unmarshal(b, &rec.Body))
		}
		requests = append(requests, rec)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := New(config.BackendConfig{
		BaseURL:   srv.URL,
		PublicURL: "http://cdn.example",
		Timeout:   5 * time.Second,
	}, nil)
	require.NoError(t, err)
	return c, &requests
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func TestListing(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `["u1","u2","u3"]`)
	})

	urls, err := c.Listing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2", "u3"}, urls)
	require.Len(t, *reqs, 1)
	assert.Equal(t, http.MethodGet, (*reqs)[0].Method)
	assert.Equal(t, "/", (*reqs)[0].Path)
}

func TestListingErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			check: func(t *testing.T, err error) {
				assert.True(t, IsStatus(err, http.StatusInternalServerError))
			},
		},
		{
			name: "object instead of array",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, `{"a":"u1"}`)
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrDecode)
			},
		},
		{
			name: "null listing",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, `null`)
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrDecode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.handler)
			_, err := c.Listing(context.Background())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestListingTransportError(t *testing.T) {
	c, err := New(config.BackendConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, nil)
	require.NoError(t, err)

	_, err = c.Listing(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDecode)
	var se *StatusError
	assert.False(t, errors.As(err, &se))
}

func TestSearch(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"a":"u1","b":"u2"}`)
	})

	urls, err := c.Search(context.Background(), "cats")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, urls)

	require.Len(t, *reqs, 1)
	assert.Equal(t, http.MethodPost, (*reqs)[0].Method)
	assert.Equal(t, "/search", (*reqs)[0].Path)
	assert.Equal(t, map[string]any{"query": "cats"}, (*reqs)[0].Body)
}

func TestSearchEmptyQueryIsSent(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{}`)
	})

	urls, err := c.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, urls)
	assert.Equal(t, map[string]any{"query": ""}, (*reqs)[0].Body)
}

func TestSavedImages(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[{"sd_image_path":"p1","sd_image_id":1},{"sd_image_path":"p2"}]`)
	})

	paths, err := c.SavedImages(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, paths)
	assert.Equal(t, "/backend/saved_image/get/user", (*reqs)[0].Path)
	assert.Equal(t, map[string]any{"user_id": float64(7)}, (*reqs)[0].Body)

	_, err = c.SavedImages(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestGeneratedImages(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `["g1.png","g2.png"]`)
	})

	urls, err := c.GeneratedImages(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"http://cdn.example/static/generations/g1.png",
		"http://cdn.example/static/generations/g2.png",
	}, urls)
	assert.Equal(t, "/backend/generate_image/get/user", (*reqs)[0].Path)
}

func TestMutations(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	require.NoError(t, c.InsertSavedImage(ctx, "7", "u1"))
	require.NoError(t, c.DeleteSavedImage(ctx, "7", "u1"))
	require.NoError(t, c.InsertGeneratedImage(ctx, "7", "g1"))
	require.NoError(t, c.DeleteGeneratedImage(ctx, "7", "g1"))

	want := []recordedRequest{
		{http.MethodPost, "/backend/saved_image/insert", map[string]any{"user_id": float64(7), "sd_image_path": "u1"}},
		{http.MethodDelete, "/backend/saved_image/delete", map[string]any{"user_id": float64(7), "sd_image_path": "u1"}},
		{http.MethodPost, "/backend/generate_image/insert", map[string]any{"user_id": float64(7), "g_image_path": "g1"}},
		{http.MethodDelete, "/backend/generate_image/delete", map[string]any{"user_id": float64(7), "g_image_path": "g1"}},
	}
	assert.Equal(t, want, *reqs)

	assert.ErrorIs(t, c.InsertSavedImage(ctx, "", "u1"), ErrMissingUserID)
	assert.ErrorIs(t, c.InsertGeneratedImage(ctx, "", "g1"), ErrMissingUserID)
	assert.Len(t, *reqs, 4, "guarded inserts make no request")
}

func TestUserLookup(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/backend/users/get_id":
			writeJSON(w, `{"user_id":12}`)
		case "/backend/users/get":
			writeJSON(w, `{"user_id":12,"email":"ada@example.com"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	id, err := c.UserID(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, UserID("12"), id)
	assert.Equal(t, map[string]any{"email": "ada@example.com"}, (*reqs)[0].Body)

	user, err := c.User(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, map[string]any{"user_id": float64(12)}, (*reqs)[1].Body)
}

func TestUserIDMissingInResponse(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{}`)
	})

	_, err := c.UserID(context.Background(), "ada@example.com")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestContextCancellation(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Listing(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
