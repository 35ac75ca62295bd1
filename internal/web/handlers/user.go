package handlers

import (
	"context"
	"errors"
	"net/http"

	"arty-web/internal/screens/user"
	"arty-web/internal/session"
)

func (h *Handler) userScreen(ctx context.Context, id string) *user.Screen {
	sc, created := h.users.Get(id, func() *user.Screen { return h.newUser(id) })
	if created {
		_ = sc.Mount(ctx) //nolint:errcheck // Logged by the screen
	}
	return sc
}

func (h *Handler) renderUser(w http.ResponseWriter, r *http.Request, sc *user.Screen) {
	h.render(w, r, "user.html", userPage{State: sc.Snapshot()})
}

// userPageHandler mounts a fresh user page. It renders even when the session is empty.
func (h *Handler) userPageHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := sessionID(ctx)

	sc := h.newUser(id)
	h.users.Replace(id, sc)
	_ = sc.Mount(ctx) //nolint:errcheck // Logged by the screen

	h.renderUser(w, r, sc)
}

func (h *Handler) toggleSavedHandler(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, (*user.Screen).ToggleSaveImage)
}

func (h *Handler) toggleGeneratedHandler(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, (*user.Screen).ToggleSaveGeneratedImage)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, flip func(*user.Screen, context.Context, string) error) {
	ctx := r.Context()

	url := r.PostFormValue("url")
	if url == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	sc := h.userScreen(ctx, sessionID(ctx))
	// The optimistic toggle stands even when the backend call fails
	_ = flip(sc, ctx, url) //nolint:errcheck // Logged by the screen

	h.renderUser(w, r, sc)
}

// loginHandler signs the session in as the user owning the posted email
func (h *Handler) loginHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := sessionID(ctx)

	if _, err := h.sessions.Login(ctx, id, r.PostFormValue("email")); err != nil {
		if errors.Is(err, session.ErrEmailRequired) {
			http.Error(w, "email is required", http.StatusBadRequest)
			return
		}
		h.logger.Error(ctx).Err(err).Msg("Login failed")
		http.Error(w, "Login failed", http.StatusBadGateway)
		return
	}

	h.users.Remove(id)
	http.Redirect(w, r, "/user", http.StatusSeeOther)
}

func (h *Handler) logoutHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := sessionID(ctx)

	sc, _ := h.users.Get(id, func() *user.Screen { return h.newUser(id) })
	if err := sc.HandleLogout(ctx); err != nil {
		http.Error(w, "Logout failed", http.StatusInternalServerError)
		return
	}

	h.users.Remove(id)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
