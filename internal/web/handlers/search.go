package handlers

import (
	"context"
	"net/http"

	"arty-web/internal/screens"
	"arty-web/internal/screens/search"
)

// searchScreen returns the session's search screen, mounting one if the session has none yet
func (h *Handler) searchScreen(ctx context.Context, id string) *search.Screen {
	sc, created := h.searches.Get(id, h.newSearch)
	if created {
		_ = sc.Mount(ctx) //nolint:errcheck // Logged by the screen
	}
	return sc
}

func (h *Handler) renderSearch(w http.ResponseWriter, r *http.Request, sc *search.Screen, alerts *screens.Alerts) {
	page := searchPage{State: sc.Snapshot()}
	if alerts != nil {
		page.Alerts = alerts.Messages()
	}
	h.render(w, r, "search.html", page)
}

// searchPageHandler serves a freshly mounted search page
func (h *Handler) searchPageHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := sessionID(ctx)

	sc := h.newSearch()
	h.searches.Replace(id, sc)
	_ = sc.Mount(ctx) //nolint:errcheck // Logged by the screen

	h.renderSearch(w, r, sc, nil)
}

func (h *Handler) searchSubmitHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc := h.searchScreen(ctx, sessionID(ctx))

	// Backend failures keep the previous images on screen
	_ = sc.HandleSubmit(ctx, r.PostFormValue("query")) //nolint:errcheck // Logged by the screen

	h.renderSearch(w, r, sc, nil)
}

func (h *Handler) loadMoreHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc := h.searchScreen(ctx, sessionID(ctx))
	sc.LoadMore()
	h.renderSearch(w, r, sc, nil)
}
