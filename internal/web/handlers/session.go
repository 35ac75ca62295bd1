package handlers

import (
	"context"
	"net/http"

	"arty-web/internal/session"
)

type sessionKey struct{}

// sessionMiddleware makes sure every browser carries a valid session cookie
func (h *Handler) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if cookie, err := r.Cookie(h.config.Session.CookieName); err == nil && session.ValidID(cookie.Value) {
			id = cookie.Value
		}
		if id == "" {
			id = session.NewID()
		}

		// Refreshed on every request so the cookie expires with the server-side state
		http.SetCookie(w, &http.Cookie{
			Name:     h.config.Session.CookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(h.config.Session.TTL.Seconds()),
			HttpOnly: true,
			Secure:   h.config.Session.Secure,
			SameSite: http.SameSiteLaxMode,
		})

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

// sessionID returns the id sessionMiddleware attached to ctx
func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
