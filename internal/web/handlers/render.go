package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"arty-web/internal/screens/search"
	"arty-web/internal/screens/user"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("pages").Funcs(template.FuncMap{
	"add1": func(i int) int { return i + 1 },
}).ParseFS(templateFS, "templates/*.html"))

type searchPage struct {
	State  search.State
	Alerts []string
}

type userPage struct {
	State user.State
}

// render executes a page into a buffer first so a template failure still yields a clean 500
func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := h.pages.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error(r.Context()).Err(err).Str("template", name).Msg("Failed to render page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w) //nolint:errcheck // Client went away
}
