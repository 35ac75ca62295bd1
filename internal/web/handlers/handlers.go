package handlers

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"arty-web/internal/config"
	"arty-web/internal/observability"
	"arty-web/internal/platform/storage"
	"arty-web/internal/screens"
	"arty-web/internal/screens/search"
	"arty-web/internal/screens/user"
	"arty-web/internal/services"
	"arty-web/internal/session"
	"arty-web/internal/web/middleware"
)

// Deps are the collaborators the handlers need
type Deps struct {
	Config        *config.Config
	Logger        *observability.Logger
	Sessions      *session.Manager
	Previews      storage.PreviewStore
	SearchScreens *screens.Registry[*search.Screen]
	UserScreens   *screens.Registry[*user.Screen]
	NewSearch     func() *search.Screen
	NewUser       func(sessionID string) *user.Screen
	RateLimiter   *middleware.RateLimiter
	HealthChecks  map[string]services.HealthCheck
	Metrics       *observability.HTTPMetrics
	Tracer        trace.Tracer
}

type Handler struct {
	config    *config.Config
	logger    *observability.Logger
	sessions  *session.Manager
	previews  storage.PreviewStore
	searches  *screens.Registry[*search.Screen]
	users     *screens.Registry[*user.Screen]
	newSearch func() *search.Screen
	newUser   func(sessionID string) *user.Screen
	limiter   *middleware.RateLimiter
	checks    map[string]services.HealthCheck
	metrics   *observability.HTTPMetrics
	tracer    trace.Tracer
	pages     *template.Template
}

func New(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = observability.NopLogger()
	}
	if deps.Tracer == nil {
		deps.Tracer = observability.GetTracer()
	}
	if deps.RateLimiter == nil {
		deps.RateLimiter = middleware.NewRateLimiter(deps.Config.RateLimit)
	}

	return &Handler{
		config:    deps.Config,
		logger:    deps.Logger.Component("web"),
		sessions:  deps.Sessions,
		previews:  deps.Previews,
		searches:  deps.SearchScreens,
		users:     deps.UserScreens,
		newSearch: deps.NewSearch,
		newUser:   deps.NewUser,
		limiter:   deps.RateLimiter,
		checks:    deps.HealthChecks,
		metrics:   deps.Metrics,
		tracer:    deps.Tracer,
		pages:     pages,
	}
}

// NewWithContainer wires the handlers to the services in c
func NewWithContainer(c *services.Container, metrics *observability.HTTPMetrics) *Handler {
	return New(Deps{
		Config:        c.Config(),
		Logger:        c.Logger(),
		Sessions:      c.Sessions(),
		Previews:      c.Previews(),
		SearchScreens: c.SearchScreens(),
		UserScreens:   c.UserScreens(),
		NewSearch:     c.NewSearchScreen,
		NewUser:       c.NewUserScreen,
		RateLimiter:   c.RateLimiter(),
		HealthChecks:  c.HealthChecks(),
		Metrics:       metrics,
	})
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(h.limiter.RealIP)
	r.Use(observability.RequestLogger(h.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(observability.TracingMiddleware(h.tracer))
	if h.metrics != nil {
		r.Use(observability.MetricsMiddleware(h.metrics))
	}

	// Probes stay outside the session cookie
	r.Get("/healthz", h.healthzHandler)
	r.Get("/readyz", h.readyzHandler)

	r.Group(func(r chi.Router) {
		r.Use(h.sessionMiddleware)

		r.Get("/", h.searchPageHandler)
		r.Get("/previews/{id}", h.previewHandler)
		r.Get("/user", h.userPageHandler)

		r.Group(func(r chi.Router) {
			r.Use(h.limiter.Middleware)

			r.Post("/search", h.searchSubmitHandler)
			r.Post("/search/more", h.loadMoreHandler)
			r.Post("/search/upload", h.uploadPreviewHandler)

			r.Post("/user/saved/toggle", h.toggleSavedHandler)
			r.Post("/user/generated/toggle", h.toggleGeneratedHandler)
			r.Post("/login", h.loginHandler)
			r.Post("/logout", h.logoutHandler)
		})
	})

	return r
}
