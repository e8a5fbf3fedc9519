package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mwhited/taskflow/internal/adminreq"
	"github.com/mwhited/taskflow/internal/auth"
	"github.com/mwhited/taskflow/internal/database"
	"github.com/mwhited/taskflow/internal/metrics"
	"github.com/mwhited/taskflow/internal/ratelimit"
	"github.com/mwhited/taskflow/internal/suggestion"
	"github.com/mwhited/taskflow/internal/task"
	"github.com/mwhited/taskflow/internal/team"
	"github.com/mwhited/taskflow/internal/user"
)

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	DB            *database.DB
	Users         *user.Store
	Tasks         *task.Store
	Teams         *team.Store
	AdminRequests *adminreq.Store
	Suggestions   *suggestion.Store
	Engine        *suggestion.Engine
	Tokens        *auth.TokenService
	AuthMW        *auth.Middleware
	Limiter       *ratelimit.Limiter
	Metrics       *metrics.Metrics

	AllowedOrigins []string
	AdminSecret    string
	SecureCookie   bool
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(slogRequestLogger)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))

	// Handlers.
	authH := newAuthHandler(deps.Users, deps.Tokens, deps.AdminSecret, deps.SecureCookie)
	tasks := newTasksHandler(deps.Tasks, deps.Teams, deps.Users)
	teams := newTeamsHandler(deps.Teams, deps.Users)
	users := newUsersHandler(deps.Users)
	requests := newAdminRequestsHandler(deps.AdminRequests)
	suggestions := newSuggestionsHandler(deps.Engine, deps.Suggestions)

	// Health check. Reports unhealthy when the database is unreachable.
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := deps.DB.Pool.Ping(req.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", "database unreachable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Prometheus exposition.
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics.Registry(), promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(vr chi.Router) {
		// Credential endpoints are rate limited per client IP.
		vr.Route("/auth", func(ar chi.Router) {
			var onReject []func()
			if deps.Metrics != nil {
				onReject = append(onReject, func() { deps.Metrics.IncRateLimitRejection("auth") })
			}
			limited := ratelimit.Middleware(deps.Limiter, onReject...)

			ar.With(limited).Post("/register", authH.Register)
			ar.With(limited).Post("/login", authH.Login)
			ar.Post("/logout", authH.Logout)
			ar.With(deps.AuthMW.Authenticate).Get("/me", authH.Me)
		})

		// Authenticated API.
		vr.Group(func(ar chi.Router) {
			ar.Use(deps.AuthMW.Authenticate)

			ar.Get("/tasks", tasks.List)
			ar.Get("/tasks/{id}", tasks.Get)
			ar.Put("/tasks/{id}", tasks.Update)
			ar.With(auth.RequireRole(auth.RoleAdmin)).Post("/tasks", tasks.Create)
			ar.With(auth.RequireRole(auth.RoleAdmin)).Delete("/tasks/{id}", tasks.Delete)

			ar.Get("/teams", teams.List)
			ar.Get("/teams/{id}", teams.Get)
			ar.With(auth.RequireRole(auth.RoleAdmin)).Post("/teams", teams.Create)
			ar.With(auth.RequireRole(auth.RoleAdmin)).Put("/teams/{id}", teams.Update)
			ar.With(auth.RequireRole(auth.RoleAdmin)).Delete("/teams/{id}", teams.Delete)

			ar.With(auth.RequireRole(auth.RoleAdmin)).Get("/users", users.List)

			ar.Post("/admin-requests", requests.Create)
			ar.With(auth.RequireRole(auth.RoleOwner)).Get("/admin-requests", requests.List)
			ar.With(auth.RequireRole(auth.RoleOwner)).Put("/admin-requests", requests.Resolve)

			ar.Get("/suggestions", suggestions.List)
			ar.Put("/suggestions", suggestions.Update)

			if deps.Metrics != nil {
				ar.With(auth.RequireRole(auth.RoleAdmin)).Get("/admin/metrics", deps.Metrics.Handler())
			}
		})
	})

	return r
}
