package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"evmarket/internal/http/handlers"
	"evmarket/internal/http/middleware"
)

// Routes groups the handler sets the router mounts.
type Routes struct {
	Sessions  *handlers.SessionsHandlers
	Analytics *handlers.AnalyticsHandlers
	Health    http.HandlerFunc
}

// NewRouter registers endpoints. Everything except the health check sits
// behind token auth; the provider dashboard additionally requires the
// provider role.
func NewRouter(routes Routes, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	if routes.Health != nil {
		r.Get("/health", routes.Health)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(jwtSecret))

		r.Post("/sessions", routes.Sessions.Create)
		r.Delete("/sessions/{id}", routes.Sessions.Delete)
		r.Get("/sessions/me", routes.Sessions.ListMe)
		r.Get("/users/me/summary", routes.Analytics.UserSummary)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleProvider))
			r.Get("/provider/analytics", routes.Analytics.ProviderAnalytics)
			r.Get("/provider/sessions", routes.Analytics.ProviderSessions)
		})
	})

	return r
}
