// Package httptransport assembles the HTTP surface: middleware stack, public
// endpoints, and the authenticated v1 API.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taxtrail/internal/platform/middleware"
)

// Registrar mounts a handler's routes on a router group.
type Registrar interface {
	Register(r chi.Router)
}

// PublicRegistrar mounts routes that skip authentication.
type PublicRegistrar interface {
	RegisterPublic(r chi.Router)
}

// Deps collects everything the router wires together.
type Deps struct {
	Logger        *slog.Logger
	Auth          middleware.TokenValidator
	Registry      *prometheus.Registry
	Authenticated []Registrar
	Public        []PublicRegistrar
}

// NewRouter builds the chi router with the standard middleware stack.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(v1 chi.Router) {
		for _, reg := range deps.Public {
			reg.RegisterPublic(v1)
		}
		v1.Group(func(authed chi.Router) {
			authed.Use(middleware.RequireAuth(deps.Auth, deps.Logger))
			for _, reg := range deps.Authenticated {
				reg.Register(authed)
			}
		})
	})
	return r
}
