package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradeledger/internal/platform/middleware"
)

// Registrar mounts a feature's authenticated routes on a router.
type Registrar interface {
	Register(r chi.Router)
}

// PublicRegistrar mounts routes that run without a bearer token.
type PublicRegistrar interface {
	RegisterPublic(r chi.Router)
}

// NewRouter assembles the full HTTP surface: the middleware chain, the public
// onboarding/login routes, the authenticated API, and the operational
// endpoints.
func NewRouter(
	logger *slog.Logger,
	validator middleware.TokenValidator,
	public []PublicRegistrar,
	authed []Registrar,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, reg := range public {
		reg.RegisterPublic(r)
	}

	r.Group(func(api chi.Router) {
		api.Use(middleware.RequireAuth(validator, logger))
		for _, reg := range authed {
			reg.Register(api)
		}
	})

	return r
}
