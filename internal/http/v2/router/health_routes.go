package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/aulaviva/invites/internal/http/v2/middlewares"
)

// registerHealthRoutes registra /healthz, /readyz, métricas y JWKS.
// Sin auth y sin logging (muy frecuentes).
func registerHealthRoutes(r chi.Router, deps V2RouterDeps) {
	c := deps.Controllers.Health

	r.Get("/healthz", c.Healthz)
	r.Get("/readyz", c.Readyz)

	if deps.MetricsHandler != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, mw.Chain(deps.MetricsHandler, mw.WithNoStore()))
	}
	if deps.JWKS != nil {
		jwks := deps.JWKS
		r.With(mw.WithCacheControl("public, max-age=300")).Get("/.well-known/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(jwks)
		})
	}
}
