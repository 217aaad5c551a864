// Package router registra las rutas V2 sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aulaviva/invites/internal/http/v2/controllers"
	httperrors "github.com/aulaviva/invites/internal/http/v2/errors"
	mw "github.com/aulaviva/invites/internal/http/v2/middlewares"
	"github.com/aulaviva/invites/internal/metrics"
	"github.com/aulaviva/invites/internal/rate"
)

// Limiters agrupa los rate limiters por bucket. Un nil deshabilita ese bucket.
type Limiters struct {
	Auth    rate.Limiter // signup/login/refresh por IP
	Preview rate.Limiter // preview por IP (endpoint sin sesión)
	Consume rate.Limiter // consume por usuario
}

// V2RouterDeps contiene todas las dependencias del router V2.
type V2RouterDeps struct {
	Controllers *controllers.Controllers
	Sessions    mw.SessionParser
	Limiters    Limiters
	Metrics     *metrics.Metrics

	// JWKS es el documento público de claves; nil omite la ruta.
	JWKS []byte
	// MetricsHandler se monta en MetricsPath ("/metrics" si vacío); nil omite la ruta.
	MetricsHandler http.Handler
	MetricsPath    string
}

// New arma el handler raíz con todas las rutas V2 y de operación.
func New(deps V2RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithMetrics(deps.Metrics),
		mw.WithSecurityHeaders(mw.DefaultSecurityHeaders()),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	registerHealthRoutes(r, deps)

	r.Route("/v2", func(r chi.Router) {
		r.Use(mw.WithLogging(), mw.WithNoStore())
		registerIdentityRoutes(r, deps)
		registerSchoolRoutes(r, deps)
		registerInvitationRoutes(r, deps)
	})
	return r
}
