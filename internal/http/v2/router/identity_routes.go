package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/aulaviva/invites/internal/http/v2/middlewares"
)

func registerIdentityRoutes(r chi.Router, deps V2RouterDeps) {
	c := deps.Controllers.Identity
	limited := r.With(mw.WithRateLimit(deps.Limiters.Auth, mw.IPKey("auth")))

	limited.Post("/auth/signup", c.Signup)
	limited.Post("/auth/login", c.Login)
	limited.Post("/session/refresh", c.Refresh)

	r.With(mw.RequireAuth(deps.Sessions)).Get("/me", c.Me)
}
