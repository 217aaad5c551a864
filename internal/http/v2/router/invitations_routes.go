package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/aulaviva/invites/internal/http/v2/middlewares"
)

// registerInvitationRoutes registra /v2/invitations/*. Preview es el único
// endpoint sin sesión; lo protege el token y el rate limit por IP.
func registerInvitationRoutes(r chi.Router, deps V2RouterDeps) {
	c := deps.Controllers.Invitations

	r.Route("/invitations", func(r chi.Router) {
		preview := r.With(mw.WithRateLimit(deps.Limiters.Preview, mw.IPKey("preview")))
		preview.Get("/preview", c.Preview)
		preview.Post("/preview", c.Preview)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth(deps.Sessions))
			r.Post("/ensure", c.Ensure)
			r.Post("/revoke", c.Revoke)
			r.Post("/send", c.Send)
			r.With(mw.WithRateLimit(deps.Limiters.Consume, mw.UserKey("consume"))).Post("/consume", c.Consume)
		})
	})
}
