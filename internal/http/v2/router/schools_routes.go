package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/aulaviva/invites/internal/http/v2/middlewares"
)

func registerSchoolRoutes(r chi.Router, deps V2RouterDeps) {
	c := deps.Controllers.Schools

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth(deps.Sessions))
		r.Post("/schools", c.CreateSchool)
		r.Post("/classrooms", c.CreateClassroom)
		r.Get("/classrooms/{id}", c.GetClassroom)
	})
}
