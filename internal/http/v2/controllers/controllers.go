// Package controllers agrupa los controllers HTTP V2 por dominio.
package controllers

import (
	"github.com/aulaviva/invites/internal/http/v2/controllers/health"
	"github.com/aulaviva/invites/internal/http/v2/controllers/identity"
	"github.com/aulaviva/invites/internal/http/v2/controllers/invitations"
	"github.com/aulaviva/invites/internal/http/v2/controllers/schools"
	"github.com/aulaviva/invites/internal/http/v2/services"
)

type Controllers struct {
	Identity    *identity.Controller
	Schools     *schools.Controller
	Invitations *invitations.Controller
	Health      *health.HealthController
}

func New(svc *services.Services) *Controllers {
	return &Controllers{
		Identity:    identity.NewController(svc.Identity),
		Schools:     schools.NewController(svc.Schools),
		Invitations: invitations.NewController(svc.Invitations),
		Health:      health.NewHealthController(svc.Health),
	}
}
