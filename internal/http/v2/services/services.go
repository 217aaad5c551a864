// Package services agrupa los services HTTP V2. Es el "composition root" de
// services: cada dominio vive en su sub-paquete con su propio Deps y se
// instancia solo desde New.
//
//	svcs := services.New(services.Deps{DAL: dal, Issuer: issuer, ...})
//	svcs.Invitations.Issuer.Ensure(ctx, principalID, req)
package services

import (
	"time"

	"github.com/aulaviva/invites/internal/cache"
	"github.com/aulaviva/invites/internal/email"
	"github.com/aulaviva/invites/internal/http/v2/services/health"
	"github.com/aulaviva/invites/internal/http/v2/services/identity"
	"github.com/aulaviva/invites/internal/http/v2/services/invitations"
	"github.com/aulaviva/invites/internal/http/v2/services/schools"
	"github.com/aulaviva/invites/internal/invitelink"
	jwtx "github.com/aulaviva/invites/internal/jwt"
	"github.com/aulaviva/invites/internal/metrics"
	"github.com/aulaviva/invites/internal/security/password"
	"github.com/aulaviva/invites/internal/store"
)

// Deps contiene las dependencias base para crear los services.
type Deps struct {
	// ─── Infraestructura ───
	DAL     store.DataAccessLayer
	Issuer  *jwtx.Issuer
	Cache   cache.Client
	Mailer  email.Sender
	Links   *invitelink.Builder
	Metrics *metrics.Metrics

	// ─── Configuración ───
	RefreshTTL       time.Duration
	InvitationTTL    time.Duration
	PreviewTTL       time.Duration
	TeacherSingleUse bool
	Password         *password.Params
	Now              func() time.Time

	// ─── Health Check ───
	HealthDeps health.Deps
}

// Services agrupa todos los sub-services por dominio.
type Services struct {
	Identity    identity.Service
	Schools     schools.Service
	Invitations invitations.Services
	Health      health.HealthService
}

// New crea el agregador de services con todas las dependencias inyectadas.
func New(d Deps) *Services {
	return &Services{
		Identity: identity.NewService(identity.Deps{
			DAL:        d.DAL,
			Issuer:     d.Issuer,
			RefreshTTL: d.RefreshTTL,
			Password:   d.Password,
			Now:        d.Now,
		}),
		Schools: schools.NewService(d.DAL),
		Invitations: invitations.NewServices(invitations.Deps{
			DAL:              d.DAL,
			Cache:            d.Cache,
			Mailer:           d.Mailer,
			Links:            d.Links,
			Metrics:          d.Metrics,
			TTL:              d.InvitationTTL,
			PreviewTTL:       d.PreviewTTL,
			TeacherSingleUse: d.TeacherSingleUse,
			Now:              d.Now,
		}),
		Health: health.NewHealthService(d.HealthDeps),
	}
}
