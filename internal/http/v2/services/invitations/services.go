// Package invitations contiene los services del flujo de invitaciones:
// Issuer (ensure + send), Resolver (preview), Consumer y Revoker.
package invitations

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aulaviva/invites/internal/cache"
	"github.com/aulaviva/invites/internal/domain/repository"
	"github.com/aulaviva/invites/internal/email"
	"github.com/aulaviva/invites/internal/invitelink"
	"github.com/aulaviva/invites/internal/metrics"
	"github.com/aulaviva/invites/internal/observability/logger"
	tokens "github.com/aulaviva/invites/internal/security/token"
	"github.com/aulaviva/invites/internal/store"
)

const (
	// DefaultTTL es la vigencia de un token nuevo.
	DefaultTTL        = 7 * 24 * time.Hour
	DefaultPreviewTTL = 5 * time.Minute

	componentInvitations = "invitations"
	previewKeyPrefix     = "invite:preview:"
)

// Deps contiene las dependencias de los services de invitaciones.
type Deps struct {
	DAL     store.DataAccessLayer
	Cache   cache.Client // nil = sin cache de preview
	Mailer  email.Sender // nil = LogSender
	Links   *invitelink.Builder
	Metrics *metrics.Metrics // nil = sin métricas

	TTL        time.Duration
	PreviewTTL time.Duration
	// TeacherSingleUse marca used_at al consumir un token TEACHER.
	TeacherSingleUse bool

	Now func() time.Time
}

// Services agrupa los services del dominio invitaciones.
type Services struct {
	Issuer   IssuerService
	Resolver ResolverService
	Consumer ConsumerService
	Revoker  RevokerService
}

// NewServices crea el agregador. Todos comparten el mismo core.
func NewServices(d Deps) Services {
	c := newCore(d)
	return Services{
		Issuer:   &issuerService{c},
		Resolver: newResolverService(c),
		Consumer: &consumerService{c},
		Revoker:  &revokerService{c},
	}
}

type core struct {
	Deps
}

func newCore(d Deps) *core {
	if d.TTL <= 0 {
		d.TTL = DefaultTTL
	}
	if d.PreviewTTL <= 0 {
		d.PreviewTTL = DefaultPreviewTTL
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Mailer == nil {
		d.Mailer = email.LogSender{}
	}
	if d.Links == nil {
		d.Links, _ = invitelink.NewBuilder("")
	}
	return &core{Deps: d}
}

func (c *core) now() time.Time { return c.Now().UTC() }

// requester carga el claims bag actual del Principal desde el Identity Store.
// Las claims del session token pueden estar desactualizadas.
func (c *core) requester(ctx context.Context, repos store.Repositories, principalID string) (*repository.Principal, error) {
	if strings.TrimSpace(principalID) == "" {
		return nil, ErrUnauthenticated
	}
	p, err := repos.Principals().GetByID(ctx, principalID)
	if err != nil {
		return nil, notFoundOr("load requester", err, ErrUnauthenticated)
	}
	return p, nil
}

// resolve valida el token contra el ledger. Expired tiene precedencia sobre used.
func (c *core) resolve(ctx context.Context, repos store.Repositories, token string, now time.Time) (*repository.InvitationLink, error) {
	if !tokens.WellFormedInvitation(token) {
		return nil, ErrInvalidInvitation
	}
	link, err := repos.Invitations().GetByToken(ctx, token)
	if err != nil {
		return nil, notFoundOr("get invitation", err, ErrInvalidInvitation)
	}
	if link.ExpiredAt(now) {
		return nil, ErrInvitationExpired
	}
	if link.UsedAt != nil {
		return nil, ErrInvitationUsed
	}
	return link, nil
}

// normalizeToken acepta el token pelado o el deep link completo.
func normalizeToken(raw string) string {
	if t, err := invitelink.Parse(raw); err == nil {
		return t
	}
	return strings.TrimSpace(raw)
}

func previewKey(token string) string {
	return previewKeyPrefix + tokens.SHA256Base64URL(token)
}

// invalidate borra la proyección cacheada de los tokens dados.
func (c *core) invalidate(ctx context.Context, toks ...string) {
	if c.Cache == nil {
		return
	}
	for _, t := range toks {
		if err := c.Cache.Delete(ctx, previewKey(t)); err != nil && !cache.IsNotFound(err) {
			logger.From(ctx).Warn("preview cache invalidation failed",
				logger.Component(componentInvitations), logger.TokenTail(t), logger.Err(err))
		}
	}
}

// outcomeOf traduce un error del service a label de métrica.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrUnauthenticated):
		return metrics.OutcomeDenied
	case errors.Is(err, ErrInvitationUsed):
		return metrics.OutcomeUsed
	case errors.Is(err, ErrInvitationExpired):
		return metrics.OutcomeExpired
	case errors.Is(err, ErrInvalidInvitation), errors.Is(err, ErrBadInput), errors.Is(err, ErrNotFound):
		return metrics.OutcomeInvalid
	}
	return metrics.OutcomeError
}
