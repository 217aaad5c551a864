package invitations

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aulaviva/invites/internal/cache"
	"github.com/aulaviva/invites/internal/domain/repository"
	"github.com/aulaviva/invites/internal/observability/logger"
	tokens "github.com/aulaviva/invites/internal/security/token"
)

// Preview es la proyección pública de un token. No incluye used_at ni created_by.
type Preview struct {
	Token          string          `json:"token"`
	SchoolID       string          `json:"school_id"`
	SchoolName     string          `json:"school_name,omitempty"`
	ClassroomID    string          `json:"classroom_id"`
	ClassroomName  string          `json:"classroom_name"`
	ClassroomGrade string          `json:"classroom_grade,omitempty"`
	IntendedRole   repository.Role `json:"intended_role"`
	ExpiresAt      time.Time       `json:"expires_at"`
}

// ResolverService resuelve un token sin requerir auth del caller.
// Solo busca por token exacto; nunca lista el ledger. Cada preview lee la
// fila del ledger, así que un token usado o revocado falla aunque haya
// quedado una proyección en cache.
type ResolverService interface {
	Preview(ctx context.Context, token string) (*Preview, error)
}

type resolverService struct {
	*core
	group singleflight.Group
}

func newResolverService(c *core) *resolverService {
	return &resolverService{core: c}
}

func (s *resolverService) Preview(ctx context.Context, raw string) (p *Preview, err error) {
	token := normalizeToken(raw)
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentInvitations),
		logger.Op("Preview"),
		logger.TokenTail(token),
	)
	defer func() { s.Metrics.Preview(outcomeOf(err)) }()

	if !tokens.WellFormedInvitation(token) {
		return nil, ErrInvalidInvitation
	}
	now := s.now()

	// El ledger siempre decide validez; la cache solo guarda nombres de aula y escuela.
	link, err := s.resolve(ctx, s.DAL, token, now)
	if err != nil {
		log.Debug("preview rejected", logger.Err(err))
		return nil, err
	}

	key := previewKey(token)
	if c, ok := s.cached(ctx, key); ok && c.ClassroomID == link.ClassroomID {
		s.Metrics.PreviewCacheHit()
		return project(link, c), nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.enrich(ctx, link)
	})
	if err != nil {
		log.Warn("preview enrichment failed", logger.Err(err))
		return nil, err
	}
	p = project(link, v.(*Preview))
	s.store(ctx, key, p, now)
	return p, nil
}

// project arma la proyección pública: los campos de validez salen del
// ledger, los nombres de names.
func project(link *repository.InvitationLink, names *Preview) *Preview {
	return &Preview{
		Token:          link.Token,
		SchoolID:       link.SchoolID,
		SchoolName:     names.SchoolName,
		ClassroomID:    link.ClassroomID,
		ClassroomName:  names.ClassroomName,
		ClassroomGrade: names.ClassroomGrade,
		IntendedRole:   link.IntendedRole,
		ExpiresAt:      link.ExpiresAt,
	}
}

func (s *resolverService) enrich(ctx context.Context, link *repository.InvitationLink) (*Preview, error) {
	classroom, err := s.DAL.Classrooms().Get(ctx, link.ClassroomID)
	if err != nil {
		return nil, notFoundOr("get classroom", err, ErrNotFound)
	}
	p := &Preview{
		ClassroomID:    link.ClassroomID,
		ClassroomName:  classroom.Name,
		ClassroomGrade: classroom.Grade,
	}
	school, err := s.DAL.Schools().Get(ctx, link.SchoolID)
	switch {
	case err == nil:
		p.SchoolName = school.Name
	case !repository.IsNotFound(err):
		return nil, storageErr("get school", err)
	}
	return p, nil
}

// cached lee la proyección; cualquier error de cache cuenta como miss.
func (s *resolverService) cached(ctx context.Context, key string) (*Preview, bool) {
	if s.Cache == nil {
		return nil, false
	}
	raw, err := s.Cache.Get(ctx, key)
	if err != nil {
		if !cache.IsNotFound(err) {
			logger.From(ctx).Warn("preview cache read failed", logger.Err(err))
		}
		return nil, false
	}
	var p Preview
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false
	}
	return &p, true
}

// store cachea por min(PreviewTTL, tiempo restante hasta expires_at).
func (s *resolverService) store(ctx context.Context, key string, p *Preview, now time.Time) {
	if s.Cache == nil {
		return
	}
	ttl := s.PreviewTTL
	if left := p.ExpiresAt.Sub(now); left < ttl {
		ttl = left
	}
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, key, string(raw), ttl); err != nil {
		logger.From(ctx).Warn("preview cache write failed", logger.Err(err))
	}
}
