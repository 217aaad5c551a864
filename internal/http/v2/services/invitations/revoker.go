package invitations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aulaviva/invites/internal/domain/repository"
	dto "github.com/aulaviva/invites/internal/http/v2/dto/invitations"
	"github.com/aulaviva/invites/internal/observability/logger"
	tokens "github.com/aulaviva/invites/internal/security/token"
)

// RevokerService desactiva tokens antes de su vencimiento (solo directores).
type RevokerService interface {
	// Revoke desactiva un token puntual o los activos de (classroom, role).
	// Retorna cuántos tokens pasaron de activos a inactivos; 0 no es error.
	Revoke(ctx context.Context, requesterID string, in dto.RevokeRequest) (int, error)
}

type revokerService struct {
	*core
}

func (s *revokerService) Revoke(ctx context.Context, requesterID string, in dto.RevokeRequest) (n int, err error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentInvitations),
		logger.Op("Revoke"),
	)

	token := strings.TrimSpace(in.Token)
	classroomID := strings.TrimSpace(in.ClassroomID)
	if token == "" && (classroomID == "" || in.IntendedRole == "") {
		return 0, fmt.Errorf("%w: token or classroom_id+intended_role required", ErrBadInput)
	}

	req, err := s.requester(ctx, s.DAL, requesterID)
	if err != nil {
		return 0, err
	}
	if req.Claims.Role != repository.RoleDirector {
		return 0, ErrForbidden
	}

	now := s.now()
	if token != "" {
		n, err = s.revokeToken(ctx, req, token, now)
	} else {
		n, err = s.revokeActive(ctx, req, classroomID, in.IntendedRole, now)
	}
	if err != nil {
		return 0, err
	}
	s.Metrics.Revoked(n)
	log.Info("invitations revoked", logger.UserID(req.ID), logger.Count(n))
	return n, nil
}

func (s *revokerService) revokeToken(ctx context.Context, req *repository.Principal, raw string, now time.Time) (int, error) {
	token := normalizeToken(raw)
	if !tokens.WellFormedInvitation(token) {
		return 0, ErrInvalidInvitation
	}
	link, err := s.DAL.Invitations().GetByToken(ctx, token)
	if err != nil {
		return 0, notFoundOr("get invitation", err, ErrInvalidInvitation)
	}
	classroom, err := s.DAL.Classrooms().Get(ctx, link.ClassroomID)
	if err != nil {
		return 0, notFoundOr("get classroom", err, ErrNotFound)
	}
	// La escuela del token tiene que ser la del director.
	if !Allowed(ActionRevoke, req.Claims, classroom, link.IntendedRole) {
		return 0, ErrForbidden
	}

	changed, err := s.DAL.Invitations().ExpireToken(ctx, token, now)
	if err != nil {
		return 0, notFoundOr("expire invitation", err, ErrInvalidInvitation)
	}
	s.invalidate(ctx, token)
	if !changed {
		return 0, nil
	}
	return 1, nil
}

func (s *revokerService) revokeActive(ctx context.Context, req *repository.Principal, classroomID, intended string, now time.Time) (int, error) {
	role, ok := repository.ParseRole(intended)
	if !ok || !role.Invitable() {
		return 0, fmt.Errorf("%w: intended_role must be PARENT or TEACHER", ErrBadInput)
	}
	classroom, err := s.DAL.Classrooms().Get(ctx, classroomID)
	if err != nil {
		return 0, notFoundOr("get classroom", err, ErrNotFound)
	}
	if !Allowed(ActionRevoke, req.Claims, classroom, role) {
		return 0, ErrForbidden
	}

	revoked, err := s.DAL.Invitations().ExpireActive(ctx, classroomID, role, now)
	if err != nil {
		return 0, storageErr("expire active invitations", err)
	}
	s.invalidate(ctx, revoked...)
	return len(revoked), nil
}
