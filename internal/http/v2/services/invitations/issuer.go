package invitations

import (
	"context"
	"fmt"
	"strings"

	"github.com/aulaviva/invites/internal/domain/repository"
	"github.com/aulaviva/invites/internal/email"
	dto "github.com/aulaviva/invites/internal/http/v2/dto/invitations"
	"github.com/aulaviva/invites/internal/metrics"
	"github.com/aulaviva/invites/internal/observability/logger"
	tokens "github.com/aulaviva/invites/internal/security/token"
)

// IssuerService emite (o reutiliza) el token activo de un aula.
type IssuerService interface {
	// Ensure retorna el token activo para (classroom, role); si no hay, crea uno
	// con vigencia TTL. Llamadas repetidas devuelven el mismo token.
	Ensure(ctx context.Context, requesterID string, in dto.EnsureRequest) (*repository.InvitationLink, error)
	// Send hace Ensure y envía el deep link por email.
	Send(ctx context.Context, requesterID string, in dto.SendRequest) (*repository.InvitationLink, error)
	// LinkURL arma el deep link de un token.
	LinkURL(token string) string
}

type issuerService struct {
	*core
}

// mintAttempts cubre una colisión de PK improbable con un segundo token.
const mintAttempts = 2

func (s *issuerService) LinkURL(token string) string { return s.Links.Build(token) }

func (s *issuerService) Ensure(ctx context.Context, requesterID string, in dto.EnsureRequest) (*repository.InvitationLink, error) {
	link, _, err := s.ensure(ctx, requesterID, in.ClassroomID, in.IntendedRole)
	return link, err
}

func (s *issuerService) ensure(ctx context.Context, requesterID, classroomID, intended string) (_ *repository.InvitationLink, _ *repository.Classroom, err error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentInvitations),
		logger.Op("Ensure"),
		logger.ClassroomID(classroomID),
	)

	role, ok := repository.ParseRole(intended)
	outcome := metrics.OutcomeError
	defer func() {
		if err != nil {
			outcome = outcomeOf(err)
		}
		s.Metrics.Issued(role.String(), outcome)
	}()

	classroomID = strings.TrimSpace(classroomID)
	if !ok || !role.Invitable() || classroomID == "" {
		return nil, nil, fmt.Errorf("%w: classroom_id and intended_role PARENT|TEACHER required", ErrBadInput)
	}

	req, err := s.requester(ctx, s.DAL, requesterID)
	if err != nil {
		return nil, nil, err
	}
	if !CanAttempt(ActionIssue, req.Claims.Role, role) {
		log.Info("issue denied", logger.UserID(req.ID), logger.Role(req.Claims.Role.String()),
			logger.String("intended_role", role.String()))
		return nil, nil, ErrForbidden
	}
	classroom, err := s.DAL.Classrooms().Get(ctx, classroomID)
	if err != nil {
		return nil, nil, notFoundOr("get classroom", err, ErrNotFound)
	}
	if !Allowed(ActionIssue, req.Claims, classroom, role) {
		log.Info("issue denied",
			logger.UserID(req.ID), logger.Role(req.Claims.Role.String()),
			logger.String("relation", RelationTo(req.Claims, classroom).String()),
			logger.String("intended_role", role.String()))
		return nil, nil, ErrForbidden
	}

	now := s.now()
	if active, err := s.DAL.Invitations().FindActive(ctx, classroomID, role, now); err == nil {
		outcome = metrics.OutcomeReused
		return active, classroom, nil
	} else if !repository.IsNotFound(err) {
		return nil, nil, storageErr("find active invitation", err)
	}

	for attempt := 1; ; attempt++ {
		tok, err := tokens.GenerateInvitationToken()
		if err != nil {
			return nil, nil, fmt.Errorf("generate token: %w", err)
		}
		link, created, err := s.DAL.Invitations().CreateIfNoActive(ctx, repository.InvitationLink{
			Token:        tok,
			SchoolID:     classroom.SchoolID,
			ClassroomID:  classroom.ID,
			IntendedRole: role,
			CreatedBy:    req.ID,
			ExpiresAt:    now.Add(s.TTL),
			CreatedAt:    now,
		}, now)
		if repository.IsConflict(err) && attempt < mintAttempts {
			continue
		}
		if err != nil {
			return nil, nil, notFoundOr("create invitation", err, ErrNotFound)
		}
		if created {
			outcome = metrics.OutcomeCreated
			log.Info("invitation issued", logger.TokenTail(link.Token), logger.Role(role.String()))
		} else {
			outcome = metrics.OutcomeReused
		}
		return link, classroom, nil
	}
}

func (s *issuerService) Send(ctx context.Context, requesterID string, in dto.SendRequest) (*repository.InvitationLink, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentInvitations),
		logger.Op("Send"),
	)

	to := strings.TrimSpace(in.Email)
	if to == "" || !strings.Contains(to, "@") {
		return nil, fmt.Errorf("%w: valid email required", ErrBadInput)
	}

	link, classroom, err := s.ensure(ctx, requesterID, in.ClassroomID, in.IntendedRole)
	if err != nil {
		return nil, err
	}

	vars := email.InvitationVars{
		ClassroomName: classroom.Name,
		Role:          link.IntendedRole.String(),
		Link:          s.Links.Build(link.Token),
		ExpiresAt:     link.ExpiresAt,
	}
	if school, err := s.DAL.Schools().Get(ctx, classroom.SchoolID); err == nil {
		vars.SchoolName = school.Name
	}
	subject, html, text, err := email.RenderInvitation(vars)
	if err != nil {
		return nil, err
	}
	if err := s.Mailer.Send(to, subject, html, text); err != nil {
		log.Warn("invitation email failed", logger.TokenTail(link.Token), logger.Err(err))
		return nil, fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	log.Info("invitation email sent", logger.TokenTail(link.Token), logger.ClassroomID(classroom.ID))
	return link, nil
}
