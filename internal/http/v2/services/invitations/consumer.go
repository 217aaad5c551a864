package invitations

import (
	"context"
	"errors"

	"github.com/aulaviva/invites/internal/domain/repository"
	dto "github.com/aulaviva/invites/internal/http/v2/dto/invitations"
	"github.com/aulaviva/invites/internal/observability/logger"
	"github.com/aulaviva/invites/internal/store"
)

// ConsumerService promueve al Principal que llama al rol/escuela/aula del token.
type ConsumerService interface {
	// Consume aplica la promoción en una transacción: profile, claims bag y,
	// para TEACHER single-use, used_at. Retorna la nueva ubicación.
	Consume(ctx context.Context, principalID string, in dto.ConsumeRequest) (repository.Claims, error)
}

type consumerService struct {
	*core
}

func (s *consumerService) Consume(ctx context.Context, principalID string, in dto.ConsumeRequest) (placement repository.Claims, err error) {
	token := normalizeToken(in.Token)
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentInvitations),
		logger.Op("Consume"),
		logger.UserID(principalID),
		logger.TokenTail(token),
	)

	var role repository.Role
	defer func() { s.Metrics.Consumed(role.String(), outcomeOf(err)) }()

	if principalID == "" {
		return repository.Claims{}, ErrUnauthenticated
	}

	now := s.now()
	var (
		link    *repository.InvitationLink
		created bool
	)
	err = s.DAL.WithTx(ctx, func(tx store.Repositories) error {
		var err error
		link, err = s.resolve(ctx, tx, token, now)
		if err != nil {
			return err
		}
		role = link.IntendedRole

		principal, err := s.requester(ctx, tx, principalID)
		if err != nil {
			return err
		}

		if link.IntendedRole == repository.RoleTeacher && s.TeacherSingleUse {
			if err := tx.Invitations().MarkUsed(ctx, link.Token, now); err != nil {
				if repository.IsConflict(err) {
					return ErrInvitationUsed
				}
				return storageErr("mark invitation used", err)
			}
		}

		upsert := repository.UpsertProfileInput{
			ID:          principal.ID,
			Role:        link.IntendedRole,
			SchoolID:    link.SchoolID,
			ClassroomID: link.ClassroomID,
			DisplayName: principal.DisplayName(),
		}
		if link.IntendedRole == repository.RoleParent {
			upsert.ChildFirstName = in.Child()
		}
		profile, isNew, err := tx.Profiles().Upsert(ctx, upsert)
		if err != nil {
			return storageErr("upsert profile", err)
		}
		created = isNew

		if err := tx.Principals().UpdateClaims(ctx, principal.ID, profile.Placement()); err != nil {
			return storageErr("update claims", err)
		}
		placement = profile.Placement()
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrStorage) {
			log.Error("consume failed", logger.Err(err))
		} else {
			log.Info("consume rejected", logger.Err(err))
		}
		return repository.Claims{}, err
	}

	if link.IntendedRole == repository.RoleTeacher && s.TeacherSingleUse {
		s.invalidate(ctx, link.Token)
	}
	log.Info("invitation consumed",
		logger.Role(placement.Role.String()),
		logger.SchoolID(placement.SchoolID),
		logger.ClassroomID(placement.ClassroomID),
		logger.Bool("profile_created", created),
	)
	return placement, nil
}

