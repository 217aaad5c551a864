// Package schools cubre el onboarding del director y el alta de aulas.
package schools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aulaviva/invites/internal/domain/repository"
	dto "github.com/aulaviva/invites/internal/http/v2/dto/schools"
	"github.com/aulaviva/invites/internal/observability/logger"
	"github.com/aulaviva/invites/internal/store"
)

// Service define las operaciones de escuelas y aulas.
type Service interface {
	// CreateSchool crea la escuela y convierte al Principal en su DIRECTOR
	// (school + profile + claims en una transacción).
	CreateSchool(ctx context.Context, principalID string, in dto.CreateSchoolRequest) (*repository.School, error)
	// CreateClassroom crea un aula en la escuela del director.
	CreateClassroom(ctx context.Context, principalID string, in dto.CreateClassroomRequest) (*repository.Classroom, error)
	// GetClassroom retorna el aula si el Principal pertenece a la misma escuela.
	GetClassroom(ctx context.Context, principalID, classroomID string) (*repository.Classroom, error)
}

var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrAlreadyProvisioned = errors.New("principal already has a role")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrStorage            = errors.New("storage failure")
)

type service struct {
	dal store.DataAccessLayer
}

// NewService crea el service de escuelas.
func NewService(dal store.DataAccessLayer) Service {
	return &service{dal: dal}
}

func storageErr(err error) error { return fmt.Errorf("%w: %w", ErrStorage, err) }

func principal(ctx context.Context, repos store.Repositories, id string) (*repository.Principal, error) {
	if id == "" {
		return nil, ErrUnauthenticated
	}
	p, err := repos.Principals().GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUnauthenticated
		}
		return nil, storageErr(err)
	}
	return p, nil
}

func (s *service) CreateSchool(ctx context.Context, principalID string, in dto.CreateSchoolRequest) (*repository.School, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("schools"),
		logger.Op("CreateSchool"),
		logger.UserID(principalID),
	)

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrMissingFields
	}

	var school *repository.School
	err := s.dal.WithTx(ctx, func(tx store.Repositories) error {
		p, err := principal(ctx, tx, principalID)
		if err != nil {
			return err
		}
		if !p.Claims.Empty() {
			return ErrAlreadyProvisioned
		}
		if school, err = tx.Schools().Create(ctx, repository.CreateSchoolInput{Name: name, DirectorID: p.ID}); err != nil {
			return storageErr(err)
		}
		prof, _, err := tx.Profiles().Upsert(ctx, repository.UpsertProfileInput{
			ID:          p.ID,
			Role:        repository.RoleDirector,
			SchoolID:    school.ID,
			DisplayName: p.DisplayName(),
		})
		if err != nil {
			return storageErr(err)
		}
		if err := tx.Principals().UpdateClaims(ctx, p.ID, prof.Placement()); err != nil {
			return storageErr(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("school created", logger.SchoolID(school.ID))
	return school, nil
}

func (s *service) CreateClassroom(ctx context.Context, principalID string, in dto.CreateClassroomRequest) (*repository.Classroom, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrMissingFields
	}
	p, err := principal(ctx, s.dal, principalID)
	if err != nil {
		return nil, err
	}
	if p.Claims.Role != repository.RoleDirector || p.Claims.SchoolID == "" {
		return nil, ErrForbidden
	}
	c, err := s.dal.Classrooms().Create(ctx, repository.CreateClassroomInput{
		SchoolID: p.Claims.SchoolID,
		Name:     name,
		Grade:    strings.TrimSpace(in.Grade),
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, storageErr(err)
	}
	logger.From(ctx).Info("classroom created",
		logger.Component("schools"), logger.SchoolID(c.SchoolID), logger.ClassroomID(c.ID))
	return c, nil
}

func (s *service) GetClassroom(ctx context.Context, principalID, classroomID string) (*repository.Classroom, error) {
	p, err := principal(ctx, s.dal, principalID)
	if err != nil {
		return nil, err
	}
	c, err := s.dal.Classrooms().Get(ctx, strings.TrimSpace(classroomID))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, storageErr(err)
	}
	if p.Claims.SchoolID != c.SchoolID {
		return nil, ErrForbidden
	}
	return c, nil
}
