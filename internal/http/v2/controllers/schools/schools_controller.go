// Package schools contiene el controller de escuelas y aulas.
package schools

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/aulaviva/invites/internal/domain/repository"
	dto "github.com/aulaviva/invites/internal/http/v2/dto/schools"
	httperrors "github.com/aulaviva/invites/internal/http/v2/errors"
	"github.com/aulaviva/invites/internal/http/v2/helpers"
	mw "github.com/aulaviva/invites/internal/http/v2/middlewares"
	svc "github.com/aulaviva/invites/internal/http/v2/services/schools"
	"github.com/aulaviva/invites/internal/observability/logger"
)

// Controller maneja /v2/schools y /v2/classrooms.
type Controller struct {
	service svc.Service
}

func NewController(service svc.Service) *Controller {
	return &Controller{service: service}
}

// CreateSchool maneja POST /v2/schools
func (c *Controller) CreateSchool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Schools.CreateSchool"))

	var req dto.CreateSchoolRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	s, err := c.service.CreateSchool(ctx, mw.GetUserID(ctx), req)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, dto.SchoolResponse{
		OK:         true,
		ID:         s.ID,
		Name:       s.Name,
		DirectorID: s.DirectorID,
		CreatedAt:  s.CreatedAt,
	})
}

// CreateClassroom maneja POST /v2/classrooms
func (c *Controller) CreateClassroom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Schools.CreateClassroom"))

	var req dto.CreateClassroomRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	cl, err := c.service.CreateClassroom(ctx, mw.GetUserID(ctx), req)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, classroomResponse(cl))
}

// GetClassroom maneja GET /v2/classrooms/{id}
func (c *Controller) GetClassroom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Schools.GetClassroom"))

	cl, err := c.service.GetClassroom(ctx, mw.GetUserID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, classroomResponse(cl))
}

func classroomResponse(cl *repository.Classroom) dto.ClassroomResponse {
	return dto.ClassroomResponse{
		OK:        true,
		ID:        cl.ID,
		SchoolID:  cl.SchoolID,
		Name:      cl.Name,
		Grade:     cl.Grade,
		CreatedAt: cl.CreatedAt,
	}
}

func (c *Controller) handleError(w http.ResponseWriter, err error, log *zap.Logger) {
	switch {
	case errors.Is(err, svc.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("name is required"))
	case errors.Is(err, svc.ErrUnauthenticated):
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
	case errors.Is(err, svc.ErrAlreadyProvisioned):
		httperrors.WriteError(w, httperrors.ErrConflict.WithDetail("principal already has a role"))
	case errors.Is(err, svc.ErrForbidden):
		httperrors.WriteError(w, httperrors.ErrForbidden)
	case errors.Is(err, svc.ErrNotFound):
		httperrors.WriteError(w, httperrors.ErrNotFound)
	case errors.Is(err, svc.ErrStorage):
		log.Error("storage failure", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrStorage.WithCause(err))
	default:
		log.Error("unexpected schools error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}
