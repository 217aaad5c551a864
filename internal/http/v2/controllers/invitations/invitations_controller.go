// Package invitations contiene el controller de los endpoints de invitaciones.
package invitations

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	dto "github.com/aulaviva/invites/internal/http/v2/dto/invitations"
	httperrors "github.com/aulaviva/invites/internal/http/v2/errors"
	"github.com/aulaviva/invites/internal/http/v2/helpers"
	mw "github.com/aulaviva/invites/internal/http/v2/middlewares"
	svc "github.com/aulaviva/invites/internal/http/v2/services/invitations"
	"github.com/aulaviva/invites/internal/observability/logger"
)

// Controller maneja /v2/invitations/*.
type Controller struct {
	svc svc.Services
}

// NewController crea el controller de invitaciones.
func NewController(s svc.Services) *Controller {
	return &Controller{svc: s}
}

// Ensure maneja POST /v2/invitations/ensure
func (c *Controller) Ensure(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Invitations.Ensure"))

	if !helpers.RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req dto.EnsureRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	link, err := c.svc.Issuer.Ensure(ctx, mw.GetUserID(ctx), req)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.EnsureResponse{
		OK:           true,
		Token:        link.Token,
		ExpiresAt:    link.ExpiresAt,
		IntendedRole: link.IntendedRole.String(),
		URL:          c.svc.Issuer.LinkURL(link.Token),
	})
}

// Preview maneja GET|POST /v2/invitations/preview. No requiere sesión.
func (c *Controller) Preview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Invitations.Preview"))

	if !helpers.RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	req := dto.PreviewRequest{Token: r.URL.Query().Get("token")}
	if r.Method == http.MethodPost {
		if err := helpers.ReadJSON(w, r, &req); err != nil {
			httperrors.WriteError(w, err)
			return
		}
	}
	if req.Token == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("token is required"))
		return
	}

	p, err := c.svc.Resolver.Preview(ctx, req.Token)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.PreviewResponse{
		OK:           true,
		Token:        p.Token,
		SchoolID:     p.SchoolID,
		SchoolName:   p.SchoolName,
		ClassroomID:  p.ClassroomID,
		IntendedRole: p.IntendedRole.String(),
		ExpiresAt:    p.ExpiresAt,
		Classroom: dto.ClassroomSummary{
			ID:    p.ClassroomID,
			Name:  p.ClassroomName,
			Grade: p.ClassroomGrade,
		},
	})
}

// Consume maneja POST /v2/invitations/consume
func (c *Controller) Consume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Invitations.Consume"))

	if !helpers.RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req dto.ConsumeRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	if req.Token == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("token is required"))
		return
	}

	placement, err := c.svc.Consumer.Consume(ctx, mw.GetUserID(ctx), req)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ConsumeResponse{
		OK:          true,
		Role:        placement.Role.String(),
		SchoolID:    placement.SchoolID,
		ClassroomID: placement.ClassroomID,
	})
}

// Revoke maneja POST /v2/invitations/revoke
func (c *Controller) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Invitations.Revoke"))

	if !helpers.RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req dto.RevokeRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	n, err := c.svc.Revoker.Revoke(ctx, mw.GetUserID(ctx), req)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.RevokeResponse{OK: true, Revoked: n})
}

// Send maneja POST /v2/invitations/send
func (c *Controller) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Invitations.Send"))

	if !helpers.RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req dto.SendRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	link, err := c.svc.Issuer.Send(ctx, mw.GetUserID(ctx), req)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.SendResponse{
		OK:        true,
		Token:     link.Token,
		ExpiresAt: link.ExpiresAt,
		URL:       c.svc.Issuer.LinkURL(link.Token),
		SentTo:    req.Email,
	})
}

// handleError mapea los kinds del service a respuestas HTTP.
// ErrInvitationUsed va antes que ErrInvalidInvitation porque lo envuelve.
func (c *Controller) handleError(w http.ResponseWriter, err error, log *zap.Logger) {
	switch {
	case errors.Is(err, svc.ErrUnauthenticated):
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
	case errors.Is(err, svc.ErrForbidden):
		httperrors.WriteError(w, httperrors.ErrForbidden)
	case errors.Is(err, svc.ErrInvitationUsed):
		httperrors.WriteError(w, httperrors.ErrInvitationUsed)
	case errors.Is(err, svc.ErrInvalidInvitation):
		httperrors.WriteError(w, httperrors.ErrInvalidInvitation)
	case errors.Is(err, svc.ErrInvitationExpired):
		httperrors.WriteError(w, httperrors.ErrInvitationExpired)
	case errors.Is(err, svc.ErrNotFound):
		httperrors.WriteError(w, httperrors.ErrClassroomNotFound)
	case errors.Is(err, svc.ErrBadInput):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail(err.Error()))
	case errors.Is(err, svc.ErrStorage):
		log.Error("storage failure", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrStorage.WithCause(err))
	case errors.Is(err, svc.ErrDelivery):
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithDetail("invitation email could not be delivered"))
	default:
		log.Error("unexpected invitations error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}
