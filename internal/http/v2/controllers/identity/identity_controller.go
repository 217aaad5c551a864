// Package identity contiene el controller de signup, login, refresh y /me.
package identity

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	dto "github.com/aulaviva/invites/internal/http/v2/dto/identity"
	httperrors "github.com/aulaviva/invites/internal/http/v2/errors"
	"github.com/aulaviva/invites/internal/http/v2/helpers"
	mw "github.com/aulaviva/invites/internal/http/v2/middlewares"
	svc "github.com/aulaviva/invites/internal/http/v2/services/identity"
	"github.com/aulaviva/invites/internal/observability/logger"
)

// Controller maneja /v2/auth/*, /v2/session/refresh y /v2/me.
type Controller struct {
	service svc.Service
}

func NewController(service svc.Service) *Controller {
	return &Controller{service: service}
}

// Signup maneja POST /v2/auth/signup
func (c *Controller) Signup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Identity.Signup"))

	if !helpers.RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req dto.SignupRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	res, err := c.service.Signup(ctx, req)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	res.OK = true
	helpers.WriteJSON(w, http.StatusCreated, res)
}

// Login maneja POST /v2/auth/login
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Identity.Login"))

	if !helpers.RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req dto.LoginRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	res, err := c.service.Login(ctx, req)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	res.OK = true
	helpers.WriteJSON(w, http.StatusOK, res)
}

// Refresh maneja POST /v2/session/refresh
func (c *Controller) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Identity.Refresh"))

	if !helpers.RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req dto.RefreshRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	res, err := c.service.Refresh(ctx, req)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	res.OK = true
	helpers.WriteJSON(w, http.StatusOK, res)
}

// Me maneja GET /v2/me
func (c *Controller) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Identity.Me"))

	if !helpers.RequireMethod(w, r, http.MethodGet) {
		return
	}
	res, err := c.service.Me(ctx, mw.GetUserID(ctx))
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	res.OK = true
	helpers.WriteJSON(w, http.StatusOK, res)
}

func (c *Controller) handleError(w http.ResponseWriter, err error, log *zap.Logger) {
	switch {
	case errors.Is(err, svc.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields)
	case errors.Is(err, svc.ErrInvalidEmail), errors.Is(err, svc.ErrWeakPassword):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail(err.Error()))
	case errors.Is(err, svc.ErrEmailTaken):
		httperrors.WriteError(w, httperrors.ErrConflict.WithDetail("email already registered"))
	case errors.Is(err, svc.ErrInvalidCredentials):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
	case errors.Is(err, svc.ErrInvalidRefresh):
		httperrors.WriteError(w, httperrors.ErrTokenInvalid.WithDetail("invalid or expired refresh token"))
	case errors.Is(err, svc.ErrPrincipalNotFound):
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
	case errors.Is(err, svc.ErrStorage):
		log.Error("storage failure", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrStorage.WithCause(err))
	default:
		log.Error("unexpected identity error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}
