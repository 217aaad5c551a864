package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Kinds de error que la app muestra con mensajes distintos.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInvitation = errors.New("invalid invitation")
	ErrInvitationUsed    = fmt.Errorf("%w: already used", ErrInvalidInvitation)
	ErrExpired           = errors.New("invitation expired")
	ErrNotFound          = errors.New("not found")
	ErrStorage           = errors.New("storage failure")
	ErrRateLimited       = errors.New("rate limited")
)

// APIError es el cuerpo de error del API ({ok:false, code, message, ...}).
type APIError struct {
	Status    int    `json:"-"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s (%s)", e.Status, e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap expone el kind para errors.Is(err, client.ErrExpired) y similares.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "INVALID_INVITATION":
		return ErrInvalidInvitation
	case "INVITATION_USED":
		return ErrInvitationUsed
	case "INVITATION_EXPIRED":
		return ErrExpired
	case "CLASSROOM_NOT_FOUND", "NOT_FOUND":
		return ErrNotFound
	case "STORAGE_ERROR":
		return ErrStorage
	case "FORBIDDEN":
		return ErrForbidden
	case "RATE_LIMIT_EXCEEDED":
		return ErrRateLimited
	}
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthenticated
	}
	return nil
}

// IsRetryable indica si la misma llamada puede repetirse sin romper invariantes.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable || apiErr.Status >= 500
	}
	return false
}
