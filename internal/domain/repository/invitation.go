package repository

import (
	"context"
	"time"
)

// InvitationLink es un token de invitación del ledger.
//
// Un token está activo sii UsedAt == nil && now < ExpiresAt.
// La revocación pone ExpiresAt = now.
type InvitationLink struct {
	Token        string
	SchoolID     string
	ClassroomID  string
	IntendedRole Role
	CreatedBy    string
	ExpiresAt    time.Time
	UsedAt       *time.Time
	CreatedAt    time.Time
}

// ActiveAt indica si el token está activo en el instante dado.
func (l InvitationLink) ActiveAt(now time.Time) bool {
	return l.UsedAt == nil && now.Before(l.ExpiresAt)
}

// ExpiredAt indica si la ventana de validez ya pasó (now >= expires_at).
func (l InvitationLink) ExpiredAt(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// InvitationRepository define operaciones sobre el ledger de invitaciones.
type InvitationRepository interface {
	// GetByToken busca por token exacto. ErrNotFound si no existe.
	GetByToken(ctx context.Context, token string) (*InvitationLink, error)

	// FindActive retorna el token activo más reciente para (classroom, role).
	// ErrNotFound si no hay ninguno.
	FindActive(ctx context.Context, classroomID string, role Role, now time.Time) (*InvitationLink, error)

	// CreateIfNoActive inserta link salvo que ya exista uno activo para
	// (classroom, role); en ese caso retorna el existente con created=false.
	// Retorna ErrConflict si el token colisiona con uno existente.
	CreateIfNoActive(ctx context.Context, link InvitationLink, now time.Time) (l *InvitationLink, created bool, err error)

	// MarkUsed setea used_at si el token sigue activo. ErrConflict si ya no lo está.
	MarkUsed(ctx context.Context, token string, at time.Time) error

	// ExpireActive pone expires_at = now en los tokens activos de (classroom, role)
	// y retorna los tokens afectados (vacío si no había ninguno).
	ExpireActive(ctx context.Context, classroomID string, role Role, now time.Time) ([]string, error)

	// ExpireToken pone expires_at = now si el token está activo.
	// changed=false si ya estaba inactivo. ErrNotFound si no existe.
	ExpireToken(ctx context.Context, token string, now time.Time) (changed bool, err error)
}
