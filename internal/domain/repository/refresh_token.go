package repository

import (
	"context"
	"time"
)

// RefreshToken es un token opaco de sesión; solo se persiste su hash.
type RefreshToken struct {
	ID          string
	PrincipalID string
	TokenHash   string
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	CreatedAt   time.Time
}

type CreateRefreshTokenInput struct {
	PrincipalID string
	TokenHash   string
	TTL         time.Duration
}

// RefreshTokenRepository define operaciones sobre refresh tokens.
type RefreshTokenRepository interface {
	Create(ctx context.Context, input CreateRefreshTokenInput) (*RefreshToken, error)
	// GetByHash retorna ErrNotFound si no existe.
	GetByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	// Revoke es idempotente.
	Revoke(ctx context.Context, id string) error
}
