package pg

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aulaviva/invites/internal/domain/repository"
)

type refreshTokenRepo struct {
	q querier
}

func (r *refreshTokenRepo) Create(ctx context.Context, in repository.CreateRefreshTokenInput) (*repository.RefreshToken, error) {
	now := time.Now().UTC()
	t := repository.RefreshToken{
		ID:          uuid.NewString(),
		PrincipalID: in.PrincipalID,
		TokenHash:   in.TokenHash,
		ExpiresAt:   now.Add(in.TTL),
		CreatedAt:   now,
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO refresh_token (id, principal_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.PrincipalID, t.TokenHash, t.ExpiresAt, t.CreatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r *refreshTokenRepo) GetByHash(ctx context.Context, tokenHash string) (*repository.RefreshToken, error) {
	var t repository.RefreshToken
	err := r.q.QueryRow(ctx, `
		SELECT id, principal_id, token_hash, expires_at, revoked_at, created_at
		FROM refresh_token WHERE token_hash = $1`, tokenHash,
	).Scan(&t.ID, &t.PrincipalID, &t.TokenHash, &t.ExpiresAt, &t.RevokedAt, &t.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r *refreshTokenRepo) Revoke(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx,
		`UPDATE refresh_token SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, id)
	return mapErr(err)
}
