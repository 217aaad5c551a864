package pg

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aulaviva/invites/internal/domain/repository"
)

type principalRepo struct {
	q querier
}

const principalColumns = `id, email, password_hash, first_name, last_name,
	claim_role, claim_school_id, claim_classroom_id, created_at, updated_at`

func scanPrincipal(row interface{ Scan(...any) error }) (*repository.Principal, error) {
	var p repository.Principal
	var role, schoolID, classroomID *string
	if err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.FirstName, &p.LastName,
		&role, &schoolID, &classroomID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	p.Claims = repository.Claims{
		Role:        repository.Role(deref(role)),
		SchoolID:    deref(schoolID),
		ClassroomID: deref(classroomID),
	}
	return &p, nil
}

func (r *principalRepo) Create(ctx context.Context, in repository.CreatePrincipalInput) (*repository.Principal, error) {
	now := time.Now().UTC()
	row := r.q.QueryRow(ctx, `
		INSERT INTO principal (id, email, password_hash, first_name, last_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING `+principalColumns,
		uuid.NewString(), strings.TrimSpace(in.Email), in.PasswordHash, in.FirstName, in.LastName, now,
	)
	return scanPrincipal(row)
}

func (r *principalRepo) GetByID(ctx context.Context, id string) (*repository.Principal, error) {
	row := r.q.QueryRow(ctx, `SELECT `+principalColumns+` FROM principal WHERE id = $1`, id)
	return scanPrincipal(row)
}

func (r *principalRepo) GetByEmail(ctx context.Context, email string) (*repository.Principal, error) {
	row := r.q.QueryRow(ctx, `SELECT `+principalColumns+` FROM principal WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email))
	return scanPrincipal(row)
}

func (r *principalRepo) UpdateClaims(ctx context.Context, id string, c repository.Claims) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE principal
		SET claim_role = $2, claim_school_id = $3, claim_classroom_id = $4, updated_at = NOW()
		WHERE id = $1`,
		id, nullIfEmpty(string(c.Role)), nullIfEmpty(c.SchoolID), nullIfEmpty(c.ClassroomID),
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
