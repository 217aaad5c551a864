package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/aulaviva/invites/internal/domain/repository"
)

type invitationRepo struct {
	q querier
}

const invitationColumns = `token, school_id, classroom_id, intended_role, created_by, expires_at, used_at, created_at`

func scanInvitation(row interface{ Scan(...any) error }) (*repository.InvitationLink, error) {
	var l repository.InvitationLink
	var role string
	var createdBy *string
	if err := row.Scan(&l.Token, &l.SchoolID, &l.ClassroomID, &role, &createdBy,
		&l.ExpiresAt, &l.UsedAt, &l.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	l.IntendedRole = repository.Role(role)
	l.CreatedBy = deref(createdBy)
	return &l, nil
}

func (r *invitationRepo) GetByToken(ctx context.Context, token string) (*repository.InvitationLink, error) {
	row := r.q.QueryRow(ctx, `SELECT `+invitationColumns+` FROM invitation_link WHERE token = $1`, token)
	return scanInvitation(row)
}

func (r *invitationRepo) FindActive(ctx context.Context, classroomID string, role repository.Role, now time.Time) (*repository.InvitationLink, error) {
	return findActive(ctx, r.q, classroomID, role, now)
}

func findActive(ctx context.Context, q querier, classroomID string, role repository.Role, now time.Time) (*repository.InvitationLink, error) {
	row := q.QueryRow(ctx, `
		SELECT `+invitationColumns+`
		FROM invitation_link
		WHERE classroom_id = $1 AND intended_role = $2 AND used_at IS NULL AND expires_at > $3
		ORDER BY expires_at DESC
		LIMIT 1`,
		classroomID, string(role), now,
	)
	return scanInvitation(row)
}

// CreateIfNoActive serializa los "ensure" concurrentes del mismo aula con
// un lock de fila sobre classroom; el perdedor ve el token del ganador.
func (r *invitationRepo) CreateIfNoActive(ctx context.Context, link repository.InvitationLink, now time.Time) (*repository.InvitationLink, bool, error) {
	var out *repository.InvitationLink
	var created bool

	err := pgx.BeginFunc(ctx, r.q, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx,
			`SELECT id FROM classroom WHERE id = $1 FOR UPDATE`, link.ClassroomID,
		).Scan(&locked); err != nil {
			return mapErr(err)
		}

		existing, err := findActive(ctx, tx, link.ClassroomID, link.IntendedRole, now)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO invitation_link (token, school_id, classroom_id, intended_role, created_by, expires_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+invitationColumns,
			link.Token, link.SchoolID, link.ClassroomID, string(link.IntendedRole),
			nullIfEmpty(link.CreatedBy), link.ExpiresAt, link.CreatedAt,
		)
		out, err = scanInvitation(row)
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

func (r *invitationRepo) MarkUsed(ctx context.Context, token string, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE invitation_link SET used_at = $2
		WHERE token = $1 AND used_at IS NULL AND expires_at > $2`,
		token, at,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (r *invitationRepo) ExpireActive(ctx context.Context, classroomID string, role repository.Role, now time.Time) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		UPDATE invitation_link SET expires_at = $3
		WHERE classroom_id = $1 AND intended_role = $2 AND used_at IS NULL AND expires_at > $3
		RETURNING token`,
		classroomID, string(role), now,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	tokens, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapErr(err)
	}
	return tokens, nil
}

func (r *invitationRepo) ExpireToken(ctx context.Context, token string, now time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE invitation_link SET expires_at = $2
		WHERE token = $1 AND used_at IS NULL AND expires_at > $2`,
		token, now,
	)
	if err != nil {
		return false, mapErr(err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := r.q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM invitation_link WHERE token = $1)`, token,
	).Scan(&exists); err != nil {
		return false, mapErr(err)
	}
	if !exists {
		return false, repository.ErrNotFound
	}
	return false, nil
}
