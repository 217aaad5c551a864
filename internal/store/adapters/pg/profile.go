package pg

import (
	"context"

	"github.com/aulaviva/invites/internal/domain/repository"
)

type profileRepo struct {
	q querier
}

const profileColumns = `id, role, school_id, classroom_id, display_name, child_first_name, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (*repository.Profile, error) {
	var p repository.Profile
	var role string
	var schoolID, classroomID, child *string
	if err := row.Scan(&p.ID, &role, &schoolID, &classroomID, &p.DisplayName, &child,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	p.Role = repository.Role(role)
	p.SchoolID = deref(schoolID)
	p.ClassroomID = deref(classroomID)
	p.ChildFirstName = deref(child)
	return &p, nil
}

func (r *profileRepo) Get(ctx context.Context, id string) (*repository.Profile, error) {
	row := r.q.QueryRow(ctx, `SELECT `+profileColumns+` FROM profile WHERE id = $1`, id)
	return scanProfile(row)
}

// Upsert usa ON CONFLICT; (xmax = 0) distingue insert de update.
func (r *profileRepo) Upsert(ctx context.Context, in repository.UpsertProfileInput) (*repository.Profile, bool, error) {
	var created bool
	var p repository.Profile
	var role string
	var schoolID, classroomID, child *string
	err := r.q.QueryRow(ctx, `
		INSERT INTO profile (id, role, school_id, classroom_id, display_name, child_first_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			role = EXCLUDED.role,
			school_id = EXCLUDED.school_id,
			classroom_id = EXCLUDED.classroom_id,
			child_first_name = COALESCE(EXCLUDED.child_first_name, profile.child_first_name),
			updated_at = NOW()
		RETURNING `+profileColumns+`, (xmax = 0)`,
		in.ID, string(in.Role), nullIfEmpty(in.SchoolID), nullIfEmpty(in.ClassroomID),
		in.DisplayName, nullIfEmpty(in.ChildFirstName),
	).Scan(&p.ID, &role, &schoolID, &classroomID, &p.DisplayName, &child, &p.CreatedAt, &p.UpdatedAt, &created)
	if err != nil {
		return nil, false, mapErr(err)
	}
	p.Role = repository.Role(role)
	p.SchoolID = deref(schoolID)
	p.ClassroomID = deref(classroomID)
	p.ChildFirstName = deref(child)
	return &p, created, nil
}
