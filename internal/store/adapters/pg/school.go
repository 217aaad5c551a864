package pg

import (
	"context"

	"github.com/google/uuid"

	"github.com/aulaviva/invites/internal/domain/repository"
)

type schoolRepo struct {
	q querier
}

func (r *schoolRepo) Create(ctx context.Context, in repository.CreateSchoolInput) (*repository.School, error) {
	var s repository.School
	var director *string
	err := r.q.QueryRow(ctx, `
		INSERT INTO school (id, name, director_id, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, name, director_id, created_at`,
		uuid.NewString(), in.Name, nullIfEmpty(in.DirectorID),
	).Scan(&s.ID, &s.Name, &director, &s.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	s.DirectorID = deref(director)
	return &s, nil
}

func (r *schoolRepo) Get(ctx context.Context, id string) (*repository.School, error) {
	var s repository.School
	var director *string
	err := r.q.QueryRow(ctx,
		`SELECT id, name, director_id, created_at FROM school WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &director, &s.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	s.DirectorID = deref(director)
	return &s, nil
}

type classroomRepo struct {
	q querier
}

func (r *classroomRepo) Create(ctx context.Context, in repository.CreateClassroomInput) (*repository.Classroom, error) {
	var c repository.Classroom
	err := r.q.QueryRow(ctx, `
		INSERT INTO classroom (id, school_id, name, grade, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, school_id, name, grade, created_at`,
		uuid.NewString(), in.SchoolID, in.Name, in.Grade,
	).Scan(&c.ID, &c.SchoolID, &c.Name, &c.Grade, &c.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (r *classroomRepo) Get(ctx context.Context, id string) (*repository.Classroom, error) {
	var c repository.Classroom
	err := r.q.QueryRow(ctx,
		`SELECT id, school_id, name, grade, created_at FROM classroom WHERE id = $1`, id,
	).Scan(&c.ID, &c.SchoolID, &c.Name, &c.Grade, &c.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}
