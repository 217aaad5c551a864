package repository

import (
	"context"
	"time"
)

// School se referencia por ID en el flujo de invitaciones.
type School struct {
	ID         string
	Name       string
	DirectorID string
	CreatedAt  time.Time
}

// Classroom pertenece a exactamente una School.
type Classroom struct {
	ID        string
	SchoolID  string
	Name      string
	Grade     string
	CreatedAt time.Time
}

type CreateSchoolInput struct {
	Name       string
	DirectorID string
}

type CreateClassroomInput struct {
	SchoolID string
	Name     string
	Grade    string
}

// SchoolRepository define operaciones sobre escuelas.
type SchoolRepository interface {
	Create(ctx context.Context, input CreateSchoolInput) (*School, error)
	// Get retorna ErrNotFound si no existe.
	Get(ctx context.Context, id string) (*School, error)
}

// ClassroomRepository define operaciones sobre aulas.
type ClassroomRepository interface {
	// Create retorna ErrNotFound si la escuela no existe.
	Create(ctx context.Context, input CreateClassroomInput) (*Classroom, error)
	// Get retorna ErrNotFound si no existe.
	Get(ctx context.Context, id string) (*Classroom, error)
}
