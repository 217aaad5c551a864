package repository

import (
	"context"
	"time"
)

// Profile es el registro durable por Principal (mismo ID).
type Profile struct {
	ID             string
	Role           Role
	SchoolID       string
	ClassroomID    string
	DisplayName    string
	ChildFirstName string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Placement retorna la tripleta (role, school, classroom) como Claims,
// útil para comparar contra el claims bag del Principal.
func (p Profile) Placement() Claims {
	return Claims{Role: p.Role, SchoolID: p.SchoolID, ClassroomID: p.ClassroomID}
}

// UpsertProfileInput contiene los datos para crear o reubicar un Profile.
type UpsertProfileInput struct {
	ID          string
	Role        Role
	SchoolID    string
	ClassroomID string

	// DisplayName solo se usa al crear.
	DisplayName string

	// ChildFirstName se escribe solo si no está vacío.
	ChildFirstName string
}

// ProfileRepository define operaciones sobre profiles.
type ProfileRepository interface {
	// Get retorna ErrNotFound si el Principal no tiene Profile.
	Get(ctx context.Context, id string) (*Profile, error)

	// Upsert inserta si no existe; si existe actualiza role/school/classroom en su lugar.
	// created indica si se insertó una fila nueva.
	Upsert(ctx context.Context, input UpsertProfileInput) (p *Profile, created bool, err error)
}
