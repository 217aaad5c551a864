package repository

import (
	"context"
	"strings"
	"time"
)

// Claims es el "claims bag" mutable de un Principal. Viaja en cada session token.
type Claims struct {
	Role        Role
	SchoolID    string
	ClassroomID string
}

// Empty indica que el Principal todavía no fue aprovisionado.
func (c Claims) Empty() bool {
	return c.Role == "" && c.SchoolID == "" && c.ClassroomID == ""
}

// Principal es una identidad autenticada.
type Principal struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Claims       Claims
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName combina nombre y apellido; cae al local-part del email.
func (p Principal) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	if name != "" {
		return name
	}
	if at := strings.IndexByte(p.Email, '@'); at > 0 {
		return p.Email[:at]
	}
	return p.Email
}

// CreatePrincipalInput contiene los datos para crear un Principal.
type CreatePrincipalInput struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
}

// PrincipalRepository es el Identity Store: principals y su claims bag.
type PrincipalRepository interface {
	// Create crea un Principal sin claims. ErrConflict si el email ya existe.
	Create(ctx context.Context, input CreatePrincipalInput) (*Principal, error)

	// GetByID retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Principal, error)

	// GetByEmail retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*Principal, error)

	// UpdateClaims reemplaza el claims bag completo.
	UpdateClaims(ctx context.Context, id string, claims Claims) error
}
