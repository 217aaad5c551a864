// Package identity contiene los DTOs de signup, login, refresh y /me.
package identity

import "time"

type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SessionResponse se devuelve en signup, login y refresh.
type SessionResponse struct {
	OK           bool      `json:"ok"`
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"` // "Bearer"
	ExpiresIn    int64     `json:"expires_in"` // segundos
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token"`
	PrincipalID  string    `json:"principal_id"`
	Claims       Claims    `json:"claims"`
}

// Claims es el claims bag tal como lo ve el cliente.
type Claims struct {
	Role        string `json:"role,omitempty"`
	SchoolID    string `json:"school_id,omitempty"`
	ClassroomID string `json:"classroom_id,omitempty"`
}

type Profile struct {
	Role           string    `json:"role"`
	SchoolID       string    `json:"school_id,omitempty"`
	ClassroomID    string    `json:"classroom_id,omitempty"`
	DisplayName    string    `json:"display_name"`
	ChildFirstName string    `json:"child_first_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// MeResponse muestra claims actuales (no las del token) y el profile si existe.
type MeResponse struct {
	OK          bool     `json:"ok"`
	PrincipalID string   `json:"principal_id"`
	Email       string   `json:"email"`
	Claims      Claims   `json:"claims"`
	Profile     *Profile `json:"profile,omitempty"`
}
