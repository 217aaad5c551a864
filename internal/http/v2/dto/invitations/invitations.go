// Package invitations contiene los DTOs de los endpoints de invitaciones.
package invitations

import (
	"strings"
	"time"
)

// EnsureRequest pide el link activo para (classroom, role).
type EnsureRequest struct {
	ClassroomID  string `json:"classroom_id"`
	IntendedRole string `json:"intended_role"`
}

// EnsureResponse es la respuesta de ensure; URL es el deep link.
type EnsureResponse struct {
	OK           bool      `json:"ok"`
	Token        string    `json:"token"`
	ExpiresAt    time.Time `json:"expires_at"`
	IntendedRole string    `json:"intended_role"`
	URL          string    `json:"url,omitempty"`
}

// PreviewRequest acepta el token pelado o el deep link completo.
type PreviewRequest struct {
	Token string `json:"token"`
}

// ClassroomSummary es la vista pública de un aula.
type ClassroomSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Grade string `json:"grade,omitempty"`
}

// PreviewResponse nunca expone used_at ni created_by.
type PreviewResponse struct {
	OK           bool             `json:"ok"`
	Token        string           `json:"token"`
	SchoolID     string           `json:"school_id"`
	SchoolName   string           `json:"school_name,omitempty"`
	ClassroomID  string           `json:"classroom_id"`
	IntendedRole string           `json:"intended_role"`
	ExpiresAt    time.Time        `json:"expires_at"`
	Classroom    ClassroomSummary `json:"classroom"`
}

// ConsumeRequest acepta childFirstName (contrato de la app) o child_first_name.
type ConsumeRequest struct {
	Token          string `json:"token"`
	ChildFirstName string `json:"childFirstName,omitempty"`
	ChildFirstAlt  string `json:"child_first_name,omitempty"`
}

// Child retorna el nombre del hijo/a, sea cual sea la key usada.
func (r ConsumeRequest) Child() string {
	if v := strings.TrimSpace(r.ChildFirstName); v != "" {
		return v
	}
	return strings.TrimSpace(r.ChildFirstAlt)
}

// ConsumeResponse es la nueva ubicación del Principal.
type ConsumeResponse struct {
	OK          bool   `json:"ok"`
	Role        string `json:"role"`
	SchoolID    string `json:"school_id"`
	ClassroomID string `json:"classroom_id"`
}

// RevokeRequest lleva token, o bien classroom_id + intended_role.
type RevokeRequest struct {
	Token        string `json:"token,omitempty"`
	ClassroomID  string `json:"classroom_id,omitempty"`
	IntendedRole string `json:"intended_role,omitempty"`
}

type RevokeResponse struct {
	OK      bool `json:"ok"`
	Revoked int  `json:"revoked"`
}

// SendRequest hace ensure y manda el link por email.
type SendRequest struct {
	ClassroomID  string `json:"classroom_id"`
	IntendedRole string `json:"intended_role"`
	Email        string `json:"email"`
}

type SendResponse struct {
	OK        bool      `json:"ok"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	URL       string    `json:"url"`
	SentTo    string    `json:"sent_to"`
}
