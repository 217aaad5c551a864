package repository

import "strings"

// Role es el rol de aplicación de un Principal/Profile.
type Role string

const (
	RoleDirector Role = "DIRECTOR"
	RoleTeacher  Role = "TEACHER"
	RoleParent   Role = "PARENT"
)

// ParseRole normaliza y valida un rol. Retorna false si no es un rol conocido.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleDirector, RoleTeacher, RoleParent:
		return r, true
	}
	return "", false
}

// Invitable indica si se pueden emitir invitaciones para este rol.
func (r Role) Invitable() bool {
	return r == RoleParent || r == RoleTeacher
}

func (r Role) String() string { return string(r) }
