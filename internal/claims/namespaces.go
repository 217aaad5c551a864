// Package claims codifica el claims bag (role, school, classroom) dentro de
// los session tokens.
package claims

import (
	"strings"

	"github.com/aulaviva/invites/internal/domain/repository"
)

const devSysNSFallback = "https://aulaviva.local/claims/sys"

// Claves dentro del namespace de sistema.
const (
	KeyRole        = "role"
	KeySchoolID    = "school_id"
	KeyClassroomID = "classroom_id"
)

// SystemNamespace construye el namespace de claims "de sistema" anclado al issuer.
// Ej: https://api.aulaviva.app/claims/sys
func SystemNamespace(issuer string) string {
	iss := strings.TrimSpace(issuer)
	if iss == "" {
		return devSysNSFallback
	}
	return strings.TrimRight(iss, "/") + "/claims/sys"
}

// Encode convierte el claims bag al mapa que se firma. Los campos vacíos se omiten.
func Encode(c repository.Claims) map[string]any {
	out := make(map[string]any, 3)
	if c.Role != "" {
		out[KeyRole] = string(c.Role)
	}
	if c.SchoolID != "" {
		out[KeySchoolID] = c.SchoolID
	}
	if c.ClassroomID != "" {
		out[KeyClassroomID] = c.ClassroomID
	}
	return out
}

// Decode es la inversa de Encode. Roles desconocidos se descartan.
func Decode(m map[string]any) repository.Claims {
	var c repository.Claims
	if s, _ := m[KeyRole].(string); s != "" {
		if r, ok := repository.ParseRole(s); ok {
			c.Role = r
		}
	}
	c.SchoolID, _ = m[KeySchoolID].(string)
	c.ClassroomID, _ = m[KeyClassroomID].(string)
	return c
}
