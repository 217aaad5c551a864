package invitations

import "github.com/aulaviva/invites/internal/domain/repository"

// Action es la operación que se autoriza contra la matriz.
type Action string

const (
	ActionIssue  Action = "issue"
	ActionRevoke Action = "revoke"
)

// Relation describe cómo se relaciona el requester con el aula objetivo.
type Relation int

const (
	RelationNone Relation = iota
	// RelationSchool: director de la escuela dueña del aula.
	RelationSchool
	// RelationClassroom: docente asignado exactamente a esa aula.
	RelationClassroom
)

func (r Relation) String() string {
	switch r {
	case RelationSchool:
		return "school"
	case RelationClassroom:
		return "classroom"
	}
	return "none"
}

type policyKey struct {
	action    Action
	requester repository.Role
	relation  Relation
	intended  repository.Role
}

// matrix lista las combinaciones permitidas; todo lo demás es Forbidden.
var matrix = map[policyKey]struct{}{
	{ActionIssue, repository.RoleDirector, RelationSchool, repository.RoleParent}:   {},
	{ActionIssue, repository.RoleDirector, RelationSchool, repository.RoleTeacher}:  {},
	{ActionIssue, repository.RoleTeacher, RelationClassroom, repository.RoleParent}: {},
	{ActionRevoke, repository.RoleDirector, RelationSchool, repository.RoleParent}:  {},
	{ActionRevoke, repository.RoleDirector, RelationSchool, repository.RoleTeacher}: {},
}

// RelationTo calcula la relación del claims bag del requester con el aula.
func RelationTo(c repository.Claims, cl *repository.Classroom) Relation {
	if cl == nil || c.SchoolID == "" || c.SchoolID != cl.SchoolID {
		return RelationNone
	}
	switch c.Role {
	case repository.RoleDirector:
		return RelationSchool
	case repository.RoleTeacher:
		if c.ClassroomID == cl.ID {
			return RelationClassroom
		}
	}
	return RelationNone
}

// Allowed consulta la matriz.
func Allowed(a Action, requester repository.Claims, cl *repository.Classroom, intended repository.Role) bool {
	_, ok := matrix[policyKey{a, requester.Role, RelationTo(requester, cl), intended}]
	return ok
}

// CanAttempt indica si algún aula permitiría la acción al rol del requester.
// Se consulta antes de buscar el aula: quien no puede emitir en ninguna recibe
// Forbidden y no aprende si el classroom_id existe.
func CanAttempt(a Action, requester repository.Role, intended repository.Role) bool {
	for _, rel := range []Relation{RelationSchool, RelationClassroom} {
		if _, ok := matrix[policyKey{a, requester, rel, intended}]; ok {
			return true
		}
	}
	return false
}
