package invitations

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aulaviva/invites/internal/domain/repository"
)

func TestRelationTo(t *testing.T) {
	cl := &repository.Classroom{ID: "c-1", SchoolID: "s-1"}

	assert.Equal(t, RelationSchool, RelationTo(repository.Claims{Role: repository.RoleDirector, SchoolID: "s-1"}, cl))
	assert.Equal(t, RelationNone, RelationTo(repository.Claims{Role: repository.RoleDirector, SchoolID: "s-2"}, cl))
	assert.Equal(t, RelationClassroom, RelationTo(repository.Claims{Role: repository.RoleTeacher, SchoolID: "s-1", ClassroomID: "c-1"}, cl))
	assert.Equal(t, RelationNone, RelationTo(repository.Claims{Role: repository.RoleTeacher, SchoolID: "s-1", ClassroomID: "c-2"}, cl))
	assert.Equal(t, RelationNone, RelationTo(repository.Claims{Role: repository.RoleParent, SchoolID: "s-1", ClassroomID: "c-1"}, cl))
	assert.Equal(t, RelationNone, RelationTo(repository.Claims{}, cl))
	assert.Equal(t, RelationNone, RelationTo(repository.Claims{Role: repository.RoleDirector, SchoolID: "s-1"}, nil))
}

func TestAllowed_Matrix(t *testing.T) {
	cl := &repository.Classroom{ID: "c-1", SchoolID: "s-1"}
	director := repository.Claims{Role: repository.RoleDirector, SchoolID: "s-1"}
	teacher := repository.Claims{Role: repository.RoleTeacher, SchoolID: "s-1", ClassroomID: "c-1"}
	parent := repository.Claims{Role: repository.RoleParent, SchoolID: "s-1", ClassroomID: "c-1"}

	cases := []struct {
		action    Action
		requester repository.Claims
		intended  repository.Role
		want      bool
	}{
		{ActionIssue, director, repository.RoleParent, true},
		{ActionIssue, director, repository.RoleTeacher, true},
		{ActionIssue, director, repository.RoleDirector, false},
		{ActionIssue, teacher, repository.RoleParent, true},
		{ActionIssue, teacher, repository.RoleTeacher, false},
		{ActionIssue, parent, repository.RoleParent, false},
		{ActionIssue, repository.Claims{}, repository.RoleParent, false},
		{ActionRevoke, director, repository.RoleParent, true},
		{ActionRevoke, director, repository.RoleTeacher, true},
		{ActionRevoke, teacher, repository.RoleParent, false},
		{ActionRevoke, parent, repository.RoleParent, false},
	}
	for _, tc := range cases {
		got := Allowed(tc.action, tc.requester, cl, tc.intended)
		assert.Equal(t, tc.want, got, "%s by %s for %s", tc.action, tc.requester.Role, tc.intended)
	}
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, "ok", outcomeOf(nil))
	assert.Equal(t, "forbidden", outcomeOf(ErrForbidden))
	assert.Equal(t, "used", outcomeOf(ErrInvitationUsed))
	assert.Equal(t, "expired", outcomeOf(ErrInvitationExpired))
	assert.Equal(t, "invalid", outcomeOf(ErrInvalidInvitation))
	assert.Equal(t, "error", outcomeOf(storageErr("x", errConnReset)))
}

func TestCanAttempt(t *testing.T) {
	assert.True(t, CanAttempt(ActionIssue, repository.RoleDirector, repository.RoleTeacher))
	assert.True(t, CanAttempt(ActionIssue, repository.RoleTeacher, repository.RoleParent))
	assert.False(t, CanAttempt(ActionIssue, repository.RoleTeacher, repository.RoleTeacher))
	assert.False(t, CanAttempt(ActionIssue, repository.RoleParent, repository.RoleParent))
	assert.False(t, CanAttempt(ActionIssue, repository.Role(""), repository.RoleParent))
	assert.False(t, CanAttempt(ActionRevoke, repository.RoleTeacher, repository.RoleParent))
}
