package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aulaviva/invites/internal/domain/repository"
	"github.com/aulaviva/invites/internal/store"
)

func seedClassroom(t *testing.T, s *Store) *repository.Classroom {
	t.Helper()
	ctx := context.Background()
	sc, err := s.Schools().Create(ctx, repository.CreateSchoolInput{Name: "Escuela 12", DirectorID: "d-1"})
	require.NoError(t, err)
	c, err := s.Classrooms().Create(ctx, repository.CreateClassroomInput{SchoolID: sc.ID, Name: "Sala Roja"})
	require.NoError(t, err)
	return c
}

func link(tok string, c *repository.Classroom, role repository.Role, exp time.Time) repository.InvitationLink {
	return repository.InvitationLink{
		Token: tok, SchoolID: c.SchoolID, ClassroomID: c.ID,
		IntendedRole: role, CreatedBy: "d-1", ExpiresAt: exp,
	}
}

func TestPrincipals_EmailUniqueCaseInsensitive(t *testing.T) {
	s := New()
	ctx := context.Background()

	p, err := s.Principals().Create(ctx, repository.CreatePrincipalInput{Email: "Ana@Example.com"})
	require.NoError(t, err)

	_, err = s.Principals().Create(ctx, repository.CreatePrincipalInput{Email: "ana@example.com"})
	require.ErrorIs(t, err, repository.ErrConflict)

	got, err := s.Principals().GetByEmail(ctx, "ANA@example.com ")
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)
}

func TestInvitations_CreateIfNoActive(t *testing.T) {
	s := New()
	ctx := context.Background()
	c := seedClassroom(t, s)
	now := time.Now().UTC()

	first, created, err := s.Invitations().CreateIfNoActive(ctx, link("tok-a", c, repository.RoleParent, now.Add(time.Hour)), now)
	require.NoError(t, err)
	require.True(t, created)

	// otro token para el mismo (classroom, role) devuelve el activo
	again, created, err := s.Invitations().CreateIfNoActive(ctx, link("tok-b", c, repository.RoleParent, now.Add(time.Hour)), now)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.Token, again.Token)

	// otro rol es otro slot
	_, created, err = s.Invitations().CreateIfNoActive(ctx, link("tok-c", c, repository.RoleTeacher, now.Add(time.Hour)), now)
	require.NoError(t, err)
	require.True(t, created)

	_, _, err = s.Invitations().CreateIfNoActive(ctx, link("tok-x", &repository.Classroom{ID: "nope"}, repository.RoleParent, now.Add(time.Hour)), now)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInvitations_CreateIfNoActiveConcurrent(t *testing.T) {
	s := New()
	ctx := context.Background()
	c := seedClassroom(t, s)
	now := time.Now().UTC()

	const n = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		tokens  = map[string]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l, ok, err := s.Invitations().CreateIfNoActive(ctx, link(fmt.Sprintf("tok-%d", i), c, repository.RoleParent, now.Add(time.Hour)), now)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if ok {
				created++
			}
			tokens[l.Token] = true
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, created)
	require.Len(t, tokens, 1)
}

func TestInvitations_TokenCollision(t *testing.T) {
	s := New()
	ctx := context.Background()
	c := seedClassroom(t, s)
	now := time.Now().UTC()

	_, _, err := s.Invitations().CreateIfNoActive(ctx, link("same", c, repository.RoleParent, now.Add(-time.Minute)), now)
	require.NoError(t, err)
	_, _, err = s.Invitations().CreateIfNoActive(ctx, link("same", c, repository.RoleParent, now.Add(time.Hour)), now)
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestInvitations_ExpireAndMarkUsed(t *testing.T) {
	s := New()
	ctx := context.Background()
	c := seedClassroom(t, s)
	now := time.Now().UTC()

	_, _, err := s.Invitations().CreateIfNoActive(ctx, link("p-1", c, repository.RoleParent, now.Add(time.Hour)), now)
	require.NoError(t, err)

	toks, err := s.Invitations().ExpireActive(ctx, c.ID, repository.RoleParent, now)
	require.NoError(t, err)
	require.Equal(t, []string{"p-1"}, toks)

	_, err = s.Invitations().FindActive(ctx, c.ID, repository.RoleParent, now)
	require.ErrorIs(t, err, repository.ErrNotFound)

	changed, err := s.Invitations().ExpireToken(ctx, "p-1", now)
	require.NoError(t, err)
	require.False(t, changed)

	_, err = s.Invitations().ExpireToken(ctx, "missing", now)
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, _, err = s.Invitations().CreateIfNoActive(ctx, link("t-1", c, repository.RoleTeacher, now.Add(time.Hour)), now)
	require.NoError(t, err)
	require.NoError(t, s.Invitations().MarkUsed(ctx, "t-1", now))
	require.ErrorIs(t, s.Invitations().MarkUsed(ctx, "t-1", now), repository.ErrConflict)

	l, err := s.Invitations().GetByToken(ctx, "t-1")
	require.NoError(t, err)
	require.NotNil(t, l.UsedAt)
}

func TestWithTx_RollbackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	p, err := s.Principals().Create(ctx, repository.CreatePrincipalInput{Email: "a@b.c"})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithTx(ctx, func(tx store.Repositories) error {
		_, _, err := tx.Profiles().Upsert(ctx, repository.UpsertProfileInput{ID: p.ID, Role: repository.RoleParent, SchoolID: "s", ClassroomID: "c"})
		require.NoError(t, err)
		require.NoError(t, tx.Principals().UpdateClaims(ctx, p.ID, repository.Claims{Role: repository.RoleParent}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Profiles().Get(ctx, p.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
	got, err := s.Principals().GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, got.Claims.Empty())
}

func TestWithTx_Commit(t *testing.T) {
	s := New()
	ctx := context.Background()
	p, err := s.Principals().Create(ctx, repository.CreatePrincipalInput{Email: "a@b.c"})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx store.Repositories) error {
		prof, created, err := tx.Profiles().Upsert(ctx, repository.UpsertProfileInput{ID: p.ID, Role: repository.RoleTeacher, SchoolID: "s", ClassroomID: "c", DisplayName: "Ana"})
		require.NoError(t, err)
		require.True(t, created)
		return tx.Principals().UpdateClaims(ctx, p.ID, prof.Placement())
	})
	require.NoError(t, err)

	prof, err := s.Profiles().Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, repository.RoleTeacher, prof.Role)
	got, _ := s.Principals().GetByID(ctx, p.ID)
	require.Equal(t, prof.Placement(), got.Claims)
}

func TestProfiles_UpsertKeepsChildName(t *testing.T) {
	s := New()
	ctx := context.Background()
	p, err := s.Principals().Create(ctx, repository.CreatePrincipalInput{Email: "a@b.c"})
	require.NoError(t, err)

	_, _, err = s.Profiles().Upsert(ctx, repository.UpsertProfileInput{ID: p.ID, Role: repository.RoleParent, ChildFirstName: "Lucas"})
	require.NoError(t, err)
	prof, created, err := s.Profiles().Upsert(ctx, repository.UpsertProfileInput{ID: p.ID, Role: repository.RoleParent, ClassroomID: "c-2"})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "Lucas", prof.ChildFirstName)
	require.Equal(t, "c-2", prof.ClassroomID)
}

func TestAdapterRegistered(t *testing.T) {
	dal, err := store.Open(context.Background(), store.AdapterConfig{Name: "memory"})
	require.NoError(t, err)
	require.Equal(t, "memory", dal.Name())
}
