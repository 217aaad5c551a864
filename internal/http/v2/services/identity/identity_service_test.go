package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aulaviva/invites/internal/domain/repository"
	dto "github.com/aulaviva/invites/internal/http/v2/dto/identity"
	jwtx "github.com/aulaviva/invites/internal/jwt"
	"github.com/aulaviva/invites/internal/security/password"
	"github.com/aulaviva/invites/internal/store/adapters/memory"
)

var fastHash = password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func newService(t *testing.T) (Service, *memory.Store, *jwtx.Issuer) {
	t.Helper()
	ks, err := jwtx.NewEd25519("test")
	require.NoError(t, err)
	iss := jwtx.NewIssuer("https://api.aulaviva.test", ks)
	dal := memory.New()
	return NewService(Deps{DAL: dal, Issuer: iss, Password: &fastHash}), dal, iss
}

func TestSignupLoginMe(t *testing.T) {
	svc, _, iss := newService(t)
	ctx := context.Background()

	s, err := svc.Signup(ctx, dto.SignupRequest{Email: " Ana@Example.com", Password: "correcto1", FirstName: "Ana"})
	require.NoError(t, err)
	require.Equal(t, "Bearer", s.TokenType)
	require.NotEmpty(t, s.RefreshToken)
	require.Empty(t, s.Claims.Role)
	require.Greater(t, s.ExpiresIn, int64(0))

	sess, err := iss.Parse(s.AccessToken)
	require.NoError(t, err)
	require.Equal(t, s.PrincipalID, sess.Subject)
	require.Equal(t, "ana@example.com", sess.Email)

	_, err = svc.Signup(ctx, dto.SignupRequest{Email: "ana@example.com", Password: "otroPass1"})
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "incorrecto"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, dto.LoginRequest{Email: "nadie@example.com", Password: "correcto1"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	l, err := svc.Login(ctx, dto.LoginRequest{Email: "ANA@example.com", Password: "correcto1"})
	require.NoError(t, err)
	require.Equal(t, s.PrincipalID, l.PrincipalID)

	me, err := svc.Me(ctx, s.PrincipalID)
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", me.Email)
	require.Nil(t, me.Profile)

	_, err = svc.Me(ctx, "ghost")
	require.ErrorIs(t, err, ErrPrincipalNotFound)
}

func TestSignup_Validation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, dto.SignupRequest{Email: "", Password: "x"})
	require.ErrorIs(t, err, ErrMissingFields)
	_, err = svc.Signup(ctx, dto.SignupRequest{Email: "sin-arroba", Password: "correcto1"})
	require.ErrorIs(t, err, ErrInvalidEmail)
	_, err = svc.Signup(ctx, dto.SignupRequest{Email: "a@b.c", Password: "corto"})
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestRefresh_RotatesAndCarriesCurrentClaims(t *testing.T) {
	svc, dal, iss := newService(t)
	ctx := context.Background()

	s, err := svc.Signup(ctx, dto.SignupRequest{Email: "papa@example.com", Password: "correcto1"})
	require.NoError(t, err)

	// la promoción ocurre fuera de la sesión
	placed := repository.Claims{Role: repository.RoleParent, SchoolID: "s-1", ClassroomID: "c-1"}
	require.NoError(t, dal.Principals().UpdateClaims(ctx, s.PrincipalID, placed))

	old, err := iss.Parse(s.AccessToken)
	require.NoError(t, err)
	require.True(t, old.Claims.Empty())

	r, err := svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: s.RefreshToken})
	require.NoError(t, err)
	require.NotEqual(t, s.RefreshToken, r.RefreshToken)
	require.Equal(t, "PARENT", r.Claims.Role)
	require.Equal(t, "c-1", r.Claims.ClassroomID)

	fresh, err := iss.Parse(r.AccessToken)
	require.NoError(t, err)
	require.Equal(t, placed, fresh.Claims)

	// el refresh anterior quedó revocado
	_, err = svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: s.RefreshToken})
	require.ErrorIs(t, err, ErrInvalidRefresh)

	_, err = svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: "garbage"})
	require.ErrorIs(t, err, ErrInvalidRefresh)
	_, err = svc.Refresh(ctx, dto.RefreshRequest{})
	require.ErrorIs(t, err, ErrMissingFields)
}

func TestRefresh_Expired(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	s, err := svc.Signup(ctx, dto.SignupRequest{Email: "x@example.com", Password: "correcto1"})
	require.NoError(t, err)

	late := svc.(*service)
	late.deps.Now = func() time.Time { return time.Now().Add(defaultRefreshTTL + time.Hour) }
	_, err = late.Refresh(ctx, dto.RefreshRequest{RefreshToken: s.RefreshToken})
	require.ErrorIs(t, err, ErrInvalidRefresh)
}
