package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aulaviva/invites/internal/client"
	"github.com/aulaviva/invites/internal/config"
	identitydto "github.com/aulaviva/invites/internal/http/v2/dto/identity"
	invdto "github.com/aulaviva/invites/internal/http/v2/dto/invitations"
	schooldto "github.com/aulaviva/invites/internal/http/v2/dto/schools"
	"github.com/aulaviva/invites/internal/observability/logger"
)

func newTestServer(t *testing.T, tweak func(*config.Config)) *httptest.Server {
	t.Helper()
	logger.Replace(zap.NewNop())

	cfg := config.Default()
	cfg.Rate.Enabled = false
	if tweak != nil {
		tweak(cfg)
	}
	require.NoError(t, cfg.Validate())

	h, cleanup, err := BuildV2Handler(context.Background(), cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		_ = cleanup()
	})
	return srv
}

func fastRefresh() client.RefreshPolicy {
	p := client.DefaultRefreshPolicy()
	p.MaxWait = 2 * time.Second
	p.InitialBackoff = 10 * time.Millisecond
	p.MaxBackoff = 50 * time.Millisecond
	return p
}

type school struct {
	director  *client.Client
	schoolID  string
	classroom string
}

func setupSchool(t *testing.T, baseURL string) school {
	t.Helper()
	ctx := context.Background()
	dir := client.New(baseURL)

	_, err := dir.Signup(ctx, identitydto.SignupRequest{Email: "directora@escuela12.edu", Password: "directora1", FirstName: "Marta"})
	require.NoError(t, err)
	s, err := dir.CreateSchool(ctx, "Escuela 12")
	require.NoError(t, err)

	sess, err := dir.RefreshUntil(ctx, identitydto.Claims{Role: "DIRECTOR", SchoolID: s.ID}, fastRefresh())
	require.NoError(t, err)
	require.Equal(t, "DIRECTOR", sess.Claims.Role)

	c, err := dir.CreateClassroom(ctx, schooldto.CreateClassroomRequest{Name: "Sala Roja", Grade: "3"})
	require.NoError(t, err)
	return school{director: dir, schoolID: s.ID, classroom: c.ID}
}

func TestParentJoinsThroughDeepLink(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()
	sc := setupSchool(t, srv.URL)

	link, err := sc.director.EnsureInvitation(ctx, sc.classroom, "PARENT")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link.URL, "aulaviva://invite?token="))
	require.WithinDuration(t, time.Now().Add(7*24*time.Hour), link.ExpiresAt, time.Minute)

	again, err := sc.director.EnsureInvitation(ctx, sc.classroom, "PARENT")
	require.NoError(t, err)
	require.Equal(t, link.Token, again.Token)

	// la familia abre el link antes de tener cuenta
	anon := client.New(srv.URL)
	p, err := anon.PreviewInvitation(ctx, link.URL)
	require.NoError(t, err)
	require.Equal(t, "Escuela 12", p.SchoolName)
	require.Equal(t, "Sala Roja", p.Classroom.Name)
	require.Equal(t, "PARENT", p.IntendedRole)

	mom := client.New(srv.URL)
	s, err := mom.Signup(ctx, identitydto.SignupRequest{Email: "mama.lucas@example.com", Password: "lucas2020"})
	require.NoError(t, err)

	sc2 := client.NewSessionController(mom, fastRefresh())
	require.Equal(t, client.StateIdle, sc2.Sync(s.Claims))

	claims, err := sc2.AcceptInvitation(ctx, link.URL, "Lucas")
	require.NoError(t, err)
	require.Equal(t, identitydto.Claims{Role: "PARENT", SchoolID: sc.schoolID, ClassroomID: sc.classroom}, claims)
	require.Equal(t, client.StateReady, sc2.State())

	me, err := mom.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, claims, me.Claims)
	require.NotNil(t, me.Profile)
	require.Equal(t, "Lucas", me.Profile.ChildFirstName)
	require.Equal(t, "PARENT", me.Profile.Role)

	// el papá usa el mismo link
	dad := client.New(srv.URL)
	_, err = dad.Signup(ctx, identitydto.SignupRequest{Email: "papa.lucas@example.com", Password: "lucas2020"})
	require.NoError(t, err)
	res, err := dad.ConsumeInvitation(ctx, link.Token, "Lucas")
	require.NoError(t, err)
	require.Equal(t, "PARENT", res.Role)
}

func TestErrorKindsOverHTTP(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()
	sc := setupSchool(t, srv.URL)

	parent := client.New(srv.URL)
	_, err := parent.Signup(ctx, identitydto.SignupRequest{Email: "p@example.com", Password: "password1"})
	require.NoError(t, err)

	// sin sesión
	_, err = client.New(srv.URL).ConsumeInvitation(ctx, "x", "")
	require.ErrorIs(t, err, client.ErrUnauthenticated)

	// token inválido
	_, err = parent.PreviewInvitation(ctx, "no-es-un-token")
	require.ErrorIs(t, err, client.ErrInvalidInvitation)
	requireStatus(t, err, http.StatusBadRequest, "INVALID_INVITATION")

	// rol sin permiso
	_, err = parent.EnsureInvitation(ctx, sc.classroom, "PARENT")
	require.ErrorIs(t, err, client.ErrForbidden)
	requireStatus(t, err, http.StatusForbidden, "FORBIDDEN")

	// aula inexistente
	_, err = sc.director.EnsureInvitation(ctx, "no-existe", "PARENT")
	require.ErrorIs(t, err, client.ErrNotFound)

	// revocado → vencido, y ensure emite otro
	old, err := sc.director.EnsureInvitation(ctx, sc.classroom, "TEACHER")
	require.NoError(t, err)
	rev, err := sc.director.RevokeInvitation(ctx, invdto.RevokeRequest{ClassroomID: sc.classroom, IntendedRole: "TEACHER"})
	require.NoError(t, err)
	require.Equal(t, 1, rev.Revoked)

	_, err = parent.ConsumeInvitation(ctx, old.Token, "")
	require.ErrorIs(t, err, client.ErrExpired)
	require.NotErrorIs(t, err, client.ErrInvalidInvitation)
	requireStatus(t, err, http.StatusBadRequest, "INVITATION_EXPIRED")

	fresh, err := sc.director.EnsureInvitation(ctx, sc.classroom, "TEACHER")
	require.NoError(t, err)
	require.NotEqual(t, old.Token, fresh.Token)

	// TEACHER es de un solo uso
	teacher := client.New(srv.URL)
	_, err = teacher.Signup(ctx, identitydto.SignupRequest{Email: "maestra@example.com", Password: "password1"})
	require.NoError(t, err)
	_, err = teacher.ConsumeInvitation(ctx, fresh.Token, "")
	require.NoError(t, err)
	_, err = parent.ConsumeInvitation(ctx, fresh.Token, "")
	require.ErrorIs(t, err, client.ErrInvitationUsed)
	requireStatus(t, err, http.StatusBadRequest, "INVITATION_USED")

	// solo directores revocan
	_, err = teacher.RevokeInvitation(ctx, invdto.RevokeRequest{Token: fresh.Token})
	require.ErrorIs(t, err, client.ErrForbidden)
}

func requireStatus(t *testing.T, err error, status int, code string) {
	t.Helper()
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.Status)
	require.Equal(t, code, apiErr.Code)
}

func TestOperationalRoutes(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, path := range []string{"/healthz", "/readyz", "/.well-known/jwks.json", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, path)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, "%s: %s", path, body)
		if path == "/metrics" {
			require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
		}
	}

	resp, err := http.Get(srv.URL + "/.well-known/jwks.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	var jwks struct {
		Keys []struct {
			Kty string `json:"kty"`
			Kid string `json:"kid"`
		} `json:"keys"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jwks))
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "OKP", jwks.Keys[0].Kty)

	nf, err := http.Get(srv.URL + "/v2/nope")
	require.NoError(t, err)
	defer nf.Body.Close()
	require.Equal(t, http.StatusNotFound, nf.StatusCode)
	require.Equal(t, "no-store", nf.Header.Get("Cache-Control"))
}

func TestAuthRateLimit(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.Auth = 2
		c.Rate.Window = time.Hour
	})
	ctx := context.Background()
	cl := client.New(srv.URL)

	for i := 0; i < 2; i++ {
		_, err := cl.Login(ctx, identitydto.LoginRequest{Email: "nadie@example.com", Password: "password1"})
		requireStatus(t, err, http.StatusUnauthorized, "INVALID_CREDENTIALS")
	}
	_, err := cl.Login(ctx, identitydto.LoginRequest{Email: "nadie@example.com", Password: "password1"})
	require.ErrorIs(t, err, client.ErrRateLimited)
	require.True(t, client.IsRetryable(err))
}

func TestConsumeRateLimitIsPerUser(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.Auth = 100
		c.Rate.Consume = 1
		c.Rate.Window = time.Hour
	})
	ctx := context.Background()
	sc := setupSchool(t, srv.URL)
	link, err := sc.director.EnsureInvitation(ctx, sc.classroom, "PARENT")
	require.NoError(t, err)

	parent := func(email string) *client.Client {
		cl := client.New(srv.URL)
		_, err := cl.Signup(ctx, identitydto.SignupRequest{Email: email, Password: "familia123", FirstName: "Ana"})
		require.NoError(t, err)
		return cl
	}
	mom, dad := parent("mama@example.com"), parent("papa@example.com")

	_, err = mom.ConsumeInvitation(ctx, link.Token, "Lucas")
	require.NoError(t, err)
	_, err = mom.ConsumeInvitation(ctx, link.Token, "Lucas")
	require.ErrorIs(t, err, client.ErrRateLimited)

	// misma IP, otro usuario: bucket propio
	_, err = dad.ConsumeInvitation(ctx, link.Token, "Lucas")
	require.NoError(t, err)
}
