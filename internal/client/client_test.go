package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identitydto "github.com/aulaviva/invites/internal/http/v2/dto/identity"
)

// fakeAPI simula /v2/session/refresh y /v2/invitations/consume.
type fakeAPI struct {
	refreshCalls atomic.Int32
	// refreshFn decide la respuesta del n-ésimo refresh (1-based).
	refreshFn func(n int) (int, any)
	consumeFn func() (int, any)

	// Con hold != nil el refresh #1 cierra held y espera a que se cierre hold.
	hold, held chan struct{}

	// rotating rechaza refresh tokens que no sean el último emitido.
	rotating bool
	mu       sync.Mutex
	current  string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/session/refresh", func(w http.ResponseWriter, r *http.Request) {
		var in identitydto.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		n := int(f.refreshCalls.Add(1))
		if n == 1 && f.hold != nil {
			close(f.held)
			<-f.hold
		}
		status, body := f.refreshFn(n)
		if f.rotating {
			f.mu.Lock()
			if in.RefreshToken != f.current {
				f.mu.Unlock()
				writeJSON(w, http.StatusUnauthorized, APIError{Code: "TOKEN_INVALID", Message: "refresh token rotated"})
				return
			}
			if s, ok := body.(identitydto.SessionResponse); ok && status == http.StatusOK {
				f.current = s.RefreshToken
			}
			f.mu.Unlock()
		}
		writeJSON(w, status, body)
	})
	mux.HandleFunc("/v2/invitations/consume", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			writeJSON(w, http.StatusUnauthorized, APIError{Code: "TOKEN_MISSING", Message: "no token"})
			return
		}
		status, body := f.consumeFn()
		writeJSON(w, status, body)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func session(n int, c identitydto.Claims) identitydto.SessionResponse {
	return identitydto.SessionResponse{
		OK:           true,
		AccessToken:  "access-" + string(rune('a'+n)),
		RefreshToken: "refresh-" + string(rune('a'+n)),
		Claims:       c,
	}
}

var parentClaims = identitydto.Claims{Role: "PARENT", SchoolID: "s-1", ClassroomID: "c-1"}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func newFake(t *testing.T, f *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	c := New(srv.URL)
	c.SetTokens("access-0", "refresh-0")
	return c
}

func TestAPIError_Kinds(t *testing.T) {
	cases := map[string]error{
		"INVALID_INVITATION":  ErrInvalidInvitation,
		"INVITATION_USED":     ErrInvitationUsed,
		"INVITATION_EXPIRED":  ErrExpired,
		"CLASSROOM_NOT_FOUND": ErrNotFound,
		"STORAGE_ERROR":       ErrStorage,
		"FORBIDDEN":           ErrForbidden,
		"RATE_LIMIT_EXCEEDED": ErrRateLimited,
	}
	for code, want := range cases {
		assert.ErrorIs(t, &APIError{Status: 400, Code: code}, want, code)
	}
	assert.ErrorIs(t, &APIError{Status: 401, Code: "TOKEN_EXPIRED"}, ErrUnauthenticated)
	assert.ErrorIs(t, &APIError{Status: 400, Code: "INVITATION_USED"}, ErrInvalidInvitation)
	assert.NotErrorIs(t, &APIError{Status: 400, Code: "INVITATION_EXPIRED"}, ErrInvalidInvitation)

	assert.True(t, IsRetryable(&APIError{Status: 400, Code: "STORAGE_ERROR", Retryable: true}))
	assert.True(t, IsRetryable(&APIError{Status: 503}))
	assert.False(t, IsRetryable(&APIError{Status: 400, Code: "INVALID_INVITATION"}))
}

func TestRefreshUntil_WaitsForClaims(t *testing.T) {
	f := &fakeAPI{refreshFn: func(n int) (int, any) {
		if n < 3 {
			return http.StatusOK, session(n, identitydto.Claims{})
		}
		return http.StatusOK, session(n, parentClaims)
	}}
	c := newFake(t, f)

	var slept []time.Duration
	p := DefaultRefreshPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}

	s, err := c.RefreshUntil(context.Background(), parentClaims, p)
	require.NoError(t, err)
	require.Equal(t, parentClaims, s.Claims)
	require.EqualValues(t, 3, f.refreshCalls.Load())
	require.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, slept)

	access, refresh := c.Tokens()
	require.Equal(t, "access-d", access)
	require.Equal(t, "refresh-d", refresh)
}

func TestRefreshUntil_BackoffIsCapped(t *testing.T) {
	f := &fakeAPI{refreshFn: func(n int) (int, any) {
		if n < 6 {
			return http.StatusOK, session(n, identitydto.Claims{})
		}
		return http.StatusOK, session(n, parentClaims)
	}}
	c := newFake(t, f)

	var slept []time.Duration
	p := RefreshPolicy{Sleep: func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}}
	_, err := c.RefreshUntil(context.Background(), parentClaims, p)
	require.NoError(t, err)
	require.Equal(t, []time.Duration{
		200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second, time.Second,
	}, slept)
}

func TestRefreshUntil_RetriesRetryableErrors(t *testing.T) {
	f := &fakeAPI{refreshFn: func(n int) (int, any) {
		if n == 1 {
			return http.StatusBadRequest, APIError{Code: "STORAGE_ERROR", Message: "x", Retryable: true}
		}
		return http.StatusOK, session(n, parentClaims)
	}}
	c := newFake(t, f)
	p := DefaultRefreshPolicy()
	p.Sleep = noSleep

	s, err := c.RefreshUntil(context.Background(), parentClaims, p)
	require.NoError(t, err)
	require.Equal(t, "PARENT", s.Claims.Role)
	require.EqualValues(t, 2, f.refreshCalls.Load())
}

func TestRefreshUntil_StopsOnFatalError(t *testing.T) {
	f := &fakeAPI{refreshFn: func(int) (int, any) {
		return http.StatusUnauthorized, APIError{Code: "INVALID_REFRESH", Message: "x"}
	}}
	c := newFake(t, f)
	p := DefaultRefreshPolicy()
	p.Sleep = noSleep

	_, err := c.RefreshUntil(context.Background(), parentClaims, p)
	require.ErrorIs(t, err, ErrUnauthenticated)
	require.EqualValues(t, 1, f.refreshCalls.Load())
}

func TestRefreshUntil_GivesUpAfterMaxWait(t *testing.T) {
	f := &fakeAPI{refreshFn: func(n int) (int, any) {
		return http.StatusOK, session(n%20, identitydto.Claims{})
	}}
	c := newFake(t, f)
	p := RefreshPolicy{MaxWait: 150 * time.Millisecond, InitialBackoff: 10 * time.Millisecond, MaxBackoff: 20 * time.Millisecond}

	start := time.Now()
	s, err := c.RefreshUntil(context.Background(), parentClaims, p)
	require.ErrorIs(t, err, ErrClaimsNotPropagated)
	require.NotNil(t, s)
	require.Less(t, time.Since(start), 2*time.Second)
	require.Greater(t, f.refreshCalls.Load(), int32(1))
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches(parentClaims, identitydto.Claims{Role: "PARENT"}))
	assert.True(t, Matches(parentClaims, parentClaims))
	assert.False(t, Matches(parentClaims, identitydto.Claims{Role: "PARENT", ClassroomID: "c-2"}))
	assert.False(t, Matches(identitydto.Claims{}, identitydto.Claims{Role: "TEACHER"}))
}

func TestConsumeWithoutSession(t *testing.T) {
	f := &fakeAPI{}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	_, err := New(srv.URL).ConsumeInvitation(context.Background(), "tok", "")
	require.ErrorIs(t, err, ErrUnauthenticated)
}


func TestRefresh_ConcurrentCallsShareOneRotation(t *testing.T) {
	f := &fakeAPI{
		hold: make(chan struct{}), held: make(chan struct{}),
		rotating: true, current: "refresh-0",
		refreshFn: func(n int) (int, any) { return http.StatusOK, session(n, parentClaims) },
	}
	c := newFake(t, f)

	errs := make(chan error, 2)
	go func() {
		_, err := c.Refresh(context.Background())
		errs <- err
	}()
	<-f.held
	go func() {
		_, err := c.Refresh(context.Background())
		errs <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(f.hold)

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	_, rt := c.Tokens()
	require.Equal(t, "refresh-"+string(rune('a'+int(f.refreshCalls.Load()))), rt)
}
