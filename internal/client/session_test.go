package client

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	identitydto "github.com/aulaviva/invites/internal/http/v2/dto/identity"
	invdto "github.com/aulaviva/invites/internal/http/v2/dto/invitations"
)

func consumeOK() (int, any) {
	return http.StatusOK, invdto.ConsumeResponse{OK: true, Role: "PARENT", SchoolID: "s-1", ClassroomID: "c-1"}
}

func TestSessionController_Transitions(t *testing.T) {
	sc := NewSessionController(New("http://unused"), DefaultRefreshPolicy())
	require.Equal(t, StateIdle, sc.State())

	require.NoError(t, sc.BeginProvisioning())
	require.ErrorIs(t, sc.BeginProvisioning(), ErrProvisioningInFlight)
	require.False(t, sc.CanAutoRefresh())

	// Sync externo no pisa una promoción en curso
	require.Equal(t, StateProvisioning, sc.Sync(parentClaims))

	refreshed, err := sc.RefreshProfile(context.Background())
	require.NoError(t, err)
	require.False(t, refreshed)

	sc.EndProvisioning(parentClaims)
	require.Equal(t, StateReady, sc.State())
	require.True(t, sc.CanAutoRefresh())

	require.Equal(t, StateIdle, sc.Sync(identitydto.Claims{}))
	require.Equal(t, "idle", sc.State().String())
}

func TestAcceptInvitation_Ready(t *testing.T) {
	f := &fakeAPI{
		consumeFn: consumeOK,
		refreshFn: func(n int) (int, any) {
			if n == 1 {
				return http.StatusOK, session(n, identitydto.Claims{})
			}
			return http.StatusOK, session(n, parentClaims)
		},
	}
	c := newFake(t, f)
	p := DefaultRefreshPolicy()
	p.Sleep = noSleep
	sc := NewSessionController(c, p)

	claims, err := sc.AcceptInvitation(context.Background(), "aulaviva://invite?token=abc", "Lucas")
	require.NoError(t, err)
	require.Equal(t, parentClaims, claims)
	require.Equal(t, StateReady, sc.State())
	require.Equal(t, parentClaims, sc.Claims())
}

func TestAcceptInvitation_ConsumeRejected(t *testing.T) {
	f := &fakeAPI{
		consumeFn: func() (int, any) {
			return http.StatusBadRequest, APIError{Code: "INVITATION_EXPIRED", Message: "vencida"}
		},
		refreshFn: func(n int) (int, any) { return http.StatusOK, session(n, parentClaims) },
	}
	c := newFake(t, f)
	sc := NewSessionController(c, DefaultRefreshPolicy())

	_, err := sc.AcceptInvitation(context.Background(), "tok", "")
	require.ErrorIs(t, err, ErrExpired)
	require.Equal(t, StateIdle, sc.State())
	require.Zero(t, f.refreshCalls.Load())
}

func TestAcceptInvitation_ClaimsNeverArrive(t *testing.T) {
	director := identitydto.Claims{Role: "DIRECTOR", SchoolID: "s-9"}
	f := &fakeAPI{
		consumeFn: consumeOK,
		refreshFn: func(n int) (int, any) { return http.StatusOK, session(n%20, director) },
	}
	c := newFake(t, f)
	sc := NewSessionController(c, RefreshPolicy{MaxWait: 100 * time.Millisecond, InitialBackoff: 10 * time.Millisecond})
	sc.Sync(director)

	_, err := sc.AcceptInvitation(context.Background(), "tok", "")
	require.ErrorIs(t, err, ErrClaimsNotPropagated)
	require.Equal(t, StateReady, sc.State())
	require.Equal(t, director, sc.Claims())
	require.True(t, sc.CanAutoRefresh())
}

func TestRefreshProfile_SyncsWhenIdle(t *testing.T) {
	f := &fakeAPI{refreshFn: func(n int) (int, any) { return http.StatusOK, session(n, parentClaims) }}
	sc := NewSessionController(newFake(t, f), DefaultRefreshPolicy())

	refreshed, err := sc.RefreshProfile(context.Background())
	require.NoError(t, err)
	require.True(t, refreshed)
	require.Equal(t, StateReady, sc.State())
}

func TestRefreshProfile_LateAnswerDoesNotUndoPromotion(t *testing.T) {
	f := &fakeAPI{
		hold: make(chan struct{}), held: make(chan struct{}),
		rotating: true, current: "refresh-0",
		consumeFn: consumeOK,
		refreshFn: func(n int) (int, any) {
			if n == 1 {
				return http.StatusOK, session(n, identitydto.Claims{})
			}
			return http.StatusOK, session(n, parentClaims)
		},
	}
	c := newFake(t, f)
	p := DefaultRefreshPolicy()
	p.Sleep = noSleep
	sc := NewSessionController(c, p)

	type result struct {
		applied bool
		err     error
	}
	background := make(chan result, 1)
	go func() {
		applied, err := sc.RefreshProfile(context.Background())
		background <- result{applied, err}
	}()
	<-f.held

	accepted := make(chan error, 1)
	go func() {
		_, err := sc.AcceptInvitation(context.Background(), "tok", "Lucas")
		accepted <- err
	}()
	require.Eventually(t, func() bool { return sc.State() == StateProvisioning }, time.Second, time.Millisecond)
	close(f.hold)

	require.NoError(t, <-accepted)
	late := <-background
	require.NoError(t, late.err)
	require.False(t, late.applied)

	require.Equal(t, StateReady, sc.State())
	require.Equal(t, parentClaims, sc.Claims())
	_, rt := c.Tokens()
	require.Equal(t, "refresh-"+string(rune('a'+int(f.refreshCalls.Load()))), rt)
}
