package client

import (
	"context"
	"errors"
	"time"

	identitydto "github.com/aulaviva/invites/internal/http/v2/dto/identity"
)

// ErrClaimsNotPropagated: se agotó MaxWait sin ver las claims esperadas.
var ErrClaimsNotPropagated = errors.New("client: claims not propagated")

// RefreshPolicy acota el polling de RefreshUntil.
type RefreshPolicy struct {
	MaxWait        time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	// Sleep se puede inyectar en tests. Debe respetar ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRefreshPolicy: 5s en total, 200ms → 1s.
func DefaultRefreshPolicy() RefreshPolicy {
	return RefreshPolicy{
		MaxWait:        5 * time.Second,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2,
	}
}

func (p RefreshPolicy) normalized() RefreshPolicy {
	d := DefaultRefreshPolicy()
	if p.MaxWait <= 0 {
		p.MaxWait = d.MaxWait
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = d.InitialBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	if p.Sleep == nil {
		p.Sleep = sleepCtx
	}
	return p
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Matches indica si got tiene rol, escuela y aula de want. Campos vacíos en
// want no se comparan.
func Matches(got, want identitydto.Claims) bool {
	if want.Role != "" && got.Role != want.Role {
		return false
	}
	if want.SchoolID != "" && got.SchoolID != want.SchoolID {
		return false
	}
	if want.ClassroomID != "" && got.ClassroomID != want.ClassroomID {
		return false
	}
	return true
}

// RefreshUntil refresca la sesión hasta que las claims del session token
// coincidan con want. Reintenta errores reintentables; cualquier otro error
// corta el loop. Retorna la última sesión vista.
func (c *Client) RefreshUntil(ctx context.Context, want identitydto.Claims, policy RefreshPolicy) (*identitydto.SessionResponse, error) {
	p := policy.normalized()
	ctx, cancel := context.WithTimeout(ctx, p.MaxWait)
	defer cancel()

	backoff := p.InitialBackoff
	var last *identitydto.SessionResponse
	for {
		sess, err := c.Refresh(ctx)
		switch {
		case err == nil:
			last = sess
			if Matches(sess.Claims, want) {
				return sess, nil
			}
		case ctx.Err() != nil:
			return last, ErrClaimsNotPropagated
		case !IsRetryable(err):
			return last, err
		}

		if err := p.Sleep(ctx, backoff); err != nil {
			return last, ErrClaimsNotPropagated
		}
		backoff = time.Duration(float64(backoff) * p.Multiplier)
		if backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}
}
