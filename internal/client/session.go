package client

import (
	"context"
	"errors"
	"sync"

	identitydto "github.com/aulaviva/invites/internal/http/v2/dto/identity"
)

// State es el estado de la sesión en la app.
type State int

const (
	// StateIdle: autenticado sin rol asignado (o sin sesión).
	StateIdle State = iota
	// StateProvisioning: hay una promoción en curso; no se refresca solo.
	StateProvisioning
	// StateReady: las claims tienen rol.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProvisioning:
		return "provisioning"
	case StateReady:
		return "ready"
	}
	return "unknown"
}

// ErrProvisioningInFlight: ya hay un AcceptInvitation corriendo.
var ErrProvisioningInFlight = errors.New("client: provisioning already in flight")

// SessionController coordina consume + refresh para que el auto-refresh de
// la app no pise claims a mitad de una promoción.
type SessionController struct {
	c      *Client
	policy RefreshPolicy

	mu     sync.Mutex
	state  State
	claims identitydto.Claims
	// gen cambia en cada Begin/EndProvisioning; un refresh de fondo que
	// arrancó en otra generación no aplica su resultado.
	gen uint64
}

// NewSessionController arranca en Idle.
func NewSessionController(c *Client, policy RefreshPolicy) *SessionController {
	return &SessionController{c: c, policy: policy}
}

func (s *SessionController) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Claims retorna las últimas claims conocidas.
func (s *SessionController) Claims() identitydto.Claims {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claims
}

// Sync fija el estado a partir de claims recibidas fuera del controller
// (login, signup). No cambia nada mientras se provisiona.
func (s *SessionController) Sync(claims identitydto.Claims) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateProvisioning {
		return s.state
	}
	s.setLocked(claims)
	return s.state
}

func (s *SessionController) setLocked(claims identitydto.Claims) {
	s.claims = claims
	if claims.Role != "" {
		s.state = StateReady
	} else {
		s.state = StateIdle
	}
}

// BeginProvisioning entra a Provisioning.
func (s *SessionController) BeginProvisioning() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateProvisioning {
		return ErrProvisioningInFlight
	}
	s.state = StateProvisioning
	s.gen++
	return nil
}

// EndProvisioning sale de Provisioning según claims.
func (s *SessionController) EndProvisioning(claims identitydto.Claims) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(claims)
	s.gen++
}

// CanAutoRefresh es false durante Provisioning.
func (s *SessionController) CanAutoRefresh() bool {
	return s.State() != StateProvisioning
}

// RefreshProfile es el refresh "de fondo" de la app. Durante Provisioning
// no hace nada y retorna (false, nil). Si una promoción empezó o terminó
// mientras el request estaba en vuelo, la respuesta se descarta: sus claims
// son anteriores a la promoción.
func (s *SessionController) RefreshProfile(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.state == StateProvisioning {
		s.mu.Unlock()
		return false, nil
	}
	gen := s.gen
	s.mu.Unlock()

	sess, err := s.c.Refresh(ctx)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state == StateProvisioning {
		return false, nil
	}
	s.setLocked(sess.Claims)
	return true, nil
}

// AcceptInvitation consume el token y espera a que el session token traiga
// las claims nuevas. Si el consume falla se vuelve al estado anterior. Si
// las claims no llegan a tiempo el consume ya quedó aplicado: el estado
// vuelve con las claims previas y se retorna ErrClaimsNotPropagated.
func (s *SessionController) AcceptInvitation(ctx context.Context, token, childFirstName string) (identitydto.Claims, error) {
	prev := s.Claims()
	if err := s.BeginProvisioning(); err != nil {
		return prev, err
	}

	res, err := s.c.ConsumeInvitation(ctx, token, childFirstName)
	if err != nil {
		s.EndProvisioning(prev)
		return prev, err
	}

	want := identitydto.Claims{Role: res.Role, SchoolID: res.SchoolID, ClassroomID: res.ClassroomID}
	sess, err := s.c.RefreshUntil(ctx, want, s.policy)
	if err != nil {
		s.EndProvisioning(prev)
		return prev, err
	}
	s.EndProvisioning(sess.Claims)
	return sess.Claims, nil
}
