// Package memory implementa un adapter en memoria para dev y tests.
//
// Las transacciones serializan todo el adapter: WithTx toma el lock global,
// trabaja sobre una copia del estado y la publica solo si fn no falla.
package memory

import (
	"context"
	"sync"

	"github.com/aulaviva/invites/internal/domain/repository"
	"github.com/aulaviva/invites/internal/store"
)

func init() {
	store.RegisterAdapter(&memoryAdapter{})
}

type memoryAdapter struct{}

func (a *memoryAdapter) Name() string { return "memory" }

func (a *memoryAdapter) Connect(_ context.Context, _ store.AdapterConfig) (store.DataAccessLayer, error) {
	return New(), nil
}

type state struct {
	principals  map[string]repository.Principal
	emails      map[string]string // lower(email) → id
	profiles    map[string]repository.Profile
	schools     map[string]repository.School
	classrooms  map[string]repository.Classroom
	invitations map[string]repository.InvitationLink
	refresh     map[string]repository.RefreshToken // id → token
	refreshHash map[string]string                  // hash → id
}

func newState() *state {
	return &state{
		principals:  make(map[string]repository.Principal),
		emails:      make(map[string]string),
		profiles:    make(map[string]repository.Profile),
		schools:     make(map[string]repository.School),
		classrooms:  make(map[string]repository.Classroom),
		invitations: make(map[string]repository.InvitationLink),
		refresh:     make(map[string]repository.RefreshToken),
		refreshHash: make(map[string]string),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.principals {
		c.principals[k] = v
	}
	for k, v := range s.emails {
		c.emails[k] = v
	}
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	for k, v := range s.schools {
		c.schools[k] = v
	}
	for k, v := range s.classrooms {
		c.classrooms[k] = v
	}
	for k, v := range s.invitations {
		c.invitations[k] = v
	}
	for k, v := range s.refresh {
		c.refresh[k] = v
	}
	for k, v := range s.refreshHash {
		c.refreshHash[k] = v
	}
	return c
}

// handle es lo que comparten los repos: un lock y el estado que protege.
type handle struct {
	mu sync.Locker
	st *state
}

func (h handle) Principals() repository.PrincipalRepository       { return &principalRepo{h} }
func (h handle) Profiles() repository.ProfileRepository           { return &profileRepo{h} }
func (h handle) Schools() repository.SchoolRepository             { return &schoolRepo{h} }
func (h handle) Classrooms() repository.ClassroomRepository       { return &classroomRepo{h} }
func (h handle) Invitations() repository.InvitationRepository     { return &invitationRepo{h} }
func (h handle) RefreshTokens() repository.RefreshTokenRepository { return &refreshTokenRepo{h} }

// Store es el DataAccessLayer en memoria.
type Store struct {
	handle
	mu sync.Mutex
}

// New crea un Store vacío.
func New() *Store {
	s := &Store{}
	s.handle = handle{mu: &s.mu, st: newState()}
	return s
}

func (s *Store) Name() string                 { return "memory" }
func (s *Store) Ping(_ context.Context) error { return nil }
func (s *Store) Close() error                 { return nil }

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	tx := handle{mu: &sync.Mutex{}, st: snapshot}
	if err := fn(tx); err != nil {
		return err
	}
	*s.st = *snapshot
	return nil
}
