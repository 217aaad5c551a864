package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aulaviva/invites/internal/domain/repository"
)

// ─── Principals ───

type principalRepo struct{ h handle }

func (r *principalRepo) Create(_ context.Context, in repository.CreatePrincipalInput) (*repository.Principal, error) {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()

	email := strings.TrimSpace(in.Email)
	key := strings.ToLower(email)
	if _, dup := r.h.st.emails[key]; dup {
		return nil, repository.ErrConflict
	}
	now := time.Now().UTC()
	p := repository.Principal{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: in.PasswordHash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.h.st.principals[p.ID] = p
	r.h.st.emails[key] = p.ID
	return &p, nil
}

func (r *principalRepo) GetByID(_ context.Context, id string) (*repository.Principal, error) {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	p, ok := r.h.st.principals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *principalRepo) GetByEmail(_ context.Context, email string) (*repository.Principal, error) {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	id, ok := r.h.st.emails[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p := r.h.st.principals[id]
	return &p, nil
}

func (r *principalRepo) UpdateClaims(_ context.Context, id string, c repository.Claims) error {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	p, ok := r.h.st.principals[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Claims = c
	p.UpdatedAt = time.Now().UTC()
	r.h.st.principals[id] = p
	return nil
}

// ─── Profiles ───

type profileRepo struct{ h handle }

func (r *profileRepo) Get(_ context.Context, id string) (*repository.Profile, error) {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	p, ok := r.h.st.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *profileRepo) Upsert(_ context.Context, in repository.UpsertProfileInput) (*repository.Profile, bool, error) {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()

	if _, ok := r.h.st.principals[in.ID]; !ok {
		return nil, false, repository.ErrNotFound
	}
	now := time.Now().UTC()
	p, exists := r.h.st.profiles[in.ID]
	if !exists {
		p = repository.Profile{ID: in.ID, DisplayName: in.DisplayName, CreatedAt: now}
	}
	p.Role = in.Role
	p.SchoolID = in.SchoolID
	p.ClassroomID = in.ClassroomID
	if in.ChildFirstName != "" {
		p.ChildFirstName = in.ChildFirstName
	}
	p.UpdatedAt = now
	r.h.st.profiles[in.ID] = p
	return &p, !exists, nil
}

// ─── Schools / Classrooms ───

type schoolRepo struct{ h handle }

func (r *schoolRepo) Create(_ context.Context, in repository.CreateSchoolInput) (*repository.School, error) {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	s := repository.School{
		ID:         uuid.NewString(),
		Name:       in.Name,
		DirectorID: in.DirectorID,
		CreatedAt:  time.Now().UTC(),
	}
	r.h.st.schools[s.ID] = s
	return &s, nil
}

func (r *schoolRepo) Get(_ context.Context, id string) (*repository.School, error) {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	s, ok := r.h.st.schools[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

type classroomRepo struct{ h handle }

func (r *classroomRepo) Create(_ context.Context, in repository.CreateClassroomInput) (*repository.Classroom, error) {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	if _, ok := r.h.st.schools[in.SchoolID]; !ok {
		return nil, repository.ErrNotFound
	}
	c := repository.Classroom{
		ID:        uuid.NewString(),
		SchoolID:  in.SchoolID,
		Name:      in.Name,
		Grade:     in.Grade,
		CreatedAt: time.Now().UTC(),
	}
	r.h.st.classrooms[c.ID] = c
	return &c, nil
}

func (r *classroomRepo) Get(_ context.Context, id string) (*repository.Classroom, error) {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	c, ok := r.h.st.classrooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

// ─── Invitations ───

type invitationRepo struct{ h handle }

func (r *invitationRepo) GetByToken(_ context.Context, token string) (*repository.InvitationLink, error) {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	l, ok := r.h.st.invitations[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (r *invitationRepo) FindActive(_ context.Context, classroomID string, role repository.Role, now time.Time) (*repository.InvitationLink, error) {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	return r.findActiveLocked(classroomID, role, now)
}

func (r *invitationRepo) activeLocked(classroomID string, role repository.Role, now time.Time) []repository.InvitationLink {
	var out []repository.InvitationLink
	for _, l := range r.h.st.invitations {
		if l.ClassroomID == classroomID && l.IntendedRole == role && l.ActiveAt(now) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.After(out[j].ExpiresAt) })
	return out
}

func (r *invitationRepo) findActiveLocked(classroomID string, role repository.Role, now time.Time) (*repository.InvitationLink, error) {
	active := r.activeLocked(classroomID, role, now)
	if len(active) == 0 {
		return nil, repository.ErrNotFound
	}
	l := active[0]
	return &l, nil
}

func (r *invitationRepo) CreateIfNoActive(_ context.Context, link repository.InvitationLink, now time.Time) (*repository.InvitationLink, bool, error) {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()

	if _, ok := r.h.st.classrooms[link.ClassroomID]; !ok {
		return nil, false, repository.ErrNotFound
	}
	if existing, err := r.findActiveLocked(link.ClassroomID, link.IntendedRole, now); err == nil {
		return existing, false, nil
	}
	if _, dup := r.h.st.invitations[link.Token]; dup {
		return nil, false, repository.ErrConflict
	}
	r.h.st.invitations[link.Token] = link
	out := link
	return &out, true, nil
}

func (r *invitationRepo) MarkUsed(_ context.Context, token string, at time.Time) error {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	l, ok := r.h.st.invitations[token]
	if !ok || !l.ActiveAt(at) {
		return repository.ErrConflict
	}
	used := at
	l.UsedAt = &used
	r.h.st.invitations[token] = l
	return nil
}

func (r *invitationRepo) ExpireActive(_ context.Context, classroomID string, role repository.Role, now time.Time) ([]string, error) {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	var tokens []string
	for _, l := range r.activeLocked(classroomID, role, now) {
		l.ExpiresAt = now
		r.h.st.invitations[l.Token] = l
		tokens = append(tokens, l.Token)
	}
	return tokens, nil
}

func (r *invitationRepo) ExpireToken(_ context.Context, token string, now time.Time) (bool, error) {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	l, ok := r.h.st.invitations[token]
	if !ok {
		return false, repository.ErrNotFound
	}
	if !l.ActiveAt(now) {
		return false, nil
	}
	l.ExpiresAt = now
	r.h.st.invitations[token] = l
	return true, nil
}

// ─── Refresh tokens ───

type refreshTokenRepo struct{ h handle }

func (r *refreshTokenRepo) Create(_ context.Context, in repository.CreateRefreshTokenInput) (*repository.RefreshToken, error) {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	if _, dup := r.h.st.refreshHash[in.TokenHash]; dup {
		return nil, repository.ErrConflict
	}
	now := time.Now().UTC()
	t := repository.RefreshToken{
		ID:          uuid.NewString(),
		PrincipalID: in.PrincipalID,
		TokenHash:   in.TokenHash,
		ExpiresAt:   now.Add(in.TTL),
		CreatedAt:   now,
	}
	r.h.st.refresh[t.ID] = t
	r.h.st.refreshHash[t.TokenHash] = t.ID
	return &t, nil
}

func (r *refreshTokenRepo) GetByHash(_ context.Context, tokenHash string) (*repository.RefreshToken, error) {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	id, ok := r.h.st.refreshHash[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t := r.h.st.refresh[id]
	return &t, nil
}

func (r *refreshTokenRepo) Revoke(_ context.Context, id string) error {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	t, ok := r.h.st.refresh[id]
	if !ok || t.RevokedAt != nil {
		return nil
	}
	now := time.Now().UTC()
	t.RevokedAt = &now
	r.h.st.refresh[id] = t
	return nil
}
