package invitations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aulaviva/invites/internal/cache"
	"github.com/aulaviva/invites/internal/domain/repository"
	"github.com/aulaviva/invites/internal/store"
	"github.com/aulaviva/invites/internal/store/adapters/memory"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// world es una escuela con dos aulas, un director, una docente de la sala
// roja y un director de otra escuela.
type world struct {
	dal   *memory.Store
	clock *clock

	school, otherSchool *repository.School
	red, blue           *repository.Classroom
	otherClassroom      *repository.Classroom

	director, teacher, otherDirector string
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	w := &world{dal: memory.New(), clock: newClock()}

	w.director = w.principal(t, "directora@escuela12.edu")
	w.teacher = w.principal(t, "docente@escuela12.edu")
	w.otherDirector = w.principal(t, "director@otra.edu")

	var err error
	w.school, err = w.dal.Schools().Create(ctx, repository.CreateSchoolInput{Name: "Escuela 12", DirectorID: w.director})
	require.NoError(t, err)
	w.otherSchool, err = w.dal.Schools().Create(ctx, repository.CreateSchoolInput{Name: "Otra", DirectorID: w.otherDirector})
	require.NoError(t, err)

	w.red = w.classroom(t, w.school.ID, "Sala Roja")
	w.blue = w.classroom(t, w.school.ID, "Sala Azul")
	w.otherClassroom = w.classroom(t, w.otherSchool.ID, "Sala Verde")

	w.place(t, w.director, repository.Claims{Role: repository.RoleDirector, SchoolID: w.school.ID})
	w.place(t, w.otherDirector, repository.Claims{Role: repository.RoleDirector, SchoolID: w.otherSchool.ID})
	w.place(t, w.teacher, repository.Claims{Role: repository.RoleTeacher, SchoolID: w.school.ID, ClassroomID: w.red.ID})
	return w
}

func (w *world) principal(t *testing.T, email string) string {
	t.Helper()
	p, err := w.dal.Principals().Create(context.Background(), repository.CreatePrincipalInput{Email: email})
	require.NoError(t, err)
	return p.ID
}

func (w *world) classroom(t *testing.T, schoolID, name string) *repository.Classroom {
	t.Helper()
	c, err := w.dal.Classrooms().Create(context.Background(), repository.CreateClassroomInput{SchoolID: schoolID, Name: name, Grade: "3"})
	require.NoError(t, err)
	return c
}

func (w *world) place(t *testing.T, id string, c repository.Claims) {
	t.Helper()
	ctx := context.Background()
	_, _, err := w.dal.Profiles().Upsert(ctx, repository.UpsertProfileInput{ID: id, Role: c.Role, SchoolID: c.SchoolID, ClassroomID: c.ClassroomID})
	require.NoError(t, err)
	require.NoError(t, w.dal.Principals().UpdateClaims(ctx, id, c))
}

func (w *world) claims(t *testing.T, id string) repository.Claims {
	t.Helper()
	p, err := w.dal.Principals().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Claims
}

func (w *world) services(opts ...func(*Deps)) Services {
	d := Deps{DAL: w.dal, TeacherSingleUse: true, Now: w.clock.Now}
	for _, o := range opts {
		o(&d)
	}
	return NewServices(d)
}

// ─── fallas de storage ───

var errConnReset = errors.New("connection reset by peer")

// brokenProfilesDAL hace fallar Profiles().Upsert dentro de las transacciones.
type brokenProfilesDAL struct {
	store.DataAccessLayer
}

func (d brokenProfilesDAL) WithTx(ctx context.Context, fn func(tx store.Repositories) error) error {
	return d.DataAccessLayer.WithTx(ctx, func(tx store.Repositories) error {
		return fn(brokenProfilesRepos{tx})
	})
}

type brokenProfilesRepos struct {
	store.Repositories
}

func (brokenProfilesRepos) Profiles() repository.ProfileRepository { return brokenProfiles{} }

type brokenProfiles struct{}

func (brokenProfiles) Get(context.Context, string) (*repository.Profile, error) {
	return nil, errConnReset
}

func (brokenProfiles) Upsert(context.Context, repository.UpsertProfileInput) (*repository.Profile, bool, error) {
	return nil, false, errConnReset
}

// recordingMailer guarda los envíos.
type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *recordingMailer) Send(to, subject, _, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to+"|"+subject+"|"+text)
	return nil
}

// gatedCache demora el próximo Set hasta que se cierre release; entered se
// cierra cuando ese Set arranca.
type gatedCache struct {
	cache.Client
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedCache() *gatedCache {
	return &gatedCache{
		Client:  cache.NewMemory("test"),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (c *gatedCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	gated := false
	c.once.Do(func() { gated = true })
	if gated {
		close(c.entered)
		<-c.release
	}
	return c.Client.Set(ctx, key, value, ttl)
}
