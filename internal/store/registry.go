// Package store provee el registry de adapters de almacenamiento y el
// DataAccessLayer que consumen los services.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aulaviva/invites/internal/domain/repository"
)

// Repositories agrupa los repositorios del flujo de invitaciones.
type Repositories interface {
	Principals() repository.PrincipalRepository
	Profiles() repository.ProfileRepository
	Schools() repository.SchoolRepository
	Classrooms() repository.ClassroomRepository
	Invitations() repository.InvitationRepository
	RefreshTokens() repository.RefreshTokenRepository
}

// DataAccessLayer es una conexión activa a un backend de almacenamiento.
type DataAccessLayer interface {
	Repositories

	// Name retorna el nombre del adapter ("postgres", "memory").
	Name() string

	// WithTx ejecuta fn dentro de una transacción. Si fn retorna error
	// nada de lo escrito a través de tx queda persistido.
	WithTx(ctx context.Context, fn func(tx Repositories) error) error

	Ping(ctx context.Context) error
	Close() error
}

// Adapter crea conexiones de un tipo de almacenamiento.
type Adapter interface {
	Name() string
	Connect(ctx context.Context, cfg AdapterConfig) (DataAccessLayer, error)
}

// AdapterConfig configuración de conexión.
type AdapterConfig struct {
	// Name del adapter: "postgres" | "memory"
	Name string

	// DSN connection string (postgres)
	DSN string

	MaxOpenConns int
	MaxIdleConns int
}

// ─── Registry Global ───

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter. Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("adapter: %q already registered", name))
	}
	adapters[name] = a
}

// GetAdapter obtiene un adapter por nombre.
func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters retorna los nombres registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open abre una conexión con el adapter indicado en cfg.Name.
func Open(ctx context.Context, cfg AdapterConfig) (DataAccessLayer, error) {
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("adapter: %q not registered (available: %v)", cfg.Name, ListAdapters())
	}
	return a.Connect(ctx, cfg)
}
