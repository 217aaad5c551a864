// Package pg implementa el adapter PostgreSQL usando pgxpool.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aulaviva/invites/internal/domain/repository"
	"github.com/aulaviva/invites/internal/store"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

// querier es lo común entre *pgxpool.Pool y pgx.Tx.
type querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.DataAccessLayer, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}
	return NewFromPool(pool), nil
}

// NewFromPool envuelve un pool existente (cmd/migrate, tests de integración).
func NewFromPool(pool *pgxpool.Pool) store.DataAccessLayer {
	return &pgConnection{pool: pool, repos: newRepos(pool)}
}

// pgConnection representa una conexión activa a PostgreSQL.
type pgConnection struct {
	pool *pgxpool.Pool
	*repos
}

func (c *pgConnection) Name() string                   { return "postgres" }
func (c *pgConnection) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *pgConnection) Close() error {
	c.pool.Close()
	return nil
}

// Pool expone el pool subyacente (migraciones).
func (c *pgConnection) Pool() *pgxpool.Pool { return c.pool }

func (c *pgConnection) WithTx(ctx context.Context, fn func(tx store.Repositories) error) error {
	return pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		return fn(newRepos(tx))
	})
}

// repos implementa store.Repositories sobre un querier (pool o tx).
type repos struct {
	q querier
}

func newRepos(q querier) *repos { return &repos{q: q} }

func (r *repos) Principals() repository.PrincipalRepository       { return &principalRepo{q: r.q} }
func (r *repos) Profiles() repository.ProfileRepository           { return &profileRepo{q: r.q} }
func (r *repos) Schools() repository.SchoolRepository             { return &schoolRepo{q: r.q} }
func (r *repos) Classrooms() repository.ClassroomRepository       { return &classroomRepo{q: r.q} }
func (r *repos) Invitations() repository.InvitationRepository     { return &invitationRepo{q: r.q} }
func (r *repos) RefreshTokens() repository.RefreshTokenRepository { return &refreshTokenRepo{q: r.q} }

// ─── helpers ───

// nullIfEmpty retorna nil si s está vacío; útil para columnas nullable.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// mapErr traduce errores de pgx/postgres a errores de dominio.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", repository.ErrNotFound, pgErr.ConstraintName)
		case "22P02": // invalid_text_representation (uuid mal formado)
			return repository.ErrNotFound
		}
	}
	return err
}
