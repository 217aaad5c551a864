// Package server arma el handler HTTP V2 con todas las dependencias.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/aulaviva/invites/internal/cache"
	"github.com/aulaviva/invites/internal/config"
	"github.com/aulaviva/invites/internal/email"
	"github.com/aulaviva/invites/internal/http/v2/controllers"
	"github.com/aulaviva/invites/internal/http/v2/router"
	"github.com/aulaviva/invites/internal/http/v2/services"
	"github.com/aulaviva/invites/internal/http/v2/services/health"
	"github.com/aulaviva/invites/internal/invitelink"
	jwtx "github.com/aulaviva/invites/internal/jwt"
	"github.com/aulaviva/invites/internal/metrics"
	"github.com/aulaviva/invites/internal/observability/logger"
	"github.com/aulaviva/invites/internal/rate"
	"github.com/aulaviva/invites/internal/store"
	migrations "github.com/aulaviva/invites/migrations/postgres"

	// adapters registrados vía init()
	_ "github.com/aulaviva/invites/internal/store/adapters/memory"
	_ "github.com/aulaviva/invites/internal/store/adapters/pg"
)

// Version se setea con -ldflags en el build.
var Version = "dev"

// BuildV2Handler construye el handler V2 con todas las dependencias
// conectadas según cfg. cleanup cierra storage, cache y redis.
func BuildV2Handler(ctx context.Context, cfg *config.Config) (http.Handler, func() error, error) {
	log := logger.L().With(logger.Component("wiring"))

	var closers []func() error
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (http.Handler, func() error, error) {
		_ = cleanup()
		return nil, nil, err
	}

	// 1. Storage
	dal, err := store.Open(ctx, store.AdapterConfig{
		Name:         cfg.Storage.Driver,
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.MaxOpenConns,
		MaxIdleConns: cfg.Storage.MaxIdleConns,
	})
	if err != nil {
		return fail(fmt.Errorf("open storage: %w", err))
	}
	closers = append(closers, dal.Close)

	if cfg.Storage.AutoMigrate {
		if p, ok := dal.(interface{ Pool() *pgxpool.Pool }); ok {
			res, err := store.NewMigrator(migrations.FS, migrations.Dir).Run(ctx, p.Pool())
			if err != nil {
				return fail(fmt.Errorf("migrate: %w", err))
			}
			log.Info("migrations applied", logger.Count(len(res.Applied)))
		}
	}

	// 2. Redis compartido por cache y rate
	var rdb *redis.Client
	if cfg.Cache.Driver == "redis" || (cfg.Rate.Enabled && cfg.Rate.Driver == "redis") {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return fail(fmt.Errorf("redis ping: %w", err))
		}
		closers = append(closers, rdb.Close)
	}

	// 3. Cache de preview
	var previewCache cache.Client
	if cfg.Cache.Driver == "redis" {
		previewCache = cache.NewRedisFromClient(rdb, cfg.Cache.Prefix)
	} else {
		previewCache = cache.NewMemory(cfg.Cache.Prefix)
		closers = append(closers, previewCache.Close)
	}

	// 4. Rate limiters
	var limiters router.Limiters
	if cfg.Rate.Enabled {
		newLimiter := func(bucket string, max int) rate.Limiter {
			if max <= 0 {
				return nil
			}
			prefix := cfg.Cache.Prefix + ":rl:" + bucket + ":"
			if cfg.Rate.Driver == "redis" {
				return rate.NewRedisLimiter(rdb, prefix, max, cfg.Rate.Window)
			}
			return rate.NewMemoryLimiter(prefix, max, cfg.Rate.Window)
		}
		limiters = router.Limiters{
			Auth:    newLimiter("auth", cfg.Rate.Auth),
			Preview: newLimiter("preview", cfg.Rate.Preview),
			Consume: newLimiter("consume", cfg.Rate.Consume),
		}
	}

	// 5. Keys + issuer
	keys, err := loadKeys(cfg)
	if err != nil {
		return fail(err)
	}
	if cfg.JWT.SigningKey == "" {
		if cfg.IsProd() {
			return fail(errors.New("jwt.signing_key is required in prod"))
		}
		log.Warn("using ephemeral signing key; sessions will not survive restarts")
	}
	issuer := jwtx.NewIssuer(cfg.JWT.Issuer, keys)
	issuer.AccessTTL = cfg.JWT.AccessTTL

	// 6. Email + deep links
	var mailer email.Sender = email.LogSender{}
	if cfg.SMTP.Host != "" {
		mailer = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			TLSMode:  cfg.SMTP.TLSMode,
		})
	}
	links, err := invitelink.NewBuilder(cfg.Invitations.LinkBase)
	if err != nil {
		return fail(fmt.Errorf("invitations.link_base: %w", err))
	}

	// 7. Métricas
	var (
		m           *metrics.Metrics
		metricsHTTP http.Handler
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		if m, err = metrics.New(reg); err != nil {
			return fail(err)
		}
		metricsHTTP = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	// 8. Services + controllers + router
	healthDeps := health.Deps{
		Version: Version,
		Issuer:  issuer,
		DBCheck: dal.Ping,
	}
	if rdb != nil {
		healthDeps.CacheCheck = previewCache.Ping
	}

	svcs := services.New(services.Deps{
		DAL:              dal,
		Issuer:           issuer,
		Cache:            previewCache,
		Mailer:           mailer,
		Links:            links,
		Metrics:          m,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		InvitationTTL:    cfg.Invitations.TTL,
		PreviewTTL:       cfg.Cache.PreviewTTL,
		TeacherSingleUse: cfg.Invitations.TeacherSingleUse,
		HealthDeps:       healthDeps,
	})

	handler := router.New(router.V2RouterDeps{
		Controllers:    controllers.New(svcs),
		Sessions:       issuer,
		Limiters:       limiters,
		Metrics:        m,
		JWKS:           keys.JWKSJSON(),
		MetricsHandler: metricsHTTP,
		MetricsPath:    cfg.Metrics.Path,
	})

	log.Info("v2 handler ready",
		logger.String("storage", dal.Name()),
		logger.String("cache", cfg.Cache.Driver),
		logger.Bool("rate_limit", cfg.Rate.Enabled),
		logger.Bool("teacher_single_use", cfg.Invitations.TeacherSingleUse),
	)
	return handler, cleanup, nil
}

func loadKeys(cfg *config.Config) (*jwtx.KeySet, error) {
	if cfg.JWT.SigningKey == "" {
		return jwtx.NewEd25519(cfg.JWT.KID)
	}
	keys, err := jwtx.FromSeed(cfg.JWT.KID, cfg.JWT.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("jwt.signing_key: %w", err)
	}
	return keys, nil
}
