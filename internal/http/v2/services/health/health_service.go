// Package health contiene el service para health checks.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/aulaviva/invites/internal/domain/repository"
	dto "github.com/aulaviva/invites/internal/http/v2/dto/health"
	jwtx "github.com/aulaviva/invites/internal/jwt"
	"github.com/aulaviva/invites/internal/observability/logger"
)

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Deps contiene las dependencias inyectables para el health service.
// Un check nil se reporta como "disabled".
type Deps struct {
	Version    string
	Issuer     *jwtx.Issuer
	DBCheck    func(ctx context.Context) error
	CacheCheck func(ctx context.Context) error
	Timeout    time.Duration
}

type healthService struct {
	deps Deps
}

// NewHealthService crea un nuevo service de health check.
func NewHealthService(deps Deps) HealthService {
	if deps.Timeout <= 0 {
		deps.Timeout = 2 * time.Second
	}
	return &healthService{deps: deps}
}

const componentHealth = "health"

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentHealth),
		logger.Op("Check"),
	)

	ctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
	defer cancel()

	response := dto.HealthResponse{
		Version:    s.deps.Version,
		Components: make(map[string]dto.HealthStatus),
		Timestamp:  time.Now().UTC(),
	}
	if s.deps.Issuer != nil && s.deps.Issuer.Keys != nil {
		response.ActiveKeyID = s.deps.Issuer.Keys.KID
	}

	hasErrors := false
	hasCriticalErrors := false

	// 1) Storage (crítico)
	if s.deps.DBCheck != nil {
		if err := s.deps.DBCheck(ctx); err != nil {
			response.Components["storage"] = dto.HealthStatus{Status: "error", Message: fmt.Sprintf("unavailable: %v", err)}
			hasCriticalErrors = true
			log.Error("storage unavailable", logger.Err(err))
		} else {
			response.Components["storage"] = dto.HealthStatus{Status: "ok"}
		}
	} else {
		response.Components["storage"] = dto.HealthStatus{Status: "error", Message: "not initialized"}
		hasCriticalErrors = true
	}

	// 2) Keystore (crítico): firma y valida un token de prueba
	if s.deps.Issuer != nil {
		if err := s.checkKeystore(); err != nil {
			response.Components["keystore"] = dto.HealthStatus{Status: "error", Message: err.Error()}
			hasCriticalErrors = true
			log.Error("keystore check failed", logger.Err(err))
		} else {
			response.Components["keystore"] = dto.HealthStatus{Status: "ok"}
		}
	} else {
		response.Components["keystore"] = dto.HealthStatus{Status: "error", Message: "issuer not initialized"}
		hasCriticalErrors = true
	}

	// 3) Cache (no crítico)
	if s.deps.CacheCheck != nil {
		if err := s.deps.CacheCheck(ctx); err != nil {
			response.Components["cache"] = dto.HealthStatus{Status: "error", Message: fmt.Sprintf("unavailable: %v", err)}
			hasErrors = true
			log.Warn("cache unavailable", logger.Err(err))
		} else {
			response.Components["cache"] = dto.HealthStatus{Status: "ok"}
		}
	} else {
		response.Components["cache"] = dto.HealthStatus{Status: "disabled"}
	}

	switch {
	case hasCriticalErrors:
		response.Status = "unavailable"
	case hasErrors:
		response.Status = "degraded"
	default:
		response.Status = "ready"
	}
	return response
}

func (s *healthService) checkKeystore() error {
	signed, _, err := s.deps.Issuer.IssueSession("selfcheck", "", repository.Claims{})
	if err != nil {
		return fmt.Errorf("sign failed: %w", err)
	}
	if _, err := s.deps.Issuer.Parse(signed); err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}
	return nil
}
