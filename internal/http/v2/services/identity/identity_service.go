// Package identity implementa el Identity Store del servicio: alta de
// principals, login por password, refresh de sesión y /me.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aulaviva/invites/internal/domain/repository"
	dto "github.com/aulaviva/invites/internal/http/v2/dto/identity"
	jwtx "github.com/aulaviva/invites/internal/jwt"
	"github.com/aulaviva/invites/internal/observability/logger"
	"github.com/aulaviva/invites/internal/security/password"
	tokens "github.com/aulaviva/invites/internal/security/token"
	"github.com/aulaviva/invites/internal/store"
)

// Service define las operaciones del Identity Store.
type Service interface {
	Signup(ctx context.Context, in dto.SignupRequest) (*dto.SessionResponse, error)
	Login(ctx context.Context, in dto.LoginRequest) (*dto.SessionResponse, error)
	// Refresh rota el refresh token y emite un session token con las claims
	// actuales del Principal (no las del token anterior).
	Refresh(ctx context.Context, in dto.RefreshRequest) (*dto.SessionResponse, error)
	Me(ctx context.Context, principalID string) (*dto.MeResponse, error)
}

// Deps contiene las dependencias del service.
type Deps struct {
	DAL        store.DataAccessLayer
	Issuer     *jwtx.Issuer
	RefreshTTL time.Duration
	Password   *password.Params // nil = password.Default
	Now        func() time.Time
}

var (
	ErrMissingFields      = fmt.Errorf("missing required fields")
	ErrInvalidEmail       = fmt.Errorf("invalid email")
	ErrWeakPassword       = fmt.Errorf("weak password")
	ErrEmailTaken         = fmt.Errorf("email already registered")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidRefresh     = fmt.Errorf("invalid or expired refresh token")
	ErrPrincipalNotFound  = fmt.Errorf("principal not found")
	ErrStorage            = fmt.Errorf("storage failure")
	ErrTokenIssueFailed   = fmt.Errorf("failed to issue token")
)

const (
	componentIdentity = "identity"
	refreshTokenBytes = 32
	defaultRefreshTTL = 30 * 24 * time.Hour
)

type service struct {
	deps Deps
}

// NewService crea el service de identidad.
func NewService(deps Deps) Service {
	if deps.RefreshTTL <= 0 {
		deps.RefreshTTL = defaultRefreshTTL
	}
	if deps.Password == nil {
		p := password.Default
		deps.Password = &p
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{deps: deps}
}

func (s *service) Signup(ctx context.Context, in dto.SignupRequest) (*dto.SessionResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentIdentity),
		logger.Op("Signup"),
	)

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	if !strings.Contains(in.Email, "@") {
		return nil, ErrInvalidEmail
	}
	if err := password.Validate(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	hash, err := password.Hash(*s.deps.Password, in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	p, err := s.deps.DAL.Principals().Create(ctx, repository.CreatePrincipalInput{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
	})
	if err != nil {
		if repository.IsConflict(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	log.Info("principal created", logger.UserID(p.ID))
	return s.issue(ctx, p)
}

func (s *service) Login(ctx context.Context, in dto.LoginRequest) (*dto.SessionResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentIdentity),
		logger.Op("Login"),
	)

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	p, err := s.deps.DAL.Principals().GetByEmail(ctx, in.Email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if !password.Verify(in.Password, p.PasswordHash) {
		log.Debug("password check failed", logger.UserID(p.ID))
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, p)
}

func (s *service) Refresh(ctx context.Context, in dto.RefreshRequest) (*dto.SessionResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentIdentity),
		logger.Op("Refresh"),
	)

	raw := strings.TrimSpace(in.RefreshToken)
	if raw == "" {
		return nil, ErrMissingFields
	}

	var p *repository.Principal
	var next string
	err := s.deps.DAL.WithTx(ctx, func(tx store.Repositories) error {
		rt, err := tx.RefreshTokens().GetByHash(ctx, tokens.SHA256Base64URL(raw))
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrInvalidRefresh
			}
			return fmt.Errorf("%w: %w", ErrStorage, err)
		}
		if rt.RevokedAt != nil || !s.deps.Now().Before(rt.ExpiresAt) {
			return ErrInvalidRefresh
		}
		if p, err = tx.Principals().GetByID(ctx, rt.PrincipalID); err != nil {
			if repository.IsNotFound(err) {
				return ErrInvalidRefresh
			}
			return fmt.Errorf("%w: %w", ErrStorage, err)
		}
		if err := tx.RefreshTokens().Revoke(ctx, rt.ID); err != nil {
			return fmt.Errorf("%w: %w", ErrStorage, err)
		}
		next, err = s.mintRefresh(ctx, tx, p.ID)
		return err
	})
	if err != nil {
		log.Debug("refresh rejected", logger.Err(err))
		return nil, err
	}
	return s.session(p, next)
}

func (s *service) Me(ctx context.Context, principalID string) (*dto.MeResponse, error) {
	p, err := s.deps.DAL.Principals().GetByID(ctx, principalID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	out := &dto.MeResponse{
		PrincipalID: p.ID,
		Email:       p.Email,
		Claims:      claimsDTO(p.Claims),
	}
	prof, err := s.deps.DAL.Profiles().Get(ctx, p.ID)
	switch {
	case err == nil:
		out.Profile = &dto.Profile{
			Role:           prof.Role.String(),
			SchoolID:       prof.SchoolID,
			ClassroomID:    prof.ClassroomID,
			DisplayName:    prof.DisplayName,
			ChildFirstName: prof.ChildFirstName,
			CreatedAt:      prof.CreatedAt,
		}
	case !repository.IsNotFound(err):
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return out, nil
}

// issue crea un refresh token nuevo y firma la sesión.
func (s *service) issue(ctx context.Context, p *repository.Principal) (*dto.SessionResponse, error) {
	rt, err := s.mintRefresh(ctx, s.deps.DAL, p.ID)
	if err != nil {
		return nil, err
	}
	return s.session(p, rt)
}

func (s *service) mintRefresh(ctx context.Context, repos store.Repositories, principalID string) (string, error) {
	raw, err := tokens.GenerateOpaqueToken(refreshTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	if _, err := repos.RefreshTokens().Create(ctx, repository.CreateRefreshTokenInput{
		PrincipalID: principalID,
		TokenHash:   tokens.SHA256Base64URL(raw),
		TTL:         s.deps.RefreshTTL,
	}); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return raw, nil
}

func (s *service) session(p *repository.Principal, refresh string) (*dto.SessionResponse, error) {
	access, exp, err := s.deps.Issuer.IssueSession(p.ID, p.Email, p.Claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenIssueFailed, err)
	}
	return &dto.SessionResponse{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    int64(exp.Sub(s.deps.Now()).Seconds()),
		ExpiresAt:    exp,
		RefreshToken: refresh,
		PrincipalID:  p.ID,
		Claims:       claimsDTO(p.Claims),
	}, nil
}

func claimsDTO(c repository.Claims) dto.Claims {
	return dto.Claims{Role: c.Role.String(), SchoolID: c.SchoolID, ClassroomID: c.ClassroomID}
}
