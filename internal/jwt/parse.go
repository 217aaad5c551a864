package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/aulaviva/invites/internal/claims"
	"github.com/aulaviva/invites/internal/domain/repository"
)

var (
	ErrNoSigningKey  = errors.New("no_signing_key")
	ErrInvalidToken  = errors.New("invalid_jwt")
	ErrInvalidIssuer = errors.New("invalid_issuer")
	ErrExpired       = errors.New("expired")
)

// leeway tolera desfasajes de reloj entre réplicas.
const leeway = 30 * time.Second

// Session es la vista tipada de un session token validado.
type Session struct {
	Subject   string
	Email     string
	Claims    repository.Claims
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Parse valida firma EdDSA, iss y exp/nbf, y decodifica el claims bag.
func (i *Issuer) Parse(token string) (*Session, error) {
	parser := jwtv5.NewParser(
		jwtv5.WithValidMethods([]string{"EdDSA"}),
		jwtv5.WithIssuer(i.Iss),
		jwtv5.WithLeeway(leeway),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(i.now),
	)

	mc := jwtv5.MapClaims{}
	tok, err := parser.ParseWithClaims(token, mc, i.Keyfunc())
	if err != nil {
		switch {
		case errors.Is(err, jwtv5.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwtv5.ErrTokenInvalidIssuer):
			return nil, ErrInvalidIssuer
		}
		return nil, ErrInvalidToken
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}

	sub, _ := mc.GetSubject()
	if sub == "" {
		return nil, ErrInvalidToken
	}
	s := &Session{Subject: sub}
	s.Email, _ = mc["email"].(string)
	if iat, _ := mc.GetIssuedAt(); iat != nil {
		s.IssuedAt = iat.Time
	}
	if exp, _ := mc.GetExpirationTime(); exp != nil {
		s.ExpiresAt = exp.Time
	}
	if custom, ok := mc["custom"].(map[string]any); ok {
		if sys, ok := custom[claims.SystemNamespace(i.Iss)].(map[string]any); ok {
			s.Claims = claims.Decode(sys)
		}
	}
	return s, nil
}
