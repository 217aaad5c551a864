// Package invitelink arma y parsea el deep link que abre la app móvil.
//
//	aulaviva://invite?token=<token>
//	https://aulaviva.app/invite?token=<token>
package invitelink

import (
	"errors"
	"net/url"
	"strings"
)

// QueryParam es el parámetro que lleva el token.
const QueryParam = "token"

var ErrNoToken = errors.New("invitelink: no token in link")

// Builder arma links a partir de una base ("aulaviva://invite" o una URL https).
type Builder struct {
	base *url.URL
}

// NewBuilder valida la base. Una base vacía usa "aulaviva://invite".
func NewBuilder(base string) (*Builder, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "aulaviva://invite"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		return nil, errors.New("invitelink: base must be scheme-qualified")
	}
	return &Builder{base: u}, nil
}

// Build retorna la base con token como query param (preserva otros params de la base).
func (b *Builder) Build(token string) string {
	u := *b.base
	q := u.Query()
	q.Set(QueryParam, token)
	u.RawQuery = q.Encode()
	return u.String()
}

// Parse extrae el token de un link. Acepta también el token pelado.
func Parse(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNoToken
	}
	if !strings.Contains(raw, "?") && !strings.Contains(raw, "://") {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	tok := strings.TrimSpace(u.Query().Get(QueryParam))
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}
