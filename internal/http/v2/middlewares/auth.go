package middlewares

import (
	"errors"
	"net/http"
	"strings"

	httperrors "github.com/aulaviva/invites/internal/http/v2/errors"
	"github.com/aulaviva/invites/internal/jwt"
	"github.com/aulaviva/invites/internal/observability/logger"
)

// SessionParser valida un bearer token. *jwt.Issuer lo implementa.
type SessionParser interface {
	Parse(token string) (*jwt.Session, error)
}

func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", false
	}
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// RequireAuth exige un session token válido. Sin token o con token inválido
// responde 401; la sesión queda disponible vía GetSession.
func RequireAuth(p SessionParser) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := bearerToken(r)
			if !ok {
				httperrors.WriteError(w, httperrors.ErrTokenMissing)
				return
			}
			s, err := p.Parse(tok)
			if err != nil {
				if errors.Is(err, jwt.ErrExpired) {
					httperrors.WriteError(w, httperrors.ErrTokenExpired)
					return
				}
				httperrors.WriteError(w, httperrors.ErrTokenInvalid)
				return
			}

			ctx := WithSession(r.Context(), s)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(s.Subject)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
