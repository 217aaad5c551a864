package middlewares

import (
	"context"

	"github.com/aulaviva/invites/internal/jwt"
)

type ctxKey string

const (
	ctxSessionKey   ctxKey = "session"
	ctxRequestIDKey ctxKey = "request_id"
)

// WithSession inyecta la sesión validada en el contexto.
func WithSession(ctx context.Context, s *jwt.Session) context.Context {
	return context.WithValue(ctx, ctxSessionKey, s)
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetSession devuelve la sesión del request o nil si no hubo auth.
func GetSession(ctx context.Context) *jwt.Session {
	if s, ok := ctx.Value(ctxSessionKey).(*jwt.Session); ok {
		return s
	}
	return nil
}

// GetUserID devuelve el subject de la sesión o "".
func GetUserID(ctx context.Context) string {
	if s := GetSession(ctx); s != nil {
		return s.Subject
	}
	return ""
}

// GetRequestID devuelve el request ID o "".
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return v
	}
	return ""
}
