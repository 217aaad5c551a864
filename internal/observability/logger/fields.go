package logger

import (
	"go.uber.org/zap"
)

// ─── HTTP ───

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }

// ─── Negocio ───

// UserID identifica al Principal que hace la llamada.
func UserID(v string) zap.Field      { return zap.String("user_id", v) }
func SchoolID(v string) zap.Field    { return zap.String("school_id", v) }
func ClassroomID(v string) zap.Field { return zap.String("classroom_id", v) }
func Role(v string) zap.Field        { return zap.String("role", v) }

// TokenTail loguea solo los últimos 4 caracteres de un token.
func TokenTail(tok string) zap.Field {
	if len(tok) > 4 {
		tok = tok[len(tok)-4:]
	}
	return zap.String("token_tail", tok)
}

// ─── Sistema ───

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Err(err error) zap.Field      { return zap.Error(err) }

// ─── Genéricos ───

func Count(v int) zap.Field             { return zap.Int("count", v) }
func String(key, v string) zap.Field    { return zap.String(key, v) }
func Int(key string, v int) zap.Field   { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field   { return zap.Any(key, v) }
