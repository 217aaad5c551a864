package middlewares

import (
	"math"
	"net/http"
	"strconv"

	httperrors "github.com/aulaviva/invites/internal/http/v2/errors"
	"github.com/aulaviva/invites/internal/http/v2/helpers"
	"github.com/aulaviva/invites/internal/observability/logger"
	"github.com/aulaviva/invites/internal/rate"
)

// RateKeyFunc deriva la clave de rate limiting de un request.
type RateKeyFunc func(r *http.Request) string

// IPKey agrupa por IP de cliente y bucket.
func IPKey(bucket string) RateKeyFunc {
	return func(r *http.Request) string {
		return bucket + "|ip|" + helpers.ClientIP(r)
	}
}

// UserKey agrupa por usuario autenticado; cae a IP si no hay sesión.
func UserKey(bucket string) RateKeyFunc {
	return func(r *http.Request) string {
		if uid := GetUserID(r.Context()); uid != "" {
			return bucket + "|user|" + uid
		}
		return bucket + "|ip|" + helpers.ClientIP(r)
	}
}

// WithRateLimit aplica l por key. Un limiter nil deshabilita el control; un
// error del limiter deja pasar el request.
func WithRateLimit(l rate.Limiter, key RateKeyFunc) Middleware {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.Allow(r.Context(), key(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter unavailable", logger.Op("rate"), logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if !res.Allowed {
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
				}
				httperrors.WriteError(w, httperrors.ErrRateLimitExceeded)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
