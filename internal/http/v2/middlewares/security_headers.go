package middlewares

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// apiHeaders se aplican a todas las respuestas. La API solo sirve JSON:
// el preview de invitaciones lo consume la app, nunca un navegador embebido.
var apiHeaders = [][2]string{
	{"Referrer-Policy", "no-referrer"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Cross-Origin-Resource-Policy", "same-site"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
}

// SecurityHeadersOptions ajusta WithSecurityHeaders.
type SecurityHeadersOptions struct {
	// HSTSMaxAge 0 desactiva Strict-Transport-Security.
	HSTSMaxAge time.Duration
	// TrustForwardedProto acepta X-Forwarded-Proto para detectar HTTPS detrás de un proxy.
	TrustForwardedProto bool
}

// DefaultSecurityHeaders: HSTS de 180 días, proxy confiable.
func DefaultSecurityHeaders() SecurityHeadersOptions {
	return SecurityHeadersOptions{HSTSMaxAge: 180 * 24 * time.Hour, TrustForwardedProto: true}
}

func (o SecurityHeadersOptions) isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return o.TrustForwardedProto && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// WithSecurityHeaders inyecta cabeceras de seguridad para una API JSON.
func WithSecurityHeaders(opts SecurityHeadersOptions) Middleware {
	hsts := ""
	if opts.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.FormatInt(int64(opts.HSTSMaxAge/time.Second), 10) + "; includeSubDomains"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range apiHeaders {
				h.Set(kv[0], kv[1])
			}
			if hsts != "" && opts.isHTTPS(r) {
				h.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}
