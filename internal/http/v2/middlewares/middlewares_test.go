package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aulaviva/invites/internal/domain/repository"
	"github.com/aulaviva/invites/internal/jwt"
	"github.com/aulaviva/invites/internal/rate"
)

func newIssuer(t *testing.T) *jwt.Issuer {
	t.Helper()
	ks, err := jwt.NewEd25519("mw-test")
	require.NoError(t, err)
	return jwt.NewIssuer("https://api.aulaviva.test", ks)
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetUserID(r.Context())))
	})
}

func TestRequireAuth(t *testing.T) {
	iss := newIssuer(t)
	h := RequireAuth(iss)(echoUser())

	tok, _, err := iss.IssueSession("p-1", "a@b.c", repository.Claims{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "p-1", rec.Body.String())

	tampered := "Bearer " + tok + "x"
	cases := map[string]string{
		"":               "TOKEN_MISSING",
		"Basic abc":      "TOKEN_MISSING",
		"Bearer garbage": "TOKEN_INVALID",
		tampered:         "TOKEN_INVALID",
	}
	for header, code := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code, header)
		require.Contains(t, rec.Body.String(), code, header)
	}

	iss.Now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, err := iss.IssueSession("p-1", "", repository.Claims{})
	require.NoError(t, err)
	iss.Now = time.Now
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+old)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "TOKEN_EXPIRED")
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (rate.Result, error) {
	return rate.Result{}, context.DeadlineExceeded
}

func TestWithRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := WithRateLimit(rate.NewMemoryLimiter("t:", 2, time.Hour), IPKey("preview"))(ok)

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusNoContent, do("10.0.0.1").Code)
	require.Equal(t, http.StatusNoContent, do("10.0.0.1").Code)
	rec := do("10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	// otra IP tiene su propio cupo
	require.Equal(t, http.StatusNoContent, do("10.0.0.2").Code)

	// nil y limiter caído dejan pasar
	require.Equal(t, http.StatusNoContent, serve(WithRateLimit(nil, IPKey("x"))(ok)).Code)
	require.Equal(t, http.StatusNoContent, serve(WithRateLimit(failingLimiter{}, IPKey("x"))(ok)).Code)
}

func TestUserKeyFallsBackToIP(t *testing.T) {
	key := UserKey("consume")
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.1.1.1:80"
	require.Equal(t, "consume|ip|10.1.1.1", key(req))

	req = req.WithContext(WithSession(req.Context(), &jwt.Session{Subject: "p-7"}))
	require.Equal(t, "consume|user|p-7", key(req))
}

func TestRecoverAndRequestID(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		panic("boom")
	}), WithRecover(), WithRequestID())

	rec := serve(h)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotEmpty(t, seen)
}

func serve(h http.Handler) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestSecurityHeaders(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	h := WithSecurityHeaders(DefaultSecurityHeaders())(ok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v2/invitations/preview", nil))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.Empty(t, rec.Header().Get("Strict-Transport-Security"), "plain http gets no HSTS")

	req := httptest.NewRequest(http.MethodGet, "/v2/invitations/preview", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "max-age=15552000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))

	strict := WithSecurityHeaders(SecurityHeadersOptions{HSTSMaxAge: time.Hour})(ok)
	rec = httptest.NewRecorder()
	strict.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Strict-Transport-Security"), "forwarded proto ignored unless trusted")
}
