package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func subjectEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, _ := SubjectFrom(r.Context())
		_, _ = w.Write([]byte(sub))
	})
}

func TestAuthMiddleware(t *testing.T) {
	logger, _ := test.NewNullLogger()
	h := NewAuthMiddleware(logger, "s3cret")(subjectEcho())

	valid := sign(t, "s3cret", jwt.RegisteredClaims{Subject: "player-7", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))})
	cases := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		body   string
	}{
		{"query token", func(r *http.Request) { r.URL.RawQuery = "token=" + valid }, http.StatusOK, "player-7"},
		{"cookie token", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookie, Value: valid}) }, http.StatusOK, "player-7"},
		{"missing", func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"wrong secret", func(r *http.Request) {
			r.URL.RawQuery = "token=" + sign(t, "other", jwt.RegisteredClaims{Subject: "x"})
		}, http.StatusUnauthorized, ""},
		{"expired", func(r *http.Request) {
			r.URL.RawQuery = "token=" + sign(t, "s3cret", jwt.RegisteredClaims{Subject: "x", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))})
		}, http.StatusUnauthorized, ""},
		{"no subject", func(r *http.Request) {
			r.URL.RawQuery = "token=" + sign(t, "s3cret", jwt.RegisteredClaims{})
		}, http.StatusUnauthorized, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestAuthMiddlewareDisabledWithoutSecret(t *testing.T) {
	logger, _ := test.NewNullLogger()
	h := NewAuthMiddleware(logger, "")(subjectEcho())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
