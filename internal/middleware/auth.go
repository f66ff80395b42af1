// internal/middleware/auth.go
package middleware

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// TokenCookie and TokenQueryParam are where a client may present its token.
// Browsers cannot set headers on a WebSocket upgrade, so no Authorization header.
const (
	TokenCookie     = "auth_token"
	TokenQueryParam = "token"
)

type contextKey string

const subjectKey = contextKey("token-subject")

// SubjectFrom returns the verified token subject attached by NewAuthMiddleware.
func SubjectFrom(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey).(string)
	return sub, ok
}

// NewAuthMiddleware requires an HMAC-signed JWT with a sub claim. An empty
// secret disables the check and every request passes through untouched.
func NewAuthMiddleware(logger *logrus.Logger, secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := r.URL.Query().Get(TokenQueryParam)
			if tokenString == "" {
				if cookie, err := r.Cookie(TokenCookie); err == nil {
					tokenString = cookie.Value
				}
			}
			if tokenString == "" {
				logger.WithField("remote", r.RemoteAddr).Warn("token missing on upgrade")
				http.Error(w, "Missing token", http.StatusUnauthorized)
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.WithError(err).WithField("remote", r.RemoteAddr).Warn("invalid token presented")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if claims.Subject == "" {
				logger.WithField("remote", r.RemoteAddr).Warn("valid token missing 'sub' claim")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
