package core

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"agendly/internal/types"
)

// authClaims are the claims we read from the product's access tokens.
// Tokens are issued by the auth platform (Supabase) and signed HS256 with
// the shared JWT secret.
type authClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Authenticate verifies the Bearer token and stores the resulting Actor in
// the request context. Webhook routes are never mounted behind it: the
// payment provider authenticates via its own channel, not user tokens.
func (s *Server) Authenticate(next http.Handler) http.Handler {
	secret := []byte(s.Config.Auth.JWTSecret.Unmask())

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing,
				"missing Authorization header", nil))
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid,
				"Authorization header must be a Bearer token", nil))
			return
		}

		claims := &authClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			code := types.ErrCodeAuthTokenInvalid
			if errors.Is(err, jwt.ErrTokenExpired) {
				code = types.ErrCodeAuthTokenExpired
			}
			Error(w, r, types.NewAppError(code, "access token is invalid", err))
			return
		}

		if claims.Subject == "" {
			Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid,
				"access token carries no subject", nil))
			return
		}

		ctx := types.WithActor(r.Context(), types.Actor{
			UserID: claims.Subject,
			Email:  claims.Email,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
