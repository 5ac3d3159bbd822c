// Package api implements the othala REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/starford/othala/internal/authz"
)

// Auth modes.
const (
	AuthDisabled = "disabled"
	AuthToken    = "token"
	AuthJWT      = "jwt"
)

// AuthConfig selects how requests are authenticated.
//
//   - disabled: every request acts as DefaultUser.
//   - token: "Authorization: Bearer <Token>" is required and maps to DefaultUser.
//   - jwt: a bearer JWT accepted by Verifier is required; its subject is the user.
type AuthConfig struct {
	Mode        string
	Token       string
	DefaultUser string
	Verifier    *authz.TokenVerifier
}

// AuthMiddleware returns middleware that resolves the caller and stores it
// with authz.WithUser. Missing or invalid credentials get a 401.
func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := authenticate(cfg, r)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r.WithContext(authz.WithUser(r.Context(), userID)))
		})
	}
}

func authenticate(cfg AuthConfig, r *http.Request) (string, bool) {
	if cfg.Mode == AuthDisabled || cfg.Mode == "" {
		return cfg.DefaultUser, true
	}
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	bearer := strings.TrimPrefix(auth, "Bearer ")

	switch cfg.Mode {
	case AuthToken:
		if cfg.Token == "" || subtle.ConstantTimeCompare([]byte(bearer), []byte(cfg.Token)) != 1 {
			return "", false
		}
		return cfg.DefaultUser, true
	case AuthJWT:
		if cfg.Verifier == nil {
			return "", false
		}
		userID, err := cfg.Verifier.Verify(bearer)
		if err != nil {
			return "", false
		}
		return userID, true
	}
	return "", false
}
