package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type contextKey string

const userIDKey contextKey = "user_id"

// TokenVerifier is the opaque auth capability the HTTP surface consumes.
// The automation core never sees it.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
	HasRole(userID, role string) bool
}

// StaticVerifier authorizes a single shared admin token. Deployments with a
// real identity provider plug their own TokenVerifier in instead.
type StaticVerifier struct {
	Token string
}

func (v *StaticVerifier) Verify(token string) (string, error) {
	if v.Token == "" || token != v.Token {
		return "", errors.New("invalid token")
	}
	return "admin", nil
}

func (v *StaticVerifier) HasRole(userID, role string) bool {
	return userID == "admin"
}

// RequireRole authenticates the bearer token and checks the role before
// letting the request through.
func RequireRole(verifier TokenVerifier, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if !verifier.HasRole(userID, role) {
				writeError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user id, if the request passed auth.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}
