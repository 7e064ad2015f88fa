package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"groupboard/internal/auth"
	"groupboard/internal/config"
)

// contextKey keeps this package's context keys distinct from other packages'.
type contextKey string

// ClaimsKey stores the validated *auth.Claims.
const ClaimsKey contextKey = "claims"

// AuthMiddleware validates the bearer token and stores its claims in the
// request context. Every failure is a 401.
func AuthMiddleware(next http.Handler, authCfg config.AuthConfig, blacklist auth.TokenBlacklist) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := BearerToken(r)
		if !ok {
			writeJSONError(w, "missing or malformed bearer token", http.StatusUnauthorized)
			return
		}

		claims, err := auth.ValidateToken(r.Context(), tokenString, authCfg, blacklist)
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("token rejected")
			writeJSONError(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	headerParts := strings.Fields(r.Header.Get("Authorization"))
	if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
		return "", false
	}
	return headerParts[1], true
}

// GetClaimsFromContext returns the claims stored by AuthMiddleware.
func GetClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// GetUserIDFromContext returns the caller's internal user id, or 0 when the
// token carries none. Callers treat 0 as unauthenticated.
func GetUserIDFromContext(ctx context.Context) uint {
	claims, _ := GetClaimsFromContext(ctx)
	return auth.ResolveCallerID(claims)
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
