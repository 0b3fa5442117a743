package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "docgov/pkg/domain"
)

// JWTValidator defines the interface for validating actor access tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	ActorID  string
	ClientID string
}

type contextKeyActorID struct{}

// ContextKeyActorID is exported for use in handlers and tests.
var ContextKeyActorID = contextKeyActorID{}

// GetActorID retrieves the authenticated actor ID from the context.
func GetActorID(ctx context.Context) id.ActorID {
	actorID, ok := ctx.Value(ContextKeyActorID).(id.ActorID)
	if !ok {
		return id.ActorID{}
	}
	return actorID
}

// writeJSONError writes a JSON error response with the given status code.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireAuth validates the bearer token and stores the actor identity in
// the request context. Every transition request must carry a resolvable
// actor; anonymous writes are not a thing in this system.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			claims, err := validator.ValidateToken(strings.TrimPrefix(authHeader, bearerPrefix))
			if err != nil {
				logger.WarnContext(r.Context(), "token validation failed",
					"error", err.Error(),
					"request_id", GetRequestID(r.Context()),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			actorID, err := id.ParseActorID(claims.ActorID)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid actor identity")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyActorID, actorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
