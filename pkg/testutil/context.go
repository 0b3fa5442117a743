package testutil

import (
	"context"
	"net/http"

	"docgov/internal/platform/middleware"
	id "docgov/pkg/domain"
)

// WithActor adds an authenticated actor to the request context, simulating
// what the auth middleware does for a valid bearer token. Invalid IDs are
// silently ignored so the request arrives unauthenticated.
func WithActor(req *http.Request, actorID string) *http.Request {
	parsed, err := id.ParseActorID(actorID)
	if err != nil {
		return req
	}
	ctx := context.WithValue(req.Context(), middleware.ContextKeyActorID, parsed)
	return req.WithContext(ctx)
}

// WithActorID is the typed variant of WithActor.
func WithActorID(req *http.Request, actorID id.ActorID) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyActorID, actorID)
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
