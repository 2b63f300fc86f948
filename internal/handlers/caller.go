package handlers

import (
	"context"
	"net/http"

	"talentBack/internal/models"
)

type callerKey struct{}

// WithCaller stores the verified token claims on ctx.
func WithCaller(ctx context.Context, claims models.Claims) context.Context {
	return context.WithValue(ctx, callerKey{}, claims)
}

// CallerFrom returns the claims stored by WithCaller.
func CallerFrom(ctx context.Context) (models.Claims, bool) {
	claims, ok := ctx.Value(callerKey{}).(models.Claims)
	return claims, ok && claims.UserID != ""
}

// CallerID resolves the authenticated user of r.
func CallerID(r *http.Request) (string, bool) {
	claims, ok := CallerFrom(r.Context())
	return claims.UserID, ok
}
