package utils

import (
	"context"

	"github.com/GabrielGBraga/mise/globals"
)

// GetUserIDFromContext returns the authenticated user id, or "" for anonymous requests.
func GetUserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(globals.UserIDKey).(string)
	return id
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(globals.RequestIDKey).(string)
	return id
}
