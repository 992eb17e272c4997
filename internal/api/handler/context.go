package handler

import (
	"context"

	"github.com/routegrade/routegrade/internal/api/middleware"
)

// GetClientID returns the authenticated API client, or "" on open routes.
func GetClientID(ctx context.Context) string {
	return middleware.GetClientID(ctx)
}
