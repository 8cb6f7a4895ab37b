package testutil

import (
	"context"
	"net/http"

	"biohive/internal/platform/middleware"
)

// WithNodeID adds an authenticated node ID to the request context, simulating
// what the node auth middleware does after validating a bearer token.
func WithNodeID(req *http.Request, nodeID string) *http.Request {
	if nodeID == "" {
		return req
	}
	ctx := context.WithValue(req.Context(), middleware.ContextKeyNodeID, nodeID)
	return req.WithContext(ctx)
}
