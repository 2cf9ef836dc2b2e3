package context

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// RequestIDKey is the metadata key carrying the request correlation ID,
// both on incoming calls and in response headers.
const RequestIDKey string = "x-request-id"

// Manager represents a gRPC context manager for request ID operations.
// It stores the request ID in the incoming metadata so handlers and
// interceptors further down the chain can read it.
type Manager struct{}

// NewManager creates a new gRPC context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetRequestIDToContext sets the request ID in the gRPC incoming metadata.
// Existing metadata is copied so the caller's context is not mutated.
func (m *Manager) SetRequestIDToContext(ctx context.Context, requestID string) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.New(map[string]string{RequestIDKey: requestID})
	} else {
		md = md.Copy()
		md.Set(RequestIDKey, requestID)
	}

	return metadata.NewIncomingContext(ctx, md)
}

// GetRequestIDFromContext retrieves the request ID from gRPC incoming metadata.
// The boolean is false when no non-empty ID is present.
func (m *Manager) GetRequestIDFromContext(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}

	ids := md.Get(RequestIDKey)
	if len(ids) == 0 || ids[0] == "" {
		return "", false
	}

	return ids[0], true
}

// GetRequestIDFromResponseMetadata retrieves the request ID a server echoed
// back in response headers. Clients use it to correlate logs.
func (m *Manager) GetRequestIDFromResponseMetadata(md metadata.MD) (string, bool) {
	ids := md.Get(RequestIDKey)
	if len(ids) == 0 || ids[0] == "" {
		return "", false
	}

	return ids[0], true
}
