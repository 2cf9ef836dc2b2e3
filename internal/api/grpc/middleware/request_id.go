package middleware

import (
	"context"

	"github.com/google/uuid"
	grpcmiddleware "github.com/grpc-ecosystem/go-grpc-middleware/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	grpcctx "github.com/dtroode/users-server/internal/api/grpc/context"
	"github.com/dtroode/users-server/internal/logger"
	"github.com/dtroode/users-server/internal/model"
)

// RequestID makes sure every call carries a correlation ID. A client-supplied
// x-request-id is kept; otherwise a new UUID is generated. The ID is echoed
// back in the response header.
type RequestID struct {
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewRequestID creates a new RequestID middleware instance.
func NewRequestID(contextManager model.ContextManager, logger *logger.Logger) *RequestID {
	return &RequestID{contextManager: contextManager, logger: logger}
}

// HandleGRPC is the unary interceptor.
func (m *RequestID) HandleGRPC(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	return handler(m.withRequestID(ctx, info.FullMethod), req)
}

// HandleGRPCStream is the stream interceptor.
func (m *RequestID) HandleGRPCStream(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	wrapped := grpcmiddleware.WrapServerStream(ss)
	wrapped.WrappedContext = m.withRequestID(ss.Context(), info.FullMethod)
	return handler(srv, wrapped)
}

func (m *RequestID) withRequestID(ctx context.Context, method string) context.Context {
	requestID, ok := m.contextManager.GetRequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
		ctx = m.contextManager.SetRequestIDToContext(ctx, requestID)
	}

	if err := grpc.SetHeader(ctx, metadata.Pairs(grpcctx.RequestIDKey, requestID)); err != nil {
		m.logger.Debug("RequestID middleware: response header not set",
			"method", method,
			"error", err.Error())
	}

	return ctx
}
