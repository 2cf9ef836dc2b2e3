package middleware

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/users-server/internal/logger"
	"github.com/dtroode/users-server/internal/model"
)

// Logging logs gRPC requests and results.
type Logging struct {
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(contextManager model.ContextManager, logger *logger.Logger) *Logging {
	return &Logging{contextManager: contextManager, logger: logger}
}

// HandleGRPC logs method name, duration and status for each unary request.
func (l *Logging) HandleGRPC(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	lg := l.requestLogger(ctx, info.FullMethod)

	lg.InfoContext(ctx, "gRPC request started", "start_time", start.Format(time.RFC3339))

	resp, err := handler(ctx, req)

	l.logResult(ctx, lg, start, err)

	return resp, err
}

// HandleGRPCStream logs method name, duration and status for each stream.
func (l *Logging) HandleGRPCStream(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx := ss.Context()
	start := time.Now()
	lg := l.requestLogger(ctx, info.FullMethod)

	lg.InfoContext(ctx, "gRPC stream started", "start_time", start.Format(time.RFC3339))

	err := handler(srv, ss)

	l.logResult(ctx, lg, start, err)

	return err
}

func (l *Logging) requestLogger(ctx context.Context, method string) *logger.Logger {
	lg := l.logger.With("method", method)
	if requestID, ok := l.contextManager.GetRequestIDFromContext(ctx); ok {
		lg = lg.With("request_id", requestID)
	}
	return lg
}

func (l *Logging) logResult(ctx context.Context, lg *logger.Logger, start time.Time, err error) {
	statusCode := codes.OK
	if err != nil {
		if st, ok := status.FromError(err); ok {
			statusCode = st.Code()
		} else {
			statusCode = codes.Internal
		}
	}

	lg.InfoContext(ctx, "gRPC request completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"status", statusCode.String())

	if err != nil {
		lg.ErrorContext(ctx, "gRPC request failed",
			"error", err.Error(),
			"status", statusCode.String())
	}
}
