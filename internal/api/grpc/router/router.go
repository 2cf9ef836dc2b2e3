package router

import (
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/dtroode/users-server/api/userapi"
	"github.com/dtroode/users-server/internal/api/grpc/handler"
	"github.com/dtroode/users-server/internal/api/grpc/middleware"
	"github.com/dtroode/users-server/internal/logger"
	"github.com/dtroode/users-server/internal/metrics"
	"github.com/dtroode/users-server/internal/model"
)

// Option configures a Router.
type Option func(*Router)

// WithMaxMessageBytes caps both received and sent message sizes.
func WithMaxMessageBytes(n int) Option {
	return func(r *Router) {
		r.maxMessageBytes = n
	}
}

// WithReflection registers the gRPC reflection service.
func WithReflection(enabled bool) Option {
	return func(r *Router) {
		r.reflection = enabled
	}
}

// WithMetrics records every call in p.
func WithMetrics(p *metrics.Prom) Option {
	return func(r *Router) {
		r.metrics = p
	}
}

// Router represents a gRPC router for user operations.
// It manages gRPC service registration and middleware configuration.
type Router struct {
	userService     handler.UserService
	contextManager  model.ContextManager
	logger          *logger.Logger
	health          *health.Server
	metrics         *metrics.Prom
	maxMessageBytes int
	reflection      bool
}

// New creates new gRPC Router instance. The health service reports
// NOT_SERVING until SetServing is called.
func New(
	userService handler.UserService,
	contextManager model.ContextManager,
	logger *logger.Logger,
	opts ...Option,
) *Router {
	r := &Router{
		userService:    userService,
		contextManager: contextManager,
		logger:         logger,
		health:         health.NewServer(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	r.health.SetServingStatus(userapi.UserService_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return r
}

// Register registers all gRPC services and middleware.
// Interceptors run in order: panic recovery, request ID, metrics, logging.
func (r *Router) Register() *grpc.Server {
	requestID := middleware.NewRequestID(r.contextManager, r.logger)
	logging := middleware.NewLogging(r.contextManager, r.logger)
	recoveryOpt := middleware.RecoveryOption(r.logger)

	unary := []grpc.UnaryServerInterceptor{
		recovery.UnaryServerInterceptor(recoveryOpt),
		requestID.HandleGRPC,
	}
	stream := []grpc.StreamServerInterceptor{
		recovery.StreamServerInterceptor(recoveryOpt),
		requestID.HandleGRPCStream,
	}
	if r.metrics != nil {
		unary = append(unary, r.metrics.UnaryServerInterceptor())
		stream = append(stream, r.metrics.StreamServerInterceptor())
	}
	unary = append(unary, logging.HandleGRPC)
	stream = append(stream, logging.HandleGRPCStream)

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(stream...),
	}
	if r.maxMessageBytes > 0 {
		opts = append(opts,
			grpc.MaxRecvMsgSize(r.maxMessageBytes),
			grpc.MaxSendMsgSize(r.maxMessageBytes),
		)
	}

	s := grpc.NewServer(opts...)
	r.registerUserRoutes(s)
	healthpb.RegisterHealthServer(s, r.health)
	if r.reflection {
		reflection.Register(s)
	}

	return s
}

// SetServing marks the server and the user service as ready.
func (r *Router) SetServing() {
	r.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	r.health.SetServingStatus(userapi.UserService_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
}

// Shutdown reports NOT_SERVING for every service and ignores later updates.
func (r *Router) Shutdown() {
	r.health.Shutdown()
}

func (r *Router) registerUserRoutes(server *grpc.Server) {
	userHandler := handler.NewUser(r.userService, r.contextManager, r.logger)
	userapi.RegisterUserServiceServer(server, userHandler)
}
