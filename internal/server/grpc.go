package server

import (
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/gurkanbulca/tasktimer/internal/middleware"
)

// GRPCOptions tunes NewGRPCServer.
type GRPCOptions struct {
	EnableReflection bool
	ServerOptions    []grpc.ServerOption
}

// NewGRPCServer builds a grpc.Server with the interceptor chain, the tracker
// service and the standard health service registered.
func NewGRPCServer(srv TrackerServer, logger *slog.Logger, opts GRPCOptions) (*grpc.Server, *health.Server) {
	metadataInterceptor := middleware.NewMetadataExtractorInterceptor()
	scopeInterceptor := middleware.NewScopeInterceptor()
	validationInterceptor := middleware.NewValidationInterceptor(IDMethods()...)

	serverOpts := append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			middleware.RecoveryInterceptor(logger),
			metadataInterceptor.Unary(),
			scopeInterceptor.Unary(),
			middleware.LoggingInterceptor(logger),
			validationInterceptor.Unary(),
		),
		grpc.ChainStreamInterceptor(
			metadataInterceptor.Stream(),
			scopeInterceptor.Stream(),
		),
	}, opts.ServerOptions...)

	grpcServer := grpc.NewServer(serverOpts...)
	RegisterTrackerServer(grpcServer, srv)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	if opts.EnableReflection {
		reflection.Register(grpcServer)
	}
	return grpcServer, healthServer
}
