package api

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// CatalogServiceName is the health service name reporting catalog state.
const CatalogServiceName = "inventory.v1.Catalog"

// GRPCHealth publishes catalog availability on the standard gRPC health
// service. The catalog is SERVING once it has been loaded and NOT_SERVING
// while the last refresh failed with nothing cached.
type GRPCHealth struct {
	server *health.Server
	logger *zap.Logger
}

// NewGRPCHealth starts in NOT_SERVING until the first catalog load.
func NewGRPCHealth(logger *zap.Logger) *GRPCHealth {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &GRPCHealth{server: health.NewServer(), logger: logger.With(zap.String("component", "grpc"))}
	g.SetCatalogReady(false)
	return g
}

// SetCatalogReady updates the overall and catalog health statuses.
func (g *GRPCHealth) SetCatalogReady(ready bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		st = healthpb.HealthCheckResponse_SERVING
	}
	g.server.SetServingStatus("", st)
	g.server.SetServingStatus(CatalogServiceName, st)
}

// Shutdown marks every service NOT_SERVING ahead of a stop.
func (g *GRPCHealth) Shutdown() {
	g.server.Shutdown()
}

// NewGRPCServer builds a server exposing health and reflection.
func NewGRPCServer(g *GRPCHealth) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		recoveryInterceptor(g.logger),
		loggingInterceptor(g.logger),
	))
	healthpb.RegisterHealthServer(s, g.server)
	// Enable gRPC server reflection (useful for tools like grpcurl).
	reflection.Register(s)
	return s
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("grpc request",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("elapsed", time.Since(start)))
		return resp, err
	}
}

func recoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("grpc handler panicked", zap.String("method", info.FullMethod), zap.Any("panic", p))
				err = status.Errorf(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
