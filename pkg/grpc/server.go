// Package grpc runs a gRPC sidecar next to the HTTP API. It wires the same
// ambient concerns as the HTTP stack (panic recovery, request logging,
// Prometheus metrics) as unary interceptors, and exposes the standard
// health-check and reflection services.
package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/adityaraj/bazario/pkg/logger"
	"github.com/adityaraj/bazario/pkg/metrics"
)

var (
	handledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bazario",
		Subsystem: "grpc",
		Name:      "server_handled_total",
		Help:      "Total number of RPCs completed on the server.",
	}, []string{"method", "code"})

	handlingSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bazario",
		Subsystem: "grpc",
		Name:      "server_handling_seconds",
		Help:      "Histogram of RPC handling latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)

func init() {
	metrics.MustRegister(handledTotal, handlingSeconds)
}

// recoveryInterceptor converts panics in handlers into codes.Internal.
func recoveryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("grpc: panic recovered", "method", info.FullMethod, "panic", r)
			err = status.Errorf(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}

func loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)
	logger.Info("grpc: request",
		"method", info.FullMethod,
		"code", code.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, err
}

func metricsInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	handledTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
	handlingSeconds.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
	return resp, err
}

// healthServer implements the standard gRPC health-checking protocol.
type healthServer struct {
	grpc_health_v1.UnimplementedHealthServer
}

func (h *healthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	return &grpc_health_v1.HealthCheckResponse{
		Status: grpc_health_v1.HealthCheckResponse_SERVING,
	}, nil
}

// Start creates a gRPC server with the standard interceptor chain, registers
// health and reflection services, and begins serving on the given port in a
// background goroutine. Additional services can be registered on the returned
// server before the first RPC arrives.
func Start(port string) (*grpc.Server, net.Listener, error) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, nil, err
	}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			recoveryInterceptor,
			loggingInterceptor,
			metricsInterceptor,
		),
	)

	grpc_health_v1.RegisterHealthServer(srv, &healthServer{})
	reflection.Register(srv)

	go func() {
		logger.Info("grpc: server listening", "port", port)
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc: serve failed", "error", err)
		}
	}()

	return srv, lis, nil
}

// Stop gracefully stops the server, waiting up to 10 seconds for in-flight
// RPCs before forcing shutdown.
func Stop(srv *grpc.Server) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		srv.Stop()
	}
	logger.Info("grpc: server stopped")
}
