package transports

import (
	kitgrpc "github.com/go-kit/kit/transport/grpc"
	grpcmiddleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"github.com/grpc-ecosystem/grpc-opentracing/go/otgrpc"
	stdopentracing "github.com/opentracing/opentracing-go"
	stdzipkin "github.com/openzipkin/zipkin-go"
	zipkingrpc "github.com/openzipkin/zipkin-go/middleware/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewGRPCHealthServer returns a gRPC server exposing the standard health
// service backed by hs, plus server reflection. Calls are traced with both
// tracers, like the HTTP handler.
func NewGRPCHealthServer(hs *health.Server, otTracer stdopentracing.Tracer, zipkinTracer *stdzipkin.Tracer) *grpc.Server {
	server := grpc.NewServer(
		grpc.UnaryInterceptor(grpcmiddleware.ChainUnaryServer(
			kitgrpc.Interceptor,
			otgrpc.OpenTracingServerInterceptor(otTracer),
		)),
		grpc.StatsHandler(zipkingrpc.NewServerHandler(zipkinTracer)),
	)
	healthgrpc.RegisterHealthServer(server, hs)
	reflection.Register(server)
	return server
}
