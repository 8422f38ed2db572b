package endpoints

import (
	"context"

	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/tracing/opentracing"
	"github.com/go-kit/kit/tracing/zipkin"
	stdopentracing "github.com/opentracing/opentracing-go"
	stdzipkin "github.com/openzipkin/zipkin-go"
	"github.com/sony/gobreaker"

	"github.com/cage1016/gokitstats/pkg/statsvc/service"
)

var _ service.StatsService = Endpoints{}

// Endpoints collects all of the endpoints that compose the statsvc service. It's
// meant to be used as a helper struct, to collect all of the endpoints into a
// single parameter.
type Endpoints struct {
	MeanEndpoint   endpoint.Endpoint
	MedianEndpoint endpoint.Endpoint
	ModeEndpoint   endpoint.Endpoint
}

// New return a new instance of the endpoint that wraps the provided service.
// duration must accept the "method" and "success" label names. rateLimit is
// the per-method allowance in requests per second; zero or less disables it.
func New(svc service.StatsService, logger log.Logger, duration metrics.Histogram, rateLimit int, otTracer stdopentracing.Tracer, zipkinTracer *stdzipkin.Tracer) (ep Endpoints) {
	var meanEndpoint endpoint.Endpoint
	{
		method := OpMean
		meanEndpoint = MakeMeanEndpoint(svc)
		meanEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(BreakerSettings(method)))(meanEndpoint)
		meanEndpoint = RateLimitMiddleware(rateLimit)(meanEndpoint)
		meanEndpoint = opentracing.TraceServer(otTracer, method)(meanEndpoint)
		meanEndpoint = zipkin.TraceEndpoint(zipkinTracer, method)(meanEndpoint)
		meanEndpoint = LoggingMiddleware(log.With(logger, "method", method))(meanEndpoint)
		meanEndpoint = InstrumentingMiddleware(duration.With("method", method))(meanEndpoint)
		ep.MeanEndpoint = meanEndpoint
	}

	var medianEndpoint endpoint.Endpoint
	{
		method := OpMedian
		medianEndpoint = MakeMedianEndpoint(svc)
		medianEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(BreakerSettings(method)))(medianEndpoint)
		medianEndpoint = RateLimitMiddleware(rateLimit)(medianEndpoint)
		medianEndpoint = opentracing.TraceServer(otTracer, method)(medianEndpoint)
		medianEndpoint = zipkin.TraceEndpoint(zipkinTracer, method)(medianEndpoint)
		medianEndpoint = LoggingMiddleware(log.With(logger, "method", method))(medianEndpoint)
		medianEndpoint = InstrumentingMiddleware(duration.With("method", method))(medianEndpoint)
		ep.MedianEndpoint = medianEndpoint
	}

	var modeEndpoint endpoint.Endpoint
	{
		method := OpMode
		modeEndpoint = MakeModeEndpoint(svc)
		modeEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(BreakerSettings(method)))(modeEndpoint)
		modeEndpoint = RateLimitMiddleware(rateLimit)(modeEndpoint)
		modeEndpoint = opentracing.TraceServer(otTracer, method)(modeEndpoint)
		modeEndpoint = zipkin.TraceEndpoint(zipkinTracer, method)(modeEndpoint)
		modeEndpoint = LoggingMiddleware(log.With(logger, "method", method))(modeEndpoint)
		modeEndpoint = InstrumentingMiddleware(duration.With("method", method))(modeEndpoint)
		ep.ModeEndpoint = modeEndpoint
	}

	return ep
}

// MakeMeanEndpoint returns an endpoint that invokes Mean on the service.
// Primarily useful in a server.
func MakeMeanEndpoint(svc service.StatsService) (ep endpoint.Endpoint) {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(MeanRequest)
		if err := req.validate(); err != nil {
			return MeanResponse{Operation: OpMean, Err: err}, nil
		}
		rs, err := svc.Mean(ctx, req.Nums)
		return MeanResponse{Operation: OpMean, Value: rs, Err: err}, nil
	}
}

// Mean implements the service interface, so Endpoints may be used as a service.
// This is primarily useful in the context of a client library.
func (e Endpoints) Mean(ctx context.Context, nums []int64) (rs float64, err error) {
	resp, err := e.MeanEndpoint(ctx, MeanRequest{Nums: nums})
	if err != nil {
		return
	}
	response := resp.(MeanResponse)
	return response.Value, response.Err
}

// MakeMedianEndpoint returns an endpoint that invokes Median on the service.
// Primarily useful in a server.
func MakeMedianEndpoint(svc service.StatsService) (ep endpoint.Endpoint) {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(MedianRequest)
		if err := req.validate(); err != nil {
			return MedianResponse{Operation: OpMedian, Err: err}, nil
		}
		rs, err := svc.Median(ctx, req.Nums)
		return MedianResponse{Operation: OpMedian, Value: rs, Err: err}, nil
	}
}

// Median implements the service interface, so Endpoints may be used as a service.
// This is primarily useful in the context of a client library.
func (e Endpoints) Median(ctx context.Context, nums []int64) (rs float64, err error) {
	resp, err := e.MedianEndpoint(ctx, MedianRequest{Nums: nums})
	if err != nil {
		return
	}
	response := resp.(MedianResponse)
	return response.Value, response.Err
}

// MakeModeEndpoint returns an endpoint that invokes Mode on the service.
// Primarily useful in a server.
func MakeModeEndpoint(svc service.StatsService) (ep endpoint.Endpoint) {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(ModeRequest)
		if err := req.validate(); err != nil {
			return ModeResponse{Operation: OpMode, Err: err}, nil
		}
		rs, err := svc.Mode(ctx, req.Nums)
		return ModeResponse{Operation: OpMode, Value: rs, Err: err}, nil
	}
}

// Mode implements the service interface, so Endpoints may be used as a service.
// This is primarily useful in the context of a client library.
func (e Endpoints) Mode(ctx context.Context, nums []int64) (rs int64, err error) {
	resp, err := e.ModeEndpoint(ctx, ModeRequest{Nums: nums})
	if err != nil {
		return
	}
	response := resp.(ModeResponse)
	return response.Value, response.Err
}
