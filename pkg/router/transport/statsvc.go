package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	stdopentracing "github.com/opentracing/opentracing-go"
	stdzipkin "github.com/openzipkin/zipkin-go"

	"github.com/cage1016/gokitstats/pkg/statsvc/endpoints"
	"github.com/cage1016/gokitstats/pkg/statsvc/transports"
)

// MakeStatsvcHandler exposes the statsvc HTTP API in front of the given
// statsvc instances, calling them through the client library. Error replies
// from statsvc keep their status code.
func MakeStatsvcHandler(instances []string, retryMax int, retryTimeout time.Duration, rateLimit int, tracer stdopentracing.Tracer, zipkinTracer *stdzipkin.Tracer, logger log.Logger) http.Handler {
	var eps endpoints.Endpoints
	svc, err := transports.NewHTTPClient(instances, retryMax, retryTimeout, rateLimit, tracer, zipkinTracer, logger)
	if err != nil {
		eps = endpoints.Endpoints{
			MeanEndpoint:   failingEndpoint(err),
			MedianEndpoint: failingEndpoint(err),
			ModeEndpoint:   failingEndpoint(err),
		}
	} else {
		eps = svc.(endpoints.Endpoints)
	}

	return transports.NewHTTPHandler(eps, tracer, zipkinTracer, log.With(logger, "upstream", "statsvc"))
}

func failingEndpoint(err error) endpoint.Endpoint {
	return func(_ context.Context, _ interface{}) (interface{}, error) {
		return nil, err
	}
}
