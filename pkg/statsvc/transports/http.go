package transports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/ratelimit"
	"github.com/go-kit/kit/sd"
	"github.com/go-kit/kit/sd/lb"
	"github.com/go-kit/kit/tracing/opentracing"
	"github.com/go-kit/kit/tracing/zipkin"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	stdopentracing "github.com/opentracing/opentracing-go"
	stdzipkin "github.com/openzipkin/zipkin-go"
	"github.com/sony/gobreaker"

	"github.com/cage1016/gokitstats/pkg/statsvc/endpoints"
	"github.com/cage1016/gokitstats/pkg/statsvc/service"
)

type errorBody struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type errorWrapper struct {
	Error errorBody `json:"error"`
}

type responseWrapper struct {
	Response interface{} `json:"response"`
}

var _ httptransport.StatusCoder = StatusError{}

// StatusError is a non-validation error reply from a remote statsvc. It
// keeps the status so a gateway answers with the same code.
type StatusError struct {
	Message string
	Code    int
}

func (e StatusError) Error() string {
	return e.Message
}

func (e StatusError) StatusCode() int {
	return e.Code
}

// JSONErrorDecoder turns an error envelope back into an error. 400 replies
// become service.ValidationError, other codes a StatusError.
func JSONErrorDecoder(r *http.Response) error {
	contentType := r.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		return fmt.Errorf("expected JSON formatted error, got Content-Type %s", contentType)
	}
	var w errorWrapper
	if err := json.NewDecoder(r.Body).Decode(&w); err != nil {
		return err
	}
	if r.StatusCode == http.StatusBadRequest {
		return service.NewValidationError(w.Error.Message)
	}
	return StatusError{Message: w.Error.Message, Code: r.StatusCode}
}

// NewHTTPHandler returns a handler that makes a set of endpoints available on
// predefined paths.
func NewHTTPHandler(endpoints endpoints.Endpoints, otTracer stdopentracing.Tracer, zipkinTracer *stdzipkin.Tracer, logger log.Logger) http.Handler {
	// A global zipkin tracing service is fed to each endpoint as a
	// ServerOption, so the span name is the HTTP method.
	zipkinServer := zipkin.HTTPServerTrace(zipkinTracer)

	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(httpEncodeError),
		httptransport.ServerErrorLogger(logger),
		zipkinServer,
	}

	m := mux.NewRouter()
	m.Methods(http.MethodGet).Path("/mean").Handler(httptransport.NewServer(
		endpoints.MeanEndpoint,
		decodeHTTPMeanRequest,
		encodeHTTPResponse,
		append(options, httptransport.ServerBefore(opentracing.HTTPToContext(otTracer, "Mean", logger)))...,
	))
	m.Methods(http.MethodGet).Path("/median").Handler(httptransport.NewServer(
		endpoints.MedianEndpoint,
		decodeHTTPMedianRequest,
		encodeHTTPResponse,
		append(options, httptransport.ServerBefore(opentracing.HTTPToContext(otTracer, "Median", logger)))...,
	))
	m.Methods(http.MethodGet).Path("/mode").Handler(httptransport.NewServer(
		endpoints.ModeEndpoint,
		decodeHTTPModeRequest,
		encodeHTTPResponse,
		append(options, httptransport.ServerBefore(opentracing.HTTPToContext(otTracer, "Mode", logger)))...,
	))
	return m
}

// decodeHTTPMeanRequest is a transport/http.DecodeRequestFunc that decodes the
// nums query parameter. Primarily useful in a server.
func decodeHTTPMeanRequest(_ context.Context, r *http.Request) (interface{}, error) {
	nums, err := ParseNums(r.URL.Query())
	return endpoints.MeanRequest{Nums: nums}, err
}

// decodeHTTPMedianRequest is a transport/http.DecodeRequestFunc that decodes the
// nums query parameter. Primarily useful in a server.
func decodeHTTPMedianRequest(_ context.Context, r *http.Request) (interface{}, error) {
	nums, err := ParseNums(r.URL.Query())
	return endpoints.MedianRequest{Nums: nums}, err
}

// decodeHTTPModeRequest is a transport/http.DecodeRequestFunc that decodes the
// nums query parameter. Primarily useful in a server.
func decodeHTTPModeRequest(_ context.Context, r *http.Request) (interface{}, error) {
	nums, err := ParseNums(r.URL.Query())
	return endpoints.ModeRequest{Nums: nums}, err
}

// encodeHTTPResponse wraps a StatResult in the response envelope, or hands
// a business error over to httpEncodeError.
func encodeHTTPResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoints.Failer); ok && f.Failed() != nil {
		httpEncodeError(ctx, f.Failed(), w)
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(responseWrapper{Response: response})
}

// NewHTTPClient returns a StatsService backed by one or more HTTP servers
// living at the remote instances, of the form "host:port". Calls are
// balanced round-robin and retried up to retryMax times within
// retryTimeout. rateLimit caps the outgoing requests per second, zero or
// less leaves them unlimited. We bake-in certain middlewares, implementing
// the client library pattern.
func NewHTTPClient(instances []string, retryMax int, retryTimeout time.Duration, rateLimit int, otTracer stdopentracing.Tracer, zipkinTracer *stdzipkin.Tracer, logger log.Logger) (service.StatsService, error) {
	if len(instances) == 0 {
		return nil, errors.New("no statsvc instances")
	}

	// A single ratelimiter limits the total outgoing QPS from this client
	// to all methods on all instances. Circuit breakers are per endpoint
	// and per instance, and sit inside the limiter.
	limiter := endpoints.RateLimitMiddleware(rateLimit)

	zipkinClient := zipkin.HTTPClientTrace(zipkinTracer)

	// global client middlewares
	options := []httptransport.ClientOption{
		zipkinClient,
		httptransport.ClientBefore(opentracing.ContextToHTTP(otTracer, logger)),
	}

	var meanEndpoints, medianEndpoints, modeEndpoints sd.FixedEndpointer
	for _, instance := range instances {
		u, err := parseInstance(instance)
		if err != nil {
			return nil, err
		}

		var meanEndpoint endpoint.Endpoint
		{
			meanEndpoint = httptransport.NewClient(
				http.MethodGet,
				copyURL(u, "/mean"),
				encodeHTTPNumsRequest,
				decodeHTTPMeanResponse,
				options...,
			).Endpoint()
			meanEndpoint = opentracing.TraceClient(otTracer, "Mean")(meanEndpoint)
			meanEndpoint = zipkin.TraceEndpoint(zipkinTracer, "Mean")(meanEndpoint)
			meanEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(endpoints.BreakerSettings("Mean " + u.Host)))(meanEndpoint)
			meanEndpoint = limiter(meanEndpoint)
			meanEndpoints = append(meanEndpoints, meanEndpoint)
		}

		var medianEndpoint endpoint.Endpoint
		{
			medianEndpoint = httptransport.NewClient(
				http.MethodGet,
				copyURL(u, "/median"),
				encodeHTTPNumsRequest,
				decodeHTTPMedianResponse,
				options...,
			).Endpoint()
			medianEndpoint = opentracing.TraceClient(otTracer, "Median")(medianEndpoint)
			medianEndpoint = zipkin.TraceEndpoint(zipkinTracer, "Median")(medianEndpoint)
			medianEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(endpoints.BreakerSettings("Median " + u.Host)))(medianEndpoint)
			medianEndpoint = limiter(medianEndpoint)
			medianEndpoints = append(medianEndpoints, medianEndpoint)
		}

		var modeEndpoint endpoint.Endpoint
		{
			modeEndpoint = httptransport.NewClient(
				http.MethodGet,
				copyURL(u, "/mode"),
				encodeHTTPNumsRequest,
				decodeHTTPModeResponse,
				options...,
			).Endpoint()
			modeEndpoint = opentracing.TraceClient(otTracer, "Mode")(modeEndpoint)
			modeEndpoint = zipkin.TraceEndpoint(zipkinTracer, "Mode")(modeEndpoint)
			modeEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(endpoints.BreakerSettings("Mode " + u.Host)))(modeEndpoint)
			modeEndpoint = limiter(modeEndpoint)
			modeEndpoints = append(modeEndpoints, modeEndpoint)
		}
	}

	// Returning the endpoint.Set as a service.Service relies on the
	// endpoint.Set implementing the Service methods.
	return endpoints.Endpoints{
		MeanEndpoint:   lb.Retry(retryMax, retryTimeout, lb.NewRoundRobin(meanEndpoints)),
		MedianEndpoint: lb.Retry(retryMax, retryTimeout, lb.NewRoundRobin(medianEndpoints)),
		ModeEndpoint:   lb.Retry(retryMax, retryTimeout, lb.NewRoundRobin(modeEndpoints)),
	}, nil
}

func parseInstance(instance string) (*url.URL, error) {
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	return url.Parse(instance)
}

func copyURL(base *url.URL, path string) *url.URL {
	next := *base
	next.Path = strings.TrimSuffix(base.Path, "/") + path
	return &next
}

// encodeHTTPNumsRequest is a transport/http.EncodeRequestFunc that puts the
// numbers of any statsvc request into the nums query parameter. Primarily
// useful in a client.
func encodeHTTPNumsRequest(_ context.Context, r *http.Request, request interface{}) error {
	var nums []int64
	switch req := request.(type) {
	case endpoints.MeanRequest:
		nums = req.Nums
	case endpoints.MedianRequest:
		nums = req.Nums
	case endpoints.ModeRequest:
		nums = req.Nums
	default:
		return fmt.Errorf("unexpected request type %T", request)
	}
	r.URL.RawQuery = FormatNums(nums).Encode()
	return nil
}

// decodeHTTPMeanResponse is a transport/http.DecodeResponseFunc that decodes a
// JSON-encoded mean response from the HTTP response body. A 400 reply is a
// business error and travels inside the response; any other non-200 status
// code is an endpoint error. Primarily useful in a client.
func decodeHTTPMeanResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode == http.StatusBadRequest {
		return endpoints.MeanResponse{Operation: endpoints.OpMean, Err: JSONErrorDecoder(r)}, nil
	}
	if r.StatusCode != http.StatusOK {
		return nil, JSONErrorDecoder(r)
	}
	var w struct {
		Response endpoints.MeanResponse `json:"response"`
	}
	err := json.NewDecoder(r.Body).Decode(&w)
	return w.Response, err
}

// decodeHTTPMedianResponse is a transport/http.DecodeResponseFunc that decodes a
// JSON-encoded median response from the HTTP response body. Primarily useful
// in a client.
func decodeHTTPMedianResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode == http.StatusBadRequest {
		return endpoints.MedianResponse{Operation: endpoints.OpMedian, Err: JSONErrorDecoder(r)}, nil
	}
	if r.StatusCode != http.StatusOK {
		return nil, JSONErrorDecoder(r)
	}
	var w struct {
		Response endpoints.MedianResponse `json:"response"`
	}
	err := json.NewDecoder(r.Body).Decode(&w)
	return w.Response, err
}

// decodeHTTPModeResponse is a transport/http.DecodeResponseFunc that decodes a
// JSON-encoded mode response from the HTTP response body. Primarily useful in
// a client.
func decodeHTTPModeResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode == http.StatusBadRequest {
		return endpoints.ModeResponse{Operation: endpoints.OpMode, Err: JSONErrorDecoder(r)}, nil
	}
	if r.StatusCode != http.StatusOK {
		return nil, JSONErrorDecoder(r)
	}
	var w struct {
		Response endpoints.ModeResponse `json:"response"`
	}
	err := json.NewDecoder(r.Body).Decode(&w)
	return w.Response, err
}

func httpEncodeError(_ context.Context, err error, w http.ResponseWriter) {
	if lberr, ok := err.(lb.RetryError); ok && lberr.Final != nil {
		err = lberr.Final
	}

	code := http.StatusInternalServerError
	var sc httptransport.StatusCoder
	switch {
	case errors.As(err, &sc):
		code = sc.StatusCode()
	case errors.Is(err, ratelimit.ErrLimited):
		code = http.StatusTooManyRequests
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorWrapper{Error: errorBody{Message: err.Error(), Status: code}})
}
