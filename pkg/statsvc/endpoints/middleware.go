package endpoints

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/ratelimit"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// DefaultRateLimit is the per-method allowance, in requests per second,
// used when none is configured.
const DefaultRateLimit = 10000

// RateLimitMiddleware returns a token bucket limiter refilling at qps
// tokens per second with a burst of qps. Every endpoint wrapped by the
// returned middleware shares the bucket. A qps of zero or less never
// limits.
func RateLimitMiddleware(qps int) endpoint.Middleware {
	limit, burst := rate.Limit(qps), qps
	if qps <= 0 {
		limit, burst = rate.Inf, 0
	}
	return ratelimit.NewErroringLimiter(rate.NewLimiter(limit, burst))
}

// BreakerSettings returns circuit breaker settings under which only faults
// count as failures. Rate limiting and replies below 500 leave the breaker
// alone.
func BreakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:         name,
		Timeout:      30 * time.Second,
		IsSuccessful: isSuccessful,
	}
}

func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, ratelimit.ErrLimited) {
		return true
	}
	var sc httptransport.StatusCoder
	return errors.As(err, &sc) && sc.StatusCode() < http.StatusInternalServerError
}

// LoggingMiddleware returns an endpoint middleware that logs the
// duration of each invocation, and the resulting error, if any.
func LoggingMiddleware(logger log.Logger) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (response interface{}, err error) {
			defer func(begin time.Time) {
				logger.Log("transport_error", err, "took", time.Since(begin))
			}(time.Now())
			return next(ctx, request)
		}
	}
}

// InstrumentingMiddleware returns an endpoint middleware that records
// the duration of each invocation to the passed histogram. The middleware adds
// a single field: "success", which is "true" if no error is returned, and
// "false" otherwise.
func InstrumentingMiddleware(duration metrics.Histogram) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (response interface{}, err error) {
			defer func(begin time.Time) {
				success := err == nil
				if f, ok := response.(Failer); ok && f.Failed() != nil {
					success = false
				}
				duration.With("success", fmt.Sprint(success)).Observe(time.Since(begin).Seconds())
			}(time.Now())
			return next(ctx, request)
		}
	}
}
