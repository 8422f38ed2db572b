package service

import (
	"context"
	"fmt"

	"github.com/go-kit/kit/metrics"
)

type instrumentingMiddleware struct {
	requests metrics.Counter
	next     StatsService
}

// InstrumentingMiddleware counts calls per method, labelled by outcome.
// The counter must accept the "method" and "success" label names.
func InstrumentingMiddleware(requests metrics.Counter) Middleware {
	return func(next StatsService) StatsService {
		return instrumentingMiddleware{requests: requests, next: next}
	}
}

func (im instrumentingMiddleware) Mean(ctx context.Context, nums []int64) (rs float64, err error) {
	defer func() {
		im.requests.With("method", "mean", "success", fmt.Sprint(err == nil)).Add(1)
	}()
	return im.next.Mean(ctx, nums)
}

func (im instrumentingMiddleware) Median(ctx context.Context, nums []int64) (rs float64, err error) {
	defer func() {
		im.requests.With("method", "median", "success", fmt.Sprint(err == nil)).Add(1)
	}()
	return im.next.Median(ctx, nums)
}

func (im instrumentingMiddleware) Mode(ctx context.Context, nums []int64) (rs int64, err error) {
	defer func() {
		im.requests.With("method", "mode", "success", fmt.Sprint(err == nil)).Add(1)
	}()
	return im.next.Mode(ctx, nums)
}
