package service

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

type loggingMiddleware struct {
	logger log.Logger
	next   StatsService
}

// LoggingMiddleware takes a logger as a dependency
// and returns a ServiceMiddleware.
func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next StatsService) StatsService {
		return loggingMiddleware{level.Info(logger), next}
	}
}

func (lm loggingMiddleware) Mean(ctx context.Context, nums []int64) (rs float64, err error) {
	defer func(begin time.Time) {
		lm.logger.Log("method", "Mean", "count", len(nums), "rs", rs, "err", err, "took", time.Since(begin))
	}(time.Now())

	return lm.next.Mean(ctx, nums)
}

func (lm loggingMiddleware) Median(ctx context.Context, nums []int64) (rs float64, err error) {
	defer func(begin time.Time) {
		lm.logger.Log("method", "Median", "count", len(nums), "rs", rs, "err", err, "took", time.Since(begin))
	}(time.Now())

	return lm.next.Median(ctx, nums)
}

func (lm loggingMiddleware) Mode(ctx context.Context, nums []int64) (rs int64, err error) {
	defer func(begin time.Time) {
		lm.logger.Log("method", "Mode", "count", len(nums), "rs", rs, "err", err, "took", time.Since(begin))
	}(time.Now())

	return lm.next.Mode(ctx, nums)
}
