package service

import (
	"context"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/montanaflynn/stats"
)

// Middleware describes a service (as opposed to endpoint) middleware.
type Middleware func(StatsService) StatsService

// StatsService computes descriptive statistics over a sequence of integers.
type StatsService interface {
	Mean(ctx context.Context, nums []int64) (rs float64, err error)
	Median(ctx context.Context, nums []int64) (rs float64, err error)
	Mode(ctx context.Context, nums []int64) (rs int64, err error)
}

// the concrete implementation of service interface
type statsService struct{}

// New return a new instance of the service.
// If you want to add service middleware this is the place to put them.
func New(logger log.Logger, requests metrics.Counter) (s StatsService) {
	var svc StatsService
	{
		svc = &statsService{}
		svc = LoggingMiddleware(logger)(svc)
		svc = InstrumentingMiddleware(requests)(svc)
	}
	return svc
}

// Mean returns the arithmetic average of nums.
func (st *statsService) Mean(_ context.Context, nums []int64) (rs float64, err error) {
	if len(nums) == 0 {
		return 0, ErrEmptyNums
	}
	return stats.Mean(sample(nums))
}

// Median returns the middle value of nums once sorted, or the average of
// the two middle values when the count is even. nums is left untouched.
func (st *statsService) Median(_ context.Context, nums []int64) (rs float64, err error) {
	if len(nums) == 0 {
		return 0, ErrEmptyNums
	}
	return stats.Median(sample(nums))
}

func sample(nums []int64) stats.Float64Data {
	data := make(stats.Float64Data, len(nums))
	for i, n := range nums {
		data[i] = float64(n)
	}
	return data
}

// Mode returns the most frequent value of nums. Among values sharing the
// highest count the smallest one wins.
func (st *statsService) Mode(_ context.Context, nums []int64) (rs int64, err error) {
	if len(nums) == 0 {
		return 0, ErrEmptyNums
	}
	counts := make(map[int64]int, len(nums))
	for _, n := range nums {
		counts[n]++
	}

	best := 0
	for n, c := range counts {
		if c > best || (c == best && n < rs) {
			rs, best = n, c
		}
	}
	return rs, nil
}
