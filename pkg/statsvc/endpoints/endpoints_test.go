package endpoints_test

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/ratelimit"
	stdopentracing "github.com/opentracing/opentracing-go"
	stdzipkin "github.com/openzipkin/zipkin-go"
	"github.com/openzipkin/zipkin-go/reporter"
	"github.com/sony/gobreaker"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cage1016/gokitstats/pkg/statsvc/endpoints"
	"github.com/cage1016/gokitstats/pkg/statsvc/service"
)

var _ = Describe("Endpoints", func() {
	var (
		ctx context.Context
		eps endpoints.Endpoints
	)

	BeforeEach(func() {
		ctx = context.Background()
		zipkinTracer, err := stdzipkin.NewTracer(reporter.NewNoopReporter(), stdzipkin.WithNoopTracer(true))
		Expect(err).NotTo(HaveOccurred())
		logger := log.NewNopLogger()
		svc := service.New(logger, discard.NewCounter())
		eps = endpoints.New(svc, logger, discard.NewHistogram(), endpoints.DefaultRateLimit, stdopentracing.GlobalTracer(), zipkinTracer)
	})

	It("Serves as a StatsService", func() {
		Expect(eps.Mean(ctx, []int64{1, 2, 3, 4})).To(Equal(2.5))
		Expect(eps.Median(ctx, []int64{1, 2, 3})).To(Equal(2.0))
		Expect(eps.Mode(ctx, []int64{5, 5, 3})).To(Equal(int64(5)))
	})

	It("Tags responses with the operation name", func() {
		resp, err := eps.MeanEndpoint(ctx, endpoints.MeanRequest{Nums: []int64{2}})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp).To(Equal(endpoints.MeanResponse{Operation: "mean", Value: 2}))

		resp, err = eps.MedianEndpoint(ctx, endpoints.MedianRequest{Nums: []int64{2}})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.(endpoints.MedianResponse).Operation).To(Equal("median"))

		resp, err = eps.ModeEndpoint(ctx, endpoints.ModeRequest{Nums: []int64{2}})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.(endpoints.ModeResponse).Operation).To(Equal("mode"))
	})

	It("Carries validation failures in the response", func() {
		resp, err := eps.ModeEndpoint(ctx, endpoints.ModeRequest{})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.(endpoints.Failer).Failed()).To(MatchError(service.ErrEmptyNums))

		_, err = eps.Mode(ctx, nil)
		Expect(err).To(MatchError(service.ErrEmptyNums))
	})

	It("Keeps the circuit closed after repeated validation failures", func() {
		for i := 0; i < 20; i++ {
			_, err := eps.Median(ctx, nil)
			Expect(err).To(MatchError(service.ErrEmptyNums))
		}
		Expect(eps.Median(ctx, []int64{4, 8})).To(Equal(6.0))
	})

	It("Reports 200 without an error", func() {
		Expect(endpoints.MeanResponse{}.StatusCode()).To(Equal(http.StatusOK))
		Expect(endpoints.MedianResponse{}.StatusCode()).To(Equal(http.StatusOK))
		Expect(endpoints.ModeResponse{}.StatusCode()).To(Equal(http.StatusOK))
	})

	DescribeTable("StatusCode()",
		func(err error, expectation int) {
			Expect(endpoints.MeanResponse{Err: err}.StatusCode()).To(Equal(expectation))
			Expect(endpoints.MedianResponse{Err: err}.StatusCode()).To(Equal(expectation))
			Expect(endpoints.ModeResponse{Err: err}.StatusCode()).To(Equal(expectation))
		},
		Entry("Validation error", service.NewValidationError("abc is not a number"), http.StatusBadRequest),
		Entry("Other error", errors.New("boom"), http.StatusInternalServerError),
	)

	It("Serves more requests than the default burst", func() {
		for i := 0; i < 250; i++ {
			Expect(eps.Mean(ctx, []int64{1, 2, 3, 4})).To(Equal(2.5))
		}
	})

	It("Keeps the circuit closed while throttling", func() {
		logger := log.NewNopLogger()
		zipkinTracer, err := stdzipkin.NewTracer(reporter.NewNoopReporter(), stdzipkin.WithNoopTracer(true))
		Expect(err).NotTo(HaveOccurred())
		svc := service.New(logger, discard.NewCounter())
		limited := endpoints.New(svc, logger, discard.NewHistogram(), 5, stdopentracing.GlobalTracer(), zipkinTracer)

		var served, throttled int
		for i := 0; i < 50; i++ {
			_, err := limited.Mean(ctx, []int64{1, 2, 3, 4})
			switch {
			case err == nil:
				served++
			case errors.Is(err, ratelimit.ErrLimited):
				throttled++
			default:
				Fail("unexpected error: " + err.Error())
			}
		}
		Expect(served).To(BeNumerically(">=", 5))
		Expect(throttled).To(BeNumerically(">", 0))
		Expect(served + throttled).To(Equal(50))
	})

	It("Never limits with a non-positive rate", func() {
		limit := endpoints.RateLimitMiddleware(0)(func(context.Context, interface{}) (interface{}, error) {
			return "ok", nil
		})
		for i := 0; i < 1000; i++ {
			Expect(limit(ctx, nil)).To(Equal("ok"))
		}
	})

	Describe("BreakerSettings()", func() {
		It("Treats success as success", func() {
			Expect(endpoints.BreakerSettings("mean").IsSuccessful(nil)).To(BeTrue())
		})

		DescribeTable("Only counts faults as failures",
			func(err error, expectation bool) {
				Expect(endpoints.BreakerSettings("mean").IsSuccessful(err)).To(Equal(expectation))
			},
			Entry("Rate limited", ratelimit.ErrLimited, true),
			Entry("Validation error", service.NewValidationError("abc is not a number"), true),
			Entry("Open circuit", gobreaker.ErrOpenState, false),
			Entry("Plain error", errors.New("connection refused"), false),
		)
	})
})
