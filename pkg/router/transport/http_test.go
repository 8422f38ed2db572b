package transport_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/discard"
	stdopentracing "github.com/opentracing/opentracing-go"
	stdzipkin "github.com/openzipkin/zipkin-go"
	"github.com/openzipkin/zipkin-go/reporter"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cage1016/gokitstats/pkg/router/transport"
	"github.com/cage1016/gokitstats/pkg/statsvc/endpoints"
	"github.com/cage1016/gokitstats/pkg/statsvc/service"
	"github.com/cage1016/gokitstats/pkg/statsvc/transports"
)

type envelope struct {
	Response struct {
		Operation string  `json:"operation"`
		Value     float64 `json:"value"`
	} `json:"response"`
	Error struct {
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"error"`
}

var _ = Describe("Router", func() {
	var (
		zipkinTracer *stdzipkin.Tracer
		logger       log.Logger
		upstream     *httptest.Server
	)

	BeforeEach(func() {
		var err error
		zipkinTracer, err = stdzipkin.NewTracer(reporter.NewNoopReporter(), stdzipkin.WithNoopTracer(true))
		Expect(err).NotTo(HaveOccurred())
		logger = log.NewNopLogger()

		svc := service.New(logger, discard.NewCounter())
		eps := endpoints.New(svc, logger, discard.NewHistogram(), endpoints.DefaultRateLimit, stdopentracing.GlobalTracer(), zipkinTracer)
		upstream = httptest.NewServer(transports.NewHTTPHandler(eps, stdopentracing.GlobalTracer(), zipkinTracer, logger))
		DeferCleanup(upstream.Close)
	})

	newRouter := func(instances ...string) *transport.Gateway {
		r := transport.NewGateway()
		r.Mount("statsvc", transport.MakeStatsvcHandler(instances, 3, time.Second, 0, stdopentracing.GlobalTracer(), zipkinTracer, logger))
		return r
	}

	get := func(h http.Handler, target string) (*httptest.ResponseRecorder, envelope) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		var env envelope
		if rec.Header().Get("Content-Type") != "" && rec.Code != http.StatusNotFound {
			json.Unmarshal(rec.Body.Bytes(), &env)
		}
		return rec, env
	}

	It("Answers ok on the root path", func() {
		rec, _ := get(newRouter(upstream.URL), "/")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal("ok"))
	})

	It("Only answers GET and HEAD on the root path", func() {
		rec := httptest.NewRecorder()
		newRouter(upstream.URL).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
	})

	It("Normalises mount prefixes", func() {
		g := transport.NewGateway()
		g.Mount("/b/", http.NotFoundHandler())
		g.Mount("a", http.NotFoundHandler())
		Expect(g.Prefixes()).To(Equal([]string{"a", "b"}))
	})

	It("Refuses to mount a prefix twice", func() {
		g := transport.NewGateway()
		g.Mount("statsvc", http.NotFoundHandler())
		Expect(func() { g.Mount("/statsvc", http.NotFoundHandler()) }).To(Panic())
		Expect(func() { g.Mount("/", http.NotFoundHandler()) }).To(Panic())
	})

	DescribeTable("Forwards statistics to statsvc",
		func(target, operation string, expectation float64) {
			rec, env := get(newRouter(upstream.URL), target)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(env.Response.Operation).To(Equal(operation))
			Expect(env.Response.Value).To(Equal(expectation))
		},
		Entry("Mean", "/statsvc/mean?nums=1,2,3,4", "mean", 2.5),
		Entry("Median", "/statsvc/median?nums=1,2,3", "median", 2.0),
		Entry("Mode", "/statsvc/mode?nums=5,5,3", "mode", 5.0),
	)

	It("Rejects invalid input with 400", func() {
		rec, env := get(newRouter(upstream.URL), "/statsvc/mode?nums=1,x")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(env.Error.Message).To(Equal("x is not a number"))
		Expect(env.Error.Status).To(Equal(http.StatusBadRequest))
	})

	It("Reports an unreachable statsvc as a server error", func() {
		rec, env := get(newRouter("127.0.0.1:1"), "/statsvc/mean?nums=1")
		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(env.Error.Status).To(Equal(http.StatusInternalServerError))
	})

	DescribeTable("Passes statsvc error codes through",
		func(code int, message string) {
			failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(code)
				fmt.Fprintf(w, `{"error":{"message":%q,"status":%d}}`, message, code)
			}))
			defer failing.Close()

			rec, env := get(newRouter(failing.URL), "/statsvc/mean?nums=1,2")
			Expect(rec.Code).To(Equal(code))
			Expect(env.Error.Status).To(Equal(code))
			Expect(env.Error.Message).To(Equal(message))
		},
		Entry("Rate limited", http.StatusTooManyRequests, "rate limit exceeded"),
		Entry("Open circuit", http.StatusServiceUnavailable, "circuit breaker is open"),
	)

	It("Reports a missing statsvc configuration as a server error", func() {
		rec, _ := get(newRouter(), "/statsvc/mean?nums=1")
		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
	})

	It("Does not route unknown prefixes", func() {
		rec, _ := get(newRouter(upstream.URL), "/unknown/mean?nums=1")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})
})
