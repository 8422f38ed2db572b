package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdopentracing "github.com/opentracing/opentracing-go"
	"github.com/openzipkin/zipkin-go"
	zipkinhttp "github.com/openzipkin/zipkin-go/reporter/http"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cage1016/gokitstats/pkg/statsvc/endpoints"
	"github.com/cage1016/gokitstats/pkg/statsvc/service"
	"github.com/cage1016/gokitstats/pkg/statsvc/transports"
)

const (
	defZipkinV2URL string = ""
	defNameSpace   string = "gokitstats"
	defServiceName string = "statsvc"
	defLogLevel    string = "info"
	defServiceHost string = "localhost"
	defHTTPPort    string = "3000"
	defGRPCPort    string = ""
	defRateLimit   string = "10000"
	envZipkinV2URL string = "QS_ZIPKIN_V2_URL"
	envNameSpace   string = "QS_STATSVC_NAMESPACE"
	envServiceName string = "QS_STATSVC_SERVICE_NAME"
	envLogLevel    string = "QS_STATSVC_LOG_LEVEL"
	envServiceHost string = "QS_STATSVC_SERVICE_HOST"
	envHTTPPort    string = "QS_STATSVC_HTTP_PORT"
	envGRPCPort    string = "QS_STATSVC_GRPC_PORT"
	envRateLimit   string = "QS_STATSVC_RATE_LIMIT"
)

type config struct {
	nameSpace   string
	serviceName string
	logLevel    string
	serviceHost string
	httpPort    string
	grpcPort    string
	zipkinV2URL string
	rateLimit   int
}

// Env reads specified environment variable. If no value has been found,
// fallback is returned.
func env(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}
	cfg := loadConfig(logger)
	logger = level.NewFilter(logger, levelOption(cfg.logLevel))
	logger = log.With(logger, "service", cfg.serviceName)

	var tracer stdopentracing.Tracer
	{
		tracer = stdopentracing.GlobalTracer()
	}

	var zipkinTracer *zipkin.Tracer
	{
		var (
			err           error
			hostPort      = fmt.Sprintf("%s:%s", cfg.serviceHost, cfg.httpPort)
			serviceName   = cfg.serviceName
			useNoopTracer = (cfg.zipkinV2URL == "")
			reporter      = zipkinhttp.NewReporter(cfg.zipkinV2URL)
		)
		defer reporter.Close()
		zEP, _ := zipkin.NewEndpoint(serviceName, hostPort)
		zipkinTracer, err = zipkin.NewTracer(reporter, zipkin.WithLocalEndpoint(zEP), zipkin.WithNoopTracer(useNoopTracer))
		if err != nil {
			level.Error(logger).Log("err", err)
			os.Exit(1)
		}
		if !useNoopTracer {
			level.Info(logger).Log("tracer", "Zipkin", "type", "Native", "URL", cfg.zipkinV2URL)
		}
	}

	errs := make(chan error, 2)
	httpHandler := NewServer(cfg, tracer, zipkinTracer, logger)
	hs := health.NewServer()
	hs.SetServingStatus(cfg.serviceName, healthgrpc.HealthCheckResponse_SERVING)

	go startHTTPServer(cfg, httpHandler, logger, errs)
	go startGRPCServer(cfg, hs, tracer, zipkinTracer, logger, errs)

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errs <- fmt.Errorf("%s", <-c)
	}()

	err := <-errs
	hs.Shutdown()
	level.Info(logger).Log("serviceName", cfg.serviceName, "terminated", err)
}

func loadConfig(logger log.Logger) (cfg config) {
	rateLimit, err := strconv.Atoi(env(envRateLimit, defRateLimit))
	if err != nil {
		level.Error(logger).Log("envRateLimit", envRateLimit, "error", err)
		rateLimit, _ = strconv.Atoi(defRateLimit)
	}

	cfg.nameSpace = env(envNameSpace, defNameSpace)
	cfg.serviceName = env(envServiceName, defServiceName)
	cfg.logLevel = env(envLogLevel, defLogLevel)
	cfg.serviceHost = env(envServiceHost, defServiceHost)
	cfg.httpPort = env(envHTTPPort, defHTTPPort)
	cfg.grpcPort = env(envGRPCPort, defGRPCPort)
	cfg.zipkinV2URL = env(envZipkinV2URL, defZipkinV2URL)
	cfg.rateLimit = rateLimit
	return cfg
}

func levelOption(l string) level.Option {
	switch l {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

func NewServer(cfg config, tracer stdopentracing.Tracer, zipkinTracer *zipkin.Tracer, logger log.Logger) http.Handler {
	requests := kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: cfg.nameSpace,
		Subsystem: cfg.serviceName,
		Name:      "requests_total",
		Help:      "Number of statistics computed, by method and outcome.",
	}, []string{"method", "success"})
	duration := kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
		Namespace: cfg.nameSpace,
		Subsystem: cfg.serviceName,
		Name:      "request_duration_seconds",
		Help:      "Request duration in seconds.",
	}, []string{"method", "success"})

	svc := service.New(logger, requests)
	eps := endpoints.New(svc, logger, duration, cfg.rateLimit, tracer, zipkinTracer)

	m := http.NewServeMux()
	m.Handle("/metrics", promhttp.Handler())
	m.Handle("/", transports.NewHTTPHandler(eps, tracer, zipkinTracer, logger))
	return m
}

func startHTTPServer(cfg config, httpHandler http.Handler, logger log.Logger, errs chan error) {
	p := fmt.Sprintf(":%s", cfg.httpPort)
	level.Info(logger).Log("serviceName", cfg.serviceName, "protocol", "HTTP", "exposed", cfg.httpPort,
		"url", fmt.Sprintf("http://%s:%s/", cfg.serviceHost, cfg.httpPort))
	errs <- http.ListenAndServe(p, httpHandler)
}

func startGRPCServer(cfg config, hs *health.Server, tracer stdopentracing.Tracer, zipkinTracer *zipkin.Tracer, logger log.Logger, errs chan error) {
	if cfg.grpcPort == "" {
		return
	}
	p := fmt.Sprintf(":%s", cfg.grpcPort)
	listener, err := net.Listen("tcp", p)
	if err != nil {
		level.Error(logger).Log("serviceName", cfg.serviceName, "protocol", "GRPC", "listen", cfg.grpcPort, "err", err)
		os.Exit(1)
	}

	level.Info(logger).Log("serviceName", cfg.serviceName, "protocol", "GRPC", "exposed", cfg.grpcPort)
	server := transports.NewGRPCHealthServer(hs, tracer, zipkinTracer)
	errs <- server.Serve(listener)
}
