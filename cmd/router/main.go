package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	stdopentracing "github.com/opentracing/opentracing-go"
	"github.com/openzipkin/zipkin-go"
	zipkinhttp "github.com/openzipkin/zipkin-go/reporter/http"

	routertransport "github.com/cage1016/gokitstats/pkg/router/transport"
)

const (
	defZipkinV2URL   = ""
	defServiceName   = "router"
	defLogLevel      = "info"
	defHTTPPort      = "8000"
	defRetryTimeout  = "500" // time.Millisecond
	defRetryMax      = "3"
	defRateLimit     = "0"
	defStatsvcURL    = "localhost:3000"
	envZipkinV2URL   = "QS_ZIPKIN_V2_URL"
	envServiceName   = "QS_ROUTER_SERVICE_NAME"
	envLogLevel      = "QS_ROUTER_LOG_LEVEL"
	envHTTPPort      = "QS_ROUTER_HTTP_PORT"
	envRetryMax      = "QS_ROUTER_RETRY_MAX"
	envRetryTimeout  = "QS_ROUTER_RETRY_TIMEOUT"
	envRateLimit     = "QS_ROUTER_RATE_LIMIT"
	envStatsvcURL    = "QS_STATSVC_URL"
	statsvcURLPrefix = "statsvc"
)

// Env reads specified environment variable. If no value has been found,
// fallback is returned.
func env(key string, fallback string) (s0 string) {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type config struct {
	serviceName  string
	logLevel     string
	httpPort     string
	zipkinV2URL  string
	retryMax     int
	retryTimeout time.Duration
	rateLimit    int
	statsvcURLs  []string
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
			hostPort      = fmt.Sprintf("localhost:%s", cfg.httpPort)
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

	errs := make(chan error, 1)

	r := routertransport.NewGateway()
	r.Mount(statsvcURLPrefix, routertransport.MakeStatsvcHandler(cfg.statsvcURLs, cfg.retryMax, cfg.retryTimeout, cfg.rateLimit, tracer, zipkinTracer, logger))

	level.Info(logger).Log("mounted", strings.Join(r.Prefixes(), ","), "upstreams", strings.Join(cfg.statsvcURLs, ","))
	go startHTTPServer(r, cfg.httpPort, logger, errs)

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errs <- fmt.Errorf("%s", <-c)
	}()

	errc := <-errs
	level.Info(logger).Log("serviceName", cfg.serviceName, "terminated", errc)
}

func loadConfig(logger log.Logger) (cfg config) {
	retryMax, err := strconv.Atoi(env(envRetryMax, defRetryMax))
	if err != nil {
		level.Error(logger).Log("envRetryMax", envRetryMax, "error", err)
		retryMax, _ = strconv.Atoi(defRetryMax)
	}

	retryTimeout, err := strconv.ParseInt(env(envRetryTimeout, defRetryTimeout), 10, 0)
	if err != nil {
		level.Error(logger).Log("envRetryTimeout", envRetryTimeout, "error", err)
		retryTimeout, _ = strconv.ParseInt(defRetryTimeout, 10, 0)
	}

	rateLimit, err := strconv.Atoi(env(envRateLimit, defRateLimit))
	if err != nil {
		level.Error(logger).Log("envRateLimit", envRateLimit, "error", err)
		rateLimit, _ = strconv.Atoi(defRateLimit)
	}

	cfg.serviceName = env(envServiceName, defServiceName)
	cfg.logLevel = env(envLogLevel, defLogLevel)
	cfg.httpPort = env(envHTTPPort, defHTTPPort)
	cfg.zipkinV2URL = env(envZipkinV2URL, defZipkinV2URL)
	cfg.retryMax = retryMax
	cfg.retryTimeout = time.Duration(retryTimeout) * time.Millisecond
	cfg.rateLimit = rateLimit
	for _, u := range strings.Split(env(envStatsvcURL, defStatsvcURL), ",") {
		if u = strings.TrimSpace(u); u != "" {
			cfg.statsvcURLs = append(cfg.statsvcURLs, u)
		}
	}
	return
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

func startHTTPServer(handler http.Handler, port string, logger log.Logger, errs chan error) {
	p := fmt.Sprintf(":%s", port)
	level.Info(logger).Log("protocol", "HTTP", "exposed", port)
	errs <- http.ListenAndServe(p, handler)
}
