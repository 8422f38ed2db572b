package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	stdopentracing "github.com/opentracing/opentracing-go"
	"github.com/openzipkin/zipkin-go"
	"github.com/openzipkin/zipkin-go/reporter"
	"github.com/spf13/cobra"

	"github.com/cage1016/gokitstats/pkg/statsvc/service"
	"github.com/cage1016/gokitstats/pkg/statsvc/transports"
)

type options struct {
	addrs        []string
	retryMax     int
	retryTimeout time.Duration
	rateLimit    int
	verbose      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "statsctl",
		Short:        "Query a statsvc instance for mean, median or mode",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringSliceVar(&opts.addrs, "addr", []string{"localhost:3000"}, "statsvc instances (host:port)")
	cmd.PersistentFlags().IntVar(&opts.retryMax, "retry-max", 3, "maximum attempts per call")
	cmd.PersistentFlags().DurationVar(&opts.retryTimeout, "retry-timeout", 500*time.Millisecond, "overall deadline per call")
	cmd.PersistentFlags().IntVar(&opts.rateLimit, "rate-limit", 0, "client-side requests per second, 0 for unlimited")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log client activity to stderr")

	cmd.AddCommand(
		newStatCmd(opts, "mean", func(ctx context.Context, svc service.StatsService, nums []int64) (interface{}, error) {
			return svc.Mean(ctx, nums)
		}),
		newStatCmd(opts, "median", func(ctx context.Context, svc service.StatsService, nums []int64) (interface{}, error) {
			return svc.Median(ctx, nums)
		}),
		newStatCmd(opts, "mode", func(ctx context.Context, svc service.StatsService, nums []int64) (interface{}, error) {
			return svc.Mode(ctx, nums)
		}),
	)
	return cmd
}

type statFunc func(ctx context.Context, svc service.StatsService, nums []int64) (interface{}, error)

func newStatCmd(opts *options, name string, fn statFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <nums>",
		Short: fmt.Sprintf("Compute the %s of comma-separated integers", name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nums, err := transports.ParseNums(url.Values{"nums": {args[0]}})
			if err != nil {
				return err
			}

			logger := log.NewNopLogger()
			if opts.verbose {
				logger = level.NewFilter(log.NewLogfmtLogger(cmd.ErrOrStderr()), level.AllowDebug())
			}
			zipkinTracer, err := zipkin.NewTracer(reporter.NewNoopReporter(), zipkin.WithNoopTracer(true))
			if err != nil {
				return err
			}

			svc, err := transports.NewHTTPClient(opts.addrs, opts.retryMax, opts.retryTimeout, opts.rateLimit, stdopentracing.GlobalTracer(), zipkinTracer, logger)
			if err != nil {
				return err
			}

			rs, err := fn(cmd.Context(), svc, nums)
			if err != nil {
				return fmt.Errorf("%s of %s: %w", name, strings.TrimSpace(args[0]), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), rs)
			return nil
		},
	}
}
