package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/selimozcann/RedirectCounter/internal/banner"
	"github.com/selimozcann/RedirectCounter/internal/config"
	"github.com/selimozcann/RedirectCounter/internal/httpclient"
	"github.com/selimozcann/RedirectCounter/internal/output"
	"github.com/selimozcann/RedirectCounter/internal/publish"
	"github.com/selimozcann/RedirectCounter/internal/runner"
	"github.com/selimozcann/RedirectCounter/internal/statuscolor"
)

type options struct {
	envFile         string
	mapURL          string
	strategy        string
	countsURL       string
	counterTemplate string
	mapFile         string
	outputFile      string
	shape           string
	filterZero      bool
	concurrency     int
	timeout         time.Duration
	retries         int
	verbose         bool
	silent          bool
	noBanner        bool
}

var opts options

var rootCmd = &cobra.Command{
	Use:           "redirectcounter",
	Short:         "Aggregate visit counts for every redirect in a redirect map",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if !opts.noBanner && !opts.silent {
			banner.Print(color.Output)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return run(ctx, cfg)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&opts.envFile, "env-file", "", "Load environment from this file instead of .env")
	f.StringVar(&opts.mapURL, "map-url", "", "Redirect map URL (env "+config.EnvMapURL+")")
	f.StringVar(&opts.strategy, "strategy", "", "Count strategy: bulk or per-path (env "+config.EnvStrategy+")")
	f.StringVar(&opts.countsURL, "counts-url", "", "Bulk counts URL (env "+config.EnvCountsURL+")")
	f.StringVar(&opts.counterTemplate, "counter-template", "", "Per-path counter URL with {pathname} (env "+config.EnvCounterTemplate+")")
	f.StringVar(&opts.mapFile, "map-file", "", "Redirect map cache file (env "+config.EnvMapFile+")")
	f.StringVarP(&opts.outputFile, "output", "o", "", "Counts output file (env "+config.EnvOutputFile+")")
	f.StringVar(&opts.shape, "shape", "", "Output shape: flat or timestamped (env "+config.EnvShape+")")
	f.BoolVar(&opts.filterZero, "filter-zero", true, "Drop zero counts and keys without counts (env "+config.EnvFilterZero+")")
	f.IntVarP(&opts.concurrency, "concurrency", "t", 1, "Concurrent per-path lookups (env "+config.EnvConcurrency+")")
	f.DurationVar(&opts.timeout, "timeout", config.DefaultTimeout, "Per-request timeout (env "+config.EnvTimeout+")")
	f.IntVar(&opts.retries, "retries", 0, "Retries on transport errors and 5xx (env "+config.EnvRetries+")")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")
	f.BoolVar(&opts.silent, "silent", false, "Suppress status output")
	f.BoolVar(&opts.noBanner, "no-banner", false, "Do not print the banner")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		statuscolor.New(false, false).Error(err)
		os.Exit(1)
	}
}

// loadConfig layers flags that were set explicitly over the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var files []string
	if opts.envFile != "" {
		files = append(files, opts.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("map-url") {
		cfg.MapURL = opts.mapURL
	}
	if changed("counts-url") {
		cfg.CountsURL = opts.countsURL
		if !changed("strategy") && os.Getenv(config.EnvStrategy) == "" {
			cfg.Strategy = config.StrategyBulk
		}
	}
	if changed("strategy") {
		cfg.Strategy = config.Strategy(opts.strategy)
	}
	if changed("counter-template") {
		cfg.CounterTemplate = opts.counterTemplate
	}
	if changed("map-file") {
		cfg.MapFile = opts.mapFile
	}
	if changed("output") {
		cfg.OutputFile = opts.outputFile
	}
	if changed("shape") {
		cfg.Shape = output.Shape(opts.shape)
	}
	if changed("filter-zero") {
		cfg.FilterZero = opts.filterZero
	}
	if changed("concurrency") {
		cfg.Concurrency = opts.concurrency
	}
	if changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if changed("retries") {
		cfg.Retries = opts.retries
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	printer := statuscolor.New(opts.verbose, opts.silent)
	printConfig(printer, cfg)

	client := httpclient.New(httpclient.Config{Timeout: cfg.Timeout, Retries: cfg.Retries})
	defer client.CloseIdleConnections()

	var runOpts []runner.Option
	if cfg.Publish != nil {
		sink, err := publish.NewS3Sink(*cfg.Publish)
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		runOpts = append(runOpts, runner.WithSink(sink))
	}

	r, err := runner.New(cfg, client, printer, printer.LookupFailed, runOpts...)
	if err != nil {
		return err
	}
	rep, err := r.Run(ctx)
	if err != nil {
		return err
	}
	printer.Verbose("done", "keys=%d paths=%d written=%d total=%d failed=%d duration=%s",
		rep.Keys, rep.Paths, rep.KeysWritten, rep.GrandTotal, rep.FailedLookups, rep.Duration.Round(time.Millisecond))
	return nil
}

func printConfig(p *statuscolor.Printer, cfg *config.Config) {
	params := cfg.Params()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.Verbose("config", "%s=%s", k, params[k])
	}
}
