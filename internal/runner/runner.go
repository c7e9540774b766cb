package runner

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/selimozcann/RedirectCounter/internal/aggregate"
	"github.com/selimozcann/RedirectCounter/internal/config"
	"github.com/selimozcann/RedirectCounter/internal/counter"
	"github.com/selimozcann/RedirectCounter/internal/model"
	"github.com/selimozcann/RedirectCounter/internal/output"
	"github.com/selimozcann/RedirectCounter/internal/publish"
	"github.com/selimozcann/RedirectCounter/internal/redirectmap"
)

// Reporter receives the status lines of a run.
type Reporter interface {
	Success(format string, args ...any)
	Verbose(tag, format string, args ...any)
}

// Report summarizes a finished run.
type Report struct {
	Keys          int
	Paths         int
	KeysWritten   int
	GrandTotal    int
	FailedLookups int
	Duration      time.Duration
}

// Runner executes load, aggregate, filter, persist and publish in order.
type Runner struct {
	cfg      *config.Config
	client   *http.Client
	resolver counter.Resolver
	sink     publish.Sink
	report   Reporter
	now      func() time.Time
	failed   atomic.Int64
}

// Option customizes a Runner.
type Option func(*Runner)

// WithSink publishes both artifacts after they are written.
func WithSink(s publish.Sink) Option { return func(r *Runner) { r.sink = s } }

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

// WithResolver replaces the resolver built from the config.
func WithResolver(res counter.Resolver) Option { return func(r *Runner) { r.resolver = res } }

// New creates a Runner. When no resolver is given one is built from cfg;
// failed lookups are counted and passed to onFailure.
func New(cfg *config.Config, client *http.Client, rep Reporter, onFailure counter.FailureFunc, opts ...Option) (*Runner, error) {
	r := &Runner{cfg: cfg, client: client, report: rep, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.resolver != nil {
		return r, nil
	}
	res, err := NewResolver(cfg, client, func(target string, err error) {
		r.failed.Add(1)
		if onFailure != nil {
			onFailure(target, err)
		}
	})
	if err != nil {
		return nil, err
	}
	r.resolver = res
	return r, nil
}

// NewResolver builds the resolver selected by cfg.Strategy.
func NewResolver(cfg *config.Config, client *http.Client, onFailure counter.FailureFunc) (counter.Resolver, error) {
	switch cfg.Strategy {
	case config.StrategyBulk:
		return counter.NewBulk(client, cfg.CountsURL, onFailure), nil
	case config.StrategyPerPath:
		return counter.NewPerPath(client, counter.PerPathConfig{
			Template:    cfg.CounterTemplate,
			Concurrency: cfg.Concurrency,
			OnFailure:   onFailure,
		})
	}
	return nil, fmt.Errorf("unknown strategy %q", cfg.Strategy)
}

// Run performs one complete pass. Map and write failures are returned;
// count failures only lower the totals.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	start := r.now()
	r.failed.Store(0)
	var rep Report

	m, err := redirectmap.Load(ctx, r.client, r.cfg.MapURL, r.cfg.MapFile)
	if err != nil {
		return rep, fmt.Errorf("load redirect map: %w", err)
	}
	rep.Keys = len(m)
	r.success("Redirect map fetched and saved to %s.", r.cfg.MapFile)

	paths := aggregate.Paths(m)
	rep.Paths = len(paths)
	r.verbose("count", "resolving %d paths for %d keys via %s", len(paths), len(m), r.cfg.Strategy)

	out := aggregate.Aggregate(ctx, m, r.resolver)
	if r.cfg.FilterZero {
		out = aggregate.Filter(out)
	}
	rep.FailedLookups = int(r.failed.Load())
	rep.KeysWritten = len(out)
	rep.GrandTotal = out.GrandTotal()

	if err := r.persist(ctx, out); err != nil {
		return rep, err
	}
	rep.Duration = r.now().Sub(start)
	return rep, nil
}

func (r *Runner) persist(ctx context.Context, out model.RunOutput) error {
	var buf bytes.Buffer
	if err := output.EncodeJSON(&buf, output.Build(r.cfg.Shape, out, r.now())); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if err := output.WriteFile(r.cfg.OutputFile, buf.Bytes()); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if r.cfg.FilterZero {
		r.success("Filtered data saved to %s.", r.cfg.OutputFile)
	} else {
		r.success("Transformed data saved to %s.", r.cfg.OutputFile)
	}
	r.verbose("write", "counts -> %s", r.cfg.OutputFile)

	if r.sink == nil {
		return nil
	}
	cached, err := os.ReadFile(r.cfg.MapFile)
	if err != nil {
		return fmt.Errorf("read redirect map cache: %w", err)
	}
	artifacts := []struct {
		path string
		data []byte
	}{
		{r.cfg.MapFile, cached},
		{r.cfg.OutputFile, buf.Bytes()},
	}
	for _, a := range artifacts {
		name := filepath.Base(a.path)
		if err := r.sink.Put(ctx, name, a.data); err != nil {
			return fmt.Errorf("publish %s: %w", name, err)
		}
		r.verbose("publish", "%s uploaded", name)
	}
	r.success("Published %d artifacts.", len(artifacts))
	return nil
}

func (r *Runner) success(format string, args ...any) {
	if r.report != nil {
		r.report.Success(format, args...)
	}
}

func (r *Runner) verbose(tag, format string, args ...any) {
	if r.report != nil {
		r.report.Verbose(tag, format, args...)
	}
}
