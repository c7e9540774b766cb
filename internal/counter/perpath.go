package counter

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

// Placeholder is replaced by the path in a per-path URL template.
const Placeholder = "{pathname}"

// PerPathConfig configures a PerPath resolver.
type PerPathConfig struct {
	Template    string
	Concurrency int // concurrent lookups, <= 1 is sequential
	OnFailure   FailureFunc
}

// PerPath issues one request per distinct counter URL against a templated
// endpoint. Each lookup fails on its own without affecting others.
type PerPath struct {
	client   *http.Client
	template string
	limit    int
	onFail   FailureFunc
}

// NewPerPath validates cfg and builds the resolver.
func NewPerPath(client *http.Client, cfg PerPathConfig) (*PerPath, error) {
	if !strings.Contains(cfg.Template, Placeholder) {
		return nil, fmt.Errorf("counter template %q has no %s placeholder", cfg.Template, Placeholder)
	}
	limit := cfg.Concurrency
	if limit < 1 {
		limit = 1
	}
	return &PerPath{
		client:   client,
		template: cfg.Template,
		limit:    limit,
		onFail:   cfg.OnFailure,
	}, nil
}

// URLFor substitutes path into the template verbatim.
func (p *PerPath) URLFor(path string) string {
	return strings.ReplaceAll(p.template, Placeholder, path)
}

// Count looks up a single path. Any failure yields 0.
func (p *PerPath) Count(ctx context.Context, path string) int {
	return p.fetch(ctx, p.URLFor(path))
}

func (p *PerPath) fetch(ctx context.Context, target string) int {
	var body struct {
		Count any `json:"count"`
	}
	if err := getJSON(ctx, p.client, target, &body); err != nil {
		p.onFail.report(target, err)
		return 0
	}
	return Coerce(body.Count)
}

// Resolve implements Resolver. Paths rendering the same counter URL share
// one lookup. Lookups run in input order, at most Concurrency at a time,
// and all complete before Resolve returns. Nothing is kept between calls.
func (p *PerPath) Resolve(ctx context.Context, paths []string) map[string]int {
	// Sized to hold every URL of this call, so nothing is evicted.
	memo, err := lru.New[string, int](max(len(paths), 1))
	if err != nil {
		return zeroes(paths)
	}

	targets := make([]string, 0, len(paths))
	for _, path := range paths {
		target := p.URLFor(path)
		if found, _ := memo.ContainsOrAdd(target, 0); !found {
			targets = append(targets, target)
		}
	}

	counts := make([]int, len(targets))
	if p.limit == 1 {
		for i, target := range targets {
			counts[i] = p.fetch(ctx, target)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(p.limit)
		for i, target := range targets {
			i, target := i, target
			g.Go(func() error {
				counts[i] = p.fetch(ctx, target)
				return nil
			})
		}
		_ = g.Wait()
	}
	for i, target := range targets {
		memo.Add(target, counts[i])
	}

	out := make(map[string]int, len(paths))
	for _, path := range paths {
		out[path], _ = memo.Peek(p.URLFor(path))
	}
	return out
}

func zeroes(paths []string) map[string]int {
	out := make(map[string]int, len(paths))
	for _, path := range paths {
		out[path] = 0
	}
	return out
}
