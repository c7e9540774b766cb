// Package aggregate merges a redirect mapping with resolved counts.
package aggregate

import (
	"context"

	"github.com/selimozcann/RedirectCounter/internal/counter"
	"github.com/selimozcann/RedirectCounter/internal/model"
)

// Paths lists the distinct redirect-target paths of m, keys in sorted
// order and paths in list order within a key.
func Paths(m model.RedirectMapping) []string {
	var paths []string
	seen := make(map[string]struct{})
	for _, key := range m.Keys() {
		for _, p := range m[key] {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}
	return paths
}

// Aggregate resolves every path of m with r and returns the output with
// all totals recomputed. Every key of m is present.
func Aggregate(ctx context.Context, m model.RedirectMapping, r counter.Resolver) model.RunOutput {
	out := model.NewRunOutput(m)
	counts := r.Resolve(ctx, Paths(m))
	for _, pc := range out {
		for p := range pc.PathsCounts {
			pc.PathsCounts[p] = counts[p]
		}
		pc.Recompute()
	}
	return out
}

// Filter returns a copy of out without keys whose counts are all zero and
// without zero entries in the remaining keys.
func Filter(out model.RunOutput) model.RunOutput {
	filtered := make(model.RunOutput, len(out))
	for key, pc := range out {
		if !pc.HasPositive() {
			continue
		}
		kept := &model.PathCounts{PathsCounts: make(map[string]int, len(pc.PathsCounts))}
		for p, c := range pc.PathsCounts {
			if c > 0 {
				kept.PathsCounts[p] = c
			}
		}
		kept.Recompute()
		filtered[key] = kept
	}
	return filtered
}
