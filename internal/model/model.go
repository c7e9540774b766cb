package model

import "sort"

// RedirectMapping maps a logical path key to its redirect-target paths.
type RedirectMapping map[string][]string

// Keys returns the mapping keys in sorted order.
func (m RedirectMapping) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PathCounts holds the resolved count of every redirect-target path of one
// key. TotalCount is derived and only set by Recompute.
type PathCounts struct {
	PathsCounts map[string]int `json:"paths_counts"`
	TotalCount  int            `json:"total_count"`
}

// Recompute sets TotalCount to the sum of PathsCounts.
func (p *PathCounts) Recompute() {
	total := 0
	for _, c := range p.PathsCounts {
		total += c
	}
	p.TotalCount = total
}

// HasPositive reports whether any path has a count above zero.
func (p *PathCounts) HasPositive() bool {
	for _, c := range p.PathsCounts {
		if c > 0 {
			return true
		}
	}
	return false
}

// RunOutput is the aggregated result of one run keyed by path key.
type RunOutput map[string]*PathCounts

// NewRunOutput returns an output holding every key of m with each of its
// paths at zero. Repeated paths within a key collapse into one entry.
func NewRunOutput(m RedirectMapping) RunOutput {
	out := make(RunOutput, len(m))
	for key, paths := range m {
		pc := &PathCounts{PathsCounts: make(map[string]int, len(paths))}
		for _, p := range paths {
			pc.PathsCounts[p] = 0
		}
		out[key] = pc
	}
	return out
}

// Keys returns the output keys in sorted order.
func (o RunOutput) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GrandTotal sums the totals of every key.
func (o RunOutput) GrandTotal() int {
	total := 0
	for _, pc := range o {
		total += pc.TotalCount
	}
	return total
}

// TimestampedOutput wraps a RunOutput as a list of single-entry objects,
// one per key in key order.
type TimestampedOutput struct {
	Timestamp string                   `json:"timestamp"`
	Data      []map[string]*PathCounts `json:"data"`
}
