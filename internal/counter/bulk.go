package counter

import (
	"context"
	"net/http"
)

// Bulk resolves every path from one request to a counts endpoint that
// returns a flat object of path to count.
type Bulk struct {
	Client    *http.Client
	URL       string
	OnFailure FailureFunc
}

// NewBulk returns a bulk resolver for url.
func NewBulk(client *http.Client, url string, onFailure FailureFunc) *Bulk {
	return &Bulk{Client: client, URL: url, OnFailure: onFailure}
}

// Fetch returns all counts known to the endpoint. A failed request yields
// an empty map.
func (b *Bulk) Fetch(ctx context.Context) map[string]int {
	var raw map[string]any
	if err := getJSON(ctx, b.Client, b.URL, &raw); err != nil {
		b.OnFailure.report(b.URL, err)
		return map[string]int{}
	}
	all := make(map[string]int, len(raw))
	for path, v := range raw {
		all[path] = Coerce(v)
	}
	return all
}

// Resolve implements Resolver with a single request for all paths.
func (b *Bulk) Resolve(ctx context.Context, paths []string) map[string]int {
	all := b.Fetch(ctx)
	out := make(map[string]int, len(paths))
	for _, p := range paths {
		out[p] = all[p]
	}
	return out
}
