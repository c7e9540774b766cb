// Package counter resolves visit counts for redirect-target paths.
//
// Resolvers are best effort: a failed lookup contributes zero and is
// reported through an optional FailureFunc, never as an error.
package counter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxBodySize caps a counts response.
const maxBodySize = 16 << 20

// Resolver returns a count for every requested path. Paths that could not
// be resolved map to zero.
type Resolver interface {
	Resolve(ctx context.Context, paths []string) map[string]int
}

// FailureFunc observes a lookup that degraded to zero. target is the URL
// that was requested.
type FailureFunc func(target string, err error)

// StatusError reports a non-200 counts response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// getJSON issues a GET and decodes a 200 response into v.
func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode}
	}
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func (f FailureFunc) report(target string, err error) {
	if f != nil {
		f(target, err)
	}
}
