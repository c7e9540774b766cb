// Package redirectmap fetches the redirect mapping and caches it on disk.
package redirectmap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/selimozcann/RedirectCounter/internal/model"
	"github.com/selimozcann/RedirectCounter/internal/output"
)

// maxBodySize caps the redirect map response.
const maxBodySize = 32 << 20

// ErrMalformedMap is returned when the body is valid JSON of the wrong shape.
var ErrMalformedMap = errors.New("malformed redirect map")

// StatusError reports a non-2xx response from the map endpoint.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
}

// Load fetches the mapping from url, writes the body re-indented to
// cachePath and returns the parsed mapping. Every failure is returned.
func Load(ctx context.Context, client *http.Client, url, cachePath string) (model.RedirectMapping, error) {
	body, err := fetch(ctx, client, url)
	if err != nil {
		return nil, err
	}

	m, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return nil, fmt.Errorf("indent %s: %w", url, err)
	}
	buf.WriteByte('\n')
	if err := output.WriteFile(cachePath, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("cache redirect map: %w", err)
	}
	return m, nil
}

func fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}

// Parse decodes a redirect mapping. It accepts an object of string arrays,
// an array of such objects (merged in order), or an object wrapping that
// array under "data".
func Parse(body []byte) (model.RedirectMapping, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedMap)
	}

	switch trimmed[0] {
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, err
		}
		if isWrapper(raw) {
			if m, err := parseEntries(raw["data"]); err == nil {
				return m, nil
			}
		}
		m := make(model.RedirectMapping, len(raw))
		if err := mergeObject(m, raw); err != nil {
			return nil, err
		}
		return m, nil
	case '[':
		return parseEntries(trimmed)
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: expected object or array", ErrMalformedMap)
}

func parseEntries(data []byte) (model.RedirectMapping, error) {
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMap, err)
	}
	m := make(model.RedirectMapping)
	for _, entry := range entries {
		if err := mergeObject(m, entry); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func mergeObject(m model.RedirectMapping, raw map[string]json.RawMessage) error {
	for key, value := range raw {
		var paths []string
		if err := json.Unmarshal(value, &paths); err != nil {
			return fmt.Errorf("%w: key %q is not a list of strings", ErrMalformedMap, key)
		}
		if prev, ok := m[key]; ok {
			m[key] = append(prev, paths...)
			continue
		}
		m[key] = paths
	}
	return nil
}

// isWrapper reports whether raw is {"data": [...]} optionally with a
// "timestamp". Any other key makes it an ordinary mapping, as does a lone
// empty "data" list.
func isWrapper(raw map[string]json.RawMessage) bool {
	data, ok := raw["data"]
	if !ok {
		return false
	}
	_, stamped := raw["timestamp"]
	if len(raw) > 2 || (len(raw) == 2 && !stamped) {
		return false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return false
	}
	if len(items) == 0 {
		return stamped
	}
	for _, item := range items {
		b := bytes.TrimSpace(item)
		if len(b) == 0 || b[0] != '{' {
			return false
		}
	}
	return true
}
