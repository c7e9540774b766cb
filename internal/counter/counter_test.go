package counter_test

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/selimozcann/RedirectCounter/internal/counter"
	"github.com/selimozcann/RedirectCounter/internal/httpclient"
)

func newClient() *http.Client {
	return httpclient.New(httpclient.Config{Timeout: 2 * time.Second})
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{"number", json.Number("42"), 42},
		{"fraction", json.Number("3.7"), 3},
		{"exponent", json.Number("1e3"), 1000},
		{"float", 5.0, 5},
		{"int", 7, 7},
		{"string", "12", 12},
		{"grouped string", "1,234", 1234},
		{"nbsp grouped string", "1\u00a0234", 1234},
		{"decimal string", "1.5", 0},
		{"negative", json.Number("-4"), 0},
		{"beyond int32", json.Number("5000000000"), 5000000000},
		{"beyond int32 string", "5,000,000,000", 5000000000},
		{"saturates", json.Number("1e30"), math.MaxInt},
		{"text", "many", 0},
		{"bool", true, 0},
		{"nil", nil, 0},
		{"object", map[string]any{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, counter.Coerce(tt.in))
		})
	}
}

func TestBulkResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"/x": 3, "/y": "0", "/w": "junk"}`))
	}))
	defer srv.Close()

	b := counter.NewBulk(newClient(), srv.URL, nil)
	got := b.Resolve(context.Background(), []string{"/x", "/y", "/missing", "/w"})
	require.Equal(t, map[string]int{"/x": 3, "/y": 0, "/missing": 0, "/w": 0}, got)
}

func TestBulkFailureDegradesToZero(t *testing.T) {
	handlers := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"malformed": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"/x": `))
		},
		"array": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[1,2,3]`))
		},
	}
	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			var failures []string
			b := counter.NewBulk(newClient(), srv.URL, func(target string, err error) {
				require.Error(t, err)
				failures = append(failures, target)
			})
			got := b.Resolve(context.Background(), []string{"/x", "/y"})
			require.Equal(t, map[string]int{"/x": 0, "/y": 0}, got)
			require.Equal(t, []string{srv.URL}, failures)
		})
	}
}

func TestPerPathFailureIsolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/counter/ok.json":
			_, _ = w.Write([]byte(`{"count": "1,204"}`))
		case "/counter/gone.json":
			http.NotFound(w, r)
		case "/counter/boom.json":
			hj, _ := w.(http.Hijacker)
			conn, _, _ := hj.Hijack()
			conn.Close()
		case "/counter/nocount.json":
			_, _ = w.Write([]byte(`{"other": 9}`))
		default:
			_, _ = w.Write([]byte(`{"count": 2}`))
		}
	}))
	defer srv.Close()

	var mu sync.Mutex
	failed := 0
	p, err := counter.NewPerPath(newClient(), counter.PerPathConfig{
		Template: srv.URL + "/counter/{pathname}.json",
		OnFailure: func(string, error) {
			mu.Lock()
			failed++
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	got := p.Resolve(context.Background(), []string{"ok", "gone", "boom", "nocount", "other"})
	require.Equal(t, map[string]int{"ok": 1204, "gone": 0, "boom": 0, "nocount": 0, "other": 2}, got)
	require.Equal(t, 2, failed)
}

func TestPerPathDeduplicatesLookups(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"count": 5}`))
	}))
	defer srv.Close()

	p, err := counter.NewPerPath(newClient(), counter.PerPathConfig{Template: srv.URL + "/{pathname}"})
	require.NoError(t, err)

	got := p.Resolve(context.Background(), []string{"a", "a", "b", "a"})
	require.Equal(t, map[string]int{"a": 5, "b": 5}, got)
	require.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestPerPathFreshCountsEachResolve(t *testing.T) {
	var current atomic.Int32
	current.Store(1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count": ` + strconv.Itoa(int(current.Load())) + `}`))
	}))
	defer srv.Close()

	p, err := counter.NewPerPath(newClient(), counter.PerPathConfig{Template: srv.URL + "/{pathname}"})
	require.NoError(t, err)

	require.Equal(t, map[string]int{"a": 1}, p.Resolve(context.Background(), []string{"a"}))
	current.Store(9)
	require.Equal(t, map[string]int{"a": 9}, p.Resolve(context.Background(), []string{"a"}))
	require.Equal(t, 9, p.Count(context.Background(), "a"))
}

func TestPerPathConcurrencyBound(t *testing.T) {
	var inFlight, peak int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		_, _ = w.Write([]byte(`{"count": 1}`))
	}))
	defer srv.Close()

	p, err := counter.NewPerPath(newClient(), counter.PerPathConfig{
		Template:    srv.URL + "/{pathname}",
		Concurrency: 3,
	})
	require.NoError(t, err)

	paths := make([]string, 12)
	for i := range paths {
		paths[i] = "p" + strings.Repeat("x", i)
	}
	got := p.Resolve(context.Background(), paths)
	require.Len(t, got, len(paths))
	for _, c := range got {
		require.Equal(t, 1, c)
	}
	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestPerPathTemplate(t *testing.T) {
	_, err := counter.NewPerPath(newClient(), counter.PerPathConfig{Template: "https://example.com/counter.json"})
	require.Error(t, err)

	p, err := counter.NewPerPath(newClient(), counter.PerPathConfig{Template: "https://example.com/counter/{pathname}.json"})
	require.NoError(t, err)
	require.Equal(t, "https://example.com/counter//go/x.json", p.URLFor("/go/x"))
}
