package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/storefrontlabs/catalog-etl/internal/source"
)

func TestFetch(t *testing.T) {
	t.Run("decodes bare array", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			_, _ = w.Write([]byte(`[{"id": 1}, {"id": 2}, "stray string"]`))
		}))
		defer srv.Close()

		f := source.NewFetcher(srv.URL, 5*time.Second, 0)
		payload, err := f.Fetch(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// Non-object items are ignored.
		if len(payload) != 2 {
			t.Fatalf("expected 2 records, got %d", len(payload))
		}
	})

	t.Run("decodes wrapped object", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			_, _ = w.Write([]byte(`{"products": [{"id": 7}]}`))
		}))
		defer srv.Close()

		f := source.NewFetcher(srv.URL, 5*time.Second, 0)
		payload, err := f.Fetch(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(payload) != 1 {
			t.Fatalf("expected 1 record, got %d", len(payload))
		}
	})

	t.Run("non-2xx yields HTTPError with status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		f := source.NewFetcher(srv.URL, 5*time.Second, 0)
		_, err := f.Fetch(context.Background())
		var httpErr *source.HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("expected HTTPError, got %v", err)
		}
		if httpErr.StatusCode != http.StatusTooManyRequests {
			t.Fatalf("unexpected status code: %d", httpErr.StatusCode)
		}
		if !strings.Contains(httpErr.Error(), "429") {
			t.Fatalf("expected status in message, got %q", httpErr.Error())
		}
	})

	t.Run("non-json body errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			_, _ = w.Write([]byte("<html>not json</html>"))
		}))
		defer srv.Close()

		f := source.NewFetcher(srv.URL, 5*time.Second, 0)
		_, err := f.Fetch(context.Background())
		if err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("rate limiter spaces successive calls", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		f := source.NewFetcher(srv.URL, 5*time.Second, 20) // 50ms between calls
		start := time.Now()
		for i := 0; i < 2; i++ {
			if _, err := f.Fetch(context.Background()); err != nil {
				t.Fatalf("fetch %d: %v", i, err)
			}
		}
		// First call spends the burst token; the second must wait.
		if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
			t.Fatalf("expected limiter spacing, calls completed in %v", elapsed)
		}
	})

	t.Run("rate limiter wait aborts on context cancellation", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			calls++
			_, _ = w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		f := source.NewFetcher(srv.URL, 5*time.Second, 0.001) // next token in ~17min
		if _, err := f.Fetch(context.Background()); err != nil {
			t.Fatalf("first fetch: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		if _, err := f.Fetch(ctx); err == nil {
			t.Fatalf("expected error while waiting for a token")
		}
		if calls != 1 {
			t.Fatalf("expected 1 request to reach the server, got %d", calls)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			<-req.Context().Done()
		}))
		defer srv.Close()

		f := source.NewFetcher(srv.URL, 30*time.Second, 0)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := f.Fetch(ctx)
		if err == nil {
			t.Fatalf("expected error")
		}
	})
}
