package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/storefrontlabs/catalog-etl/internal/source"
)

const seedJSON = `[
  {"id": 1, "title": "Backpack", "price": 109.95, "category": "bags", "rating": {"rate": 3.9, "count": 120}},
  {"id": 2, "title": "T-Shirt", "price": 22.3, "category": "clothing", "rating": {"rate": 4.1, "count": 259}}
]`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products_seed.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestResolveFallbackOnly(t *testing.T) {
	t.Run("returns seed records unmodified", func(t *testing.T) {
		seed := writeSeed(t, seedJSON)
		r := source.NewResolver(source.ModeFallbackOnly, nil, seed, nil)
		payload, err := r.Resolve(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(payload) != 2 {
			t.Fatalf("expected 2 records, got %d", len(payload))
		}
		if payload[0]["title"] != "Backpack" || payload[1]["title"] != "T-Shirt" {
			t.Fatalf("unexpected records: %#v", payload)
		}
	})

	t.Run("missing seed is fatal", func(t *testing.T) {
		r := source.NewResolver(source.ModeFallbackOnly, nil, filepath.Join(t.TempDir(), "missing.json"), nil)
		_, err := r.Resolve(context.Background())
		if !errors.Is(err, source.ErrFallbackUnavailable) {
			t.Fatalf("expected ErrFallbackUnavailable, got %v", err)
		}
	})

	t.Run("unparsable seed is fatal", func(t *testing.T) {
		seed := writeSeed(t, "{not json")
		r := source.NewResolver(source.ModeFallbackOnly, nil, seed, nil)
		_, err := r.Resolve(context.Background())
		if !errors.Is(err, source.ErrFallbackUnavailable) {
			t.Fatalf("expected ErrFallbackUnavailable, got %v", err)
		}
	})
}

func TestResolveLive(t *testing.T) {
	t.Run("success returns decoded records", func(t *testing.T) {
		var gotUA string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			gotUA = req.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(seedJSON))
		}))
		defer srv.Close()

		f := source.NewFetcher(srv.URL, 5*time.Second, 0)
		r := source.NewResolver(source.ModeLive, f, writeSeed(t, "[]"), nil)
		payload, err := r.Resolve(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(payload) != 2 {
			t.Fatalf("expected 2 records, got %d", len(payload))
		}
		if gotUA == "" || gotUA == "Go-http-client/1.1" {
			t.Fatalf("expected browser user agent, got %q", gotUA)
		}
	})

	t.Run("non-2xx falls back to seed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			http.Error(w, "blocked", http.StatusForbidden)
		}))
		defer srv.Close()

		f := source.NewFetcher(srv.URL, 5*time.Second, 0)
		r := source.NewResolver(source.ModeLive, f, writeSeed(t, seedJSON), nil)
		payload, err := r.Resolve(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(payload) != 2 {
			t.Fatalf("expected fallback records, got %d", len(payload))
		}
	})

	t.Run("transport failure falls back to seed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {}))
		srv.Close() // connection refused from here on

		f := source.NewFetcher(srv.URL, time.Second, 0)
		r := source.NewResolver(source.ModeLive, f, writeSeed(t, seedJSON), nil)
		payload, err := r.Resolve(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(payload) != 2 {
			t.Fatalf("expected fallback records, got %d", len(payload))
		}
	})

	t.Run("live and fallback both failing is fatal", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			http.Error(w, "blocked", http.StatusForbidden)
		}))
		defer srv.Close()

		f := source.NewFetcher(srv.URL, 5*time.Second, 0)
		r := source.NewResolver(source.ModeLive, f, filepath.Join(t.TempDir(), "missing.json"), nil)
		_, err := r.Resolve(context.Background())
		if !errors.Is(err, source.ErrExtractionFailed) {
			t.Fatalf("expected ErrExtractionFailed, got %v", err)
		}
	})
}

func TestParseMode(t *testing.T) {
	cases := map[string]source.Mode{
		"":              source.ModeLive,
		"live":          source.ModeLive,
		"LIVE":          source.ModeLive,
		"fallback-only": source.ModeFallbackOnly,
		"fallback":      source.ModeFallbackOnly,
		"offline":       source.ModeFallbackOnly,
		"  Fallback  ":  source.ModeFallbackOnly,
	}
	for in, want := range cases {
		if got := source.ParseMode(in); got != want {
			t.Fatalf("ParseMode(%q) = %q, want %q", in, got, want)
		}
	}
}
