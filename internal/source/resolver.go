package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/storefrontlabs/catalog-etl/internal/catalog"
)

// Mode selects how the resolver sources the raw payload.
type Mode string

const (
	// ModeLive attempts the live endpoint first and falls back to the seed
	// payload on any HTTP or transport failure.
	ModeLive Mode = "live"
	// ModeFallbackOnly never touches the network; the seed payload is the
	// only source and its absence is fatal.
	ModeFallbackOnly Mode = "fallback-only"
)

// ParseMode maps a raw string to a Mode, defaulting to live.
func ParseMode(raw string) Mode {
	s := strings.TrimSpace(strings.ToLower(raw))
	switch s {
	case "fallback-only", "fallback", "offline":
		return ModeFallbackOnly
	default:
		return ModeLive
	}
}

var (
	// ErrExtractionFailed means no data was obtainable from any source.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrFallbackUnavailable means fallback-only mode found the seed payload
	// missing or unparsable. No secondary fallback exists in that mode.
	ErrFallbackUnavailable = errors.New("fallback payload unavailable")
)

// Resolver decides between the live endpoint and the committed fallback seed
// and produces the run's RawPayload.
//
// The mode is injected rather than read from the process environment so tests
// can exercise both branches directly.
type Resolver struct {
	mode         Mode
	fetcher      *Fetcher
	fallbackPath string
	log          *log.Logger
}

func NewResolver(mode Mode, fetcher *Fetcher, fallbackPath string, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Resolver{
		mode:         mode,
		fetcher:      fetcher,
		fallbackPath: strings.TrimSpace(fallbackPath),
		log:          logger,
	}
}

// Resolve returns the raw catalog payload for this run.
//
// In ModeLive the single live attempt is abandoned on any failure and the
// fallback seed is used instead; only when both fail does the run abort.
func (r *Resolver) Resolve(ctx context.Context) (catalog.RawPayload, error) {
	if r.mode == ModeFallbackOnly {
		payload, err := r.loadFallback()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFallbackUnavailable, err)
		}
		r.log.Info("fallback used directly", "path", r.fallbackPath, "records", len(payload))
		return payload, nil
	}

	payload, liveErr := r.fetcher.Fetch(ctx)
	if liveErr == nil {
		r.log.Info("live fetch succeeded", "endpoint", r.fetcher.endpoint, "records", len(payload))
		return payload, nil
	}

	r.log.Warn("live fetch failed, falling back", "err", liveErr)
	payload, fbErr := r.loadFallback()
	if fbErr != nil {
		return nil, fmt.Errorf("%w: live: %v; fallback: %v", ErrExtractionFailed, liveErr, fbErr)
	}
	r.log.Info("fallback used after live failure", "path", r.fallbackPath, "records", len(payload))
	return payload, nil
}

func (r *Resolver) loadFallback() (catalog.RawPayload, error) {
	if r.fallbackPath == "" {
		return nil, fmt.Errorf("fallback path is required")
	}
	b, err := os.ReadFile(r.fallbackPath)
	if err != nil {
		return nil, err
	}
	recs, err := decodeRecords(b)
	if err != nil {
		return nil, fmt.Errorf("parse fallback payload: %w", err)
	}
	return recs, nil
}
