package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/storefrontlabs/catalog-etl/internal/catalog"
)

// The endpoint rejects default non-interactive client identifiers, so live
// requests carry a realistic browser header set.
const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36"
	defaultTimeout = 30 * time.Second
)

// Fetcher performs the live product-listing GET.
type Fetcher struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewFetcher constructs a Fetcher for the given endpoint.
//
// rateLimitRPS spaces successive calls across runs sharing this Fetcher;
// <=0 disables the limiter.
func NewFetcher(endpoint string, timeout time.Duration, rateLimitRPS float64) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	var limiter *rate.Limiter
	if rateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(rateLimitRPS), 1)
	}
	return &Fetcher{
		endpoint: strings.TrimSpace(endpoint),
		http:     &http.Client{Timeout: timeout},
		limiter:  limiter,
	}
}

// Fetch GETs the product listing and decodes it as a record sequence.
func (f *Fetcher) Fetch(ctx context.Context) (catalog.RawPayload, error) {
	if f.endpoint == "" {
		return nil, fmt.Errorf("catalog endpoint is required")
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, newHTTPError("fetchCatalog", resp, b)
	}

	recs, err := decodeRecords(b)
	if err != nil {
		return nil, fmt.Errorf("parse catalog response: %w", err)
	}
	return recs, nil
}

func decodeRecords(body []byte) (catalog.RawPayload, error) {
	var top any
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, err
	}
	return recordList(top)
}

// recordList accepts the documented bare-array shape plus the wrapped-object
// variants some gateways put in front of it. Kept permissive and best-effort.
func recordList(v any) (catalog.RawPayload, error) {
	switch t := v.(type) {
	case []any:
		out := make(catalog.RawPayload, 0, len(t))
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				// Ignore non-object items.
				continue
			}
			out = append(out, m)
		}
		return out, nil
	case map[string]any:
		for _, key := range []string{"products", "records", "data", "items", "result"} {
			if inner, ok := t[key]; ok {
				if recs, err := recordList(inner); err == nil {
					return recs, nil
				}
			}
		}
		return nil, fmt.Errorf("unexpected json object shape")
	default:
		return nil, fmt.Errorf("unexpected json type %T", v)
	}
}
