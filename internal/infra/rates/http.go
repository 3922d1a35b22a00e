package rates

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/shopspring/decimal"

	"github.com/chandraveer04/token-browser/pkg/ratelimit"
)

const BreakerRates = "rates:upstream"

// HTTPSource exchangerate-api v4 风格: GET {base}/{CUR} -> {"rates": {...}}
type HTTPSource struct {
	baseURL string
	hc      *http.Client
	breaker *ratelimit.Manager
}

var _ Fetcher = (*HTTPSource)(nil)

func NewHTTPSource(baseURL string, timeout time.Duration, breaker *ratelimit.Manager) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (h *HTTPSource) Table(ctx context.Context, base string) (Table, error) {
	var out Table
	fn := func() error {
		t, err := h.fetch(ctx, base)
		out = t
		return err
	}
	var err error
	if h.breaker != nil {
		err = h.breaker.Do(BreakerRates, fn)
	} else {
		err = fn()
	}
	return out, err
}

func (h *HTTPSource) fetch(ctx context.Context, base string) (Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/"+url.PathEscape(base), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rates request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates upstream status %d", resp.StatusCode)
	}

	var lr latestResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(lr.Rates) == 0 {
		return nil, fmt.Errorf("rates upstream returned empty table for %s", base)
	}
	t := make(Table, len(lr.Rates))
	for k, v := range lr.Rates {
		t[strings.ToUpper(k)] = v
	}
	return t, nil
}
