package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultSourceURL = "https://api.frankfurter.app/latest"

// HTTPSource queries a frankfurter-style endpoint:
// GET <url>?from=USD&to=TRY -> {"rates": {"TRY": 41.72}}.
type HTTPSource struct {
	endpoint string
	client   *http.Client
}

func NewHTTPSource(endpoint string, timeout time.Duration) *HTTPSource {
	if endpoint == "" {
		endpoint = DefaultSourceURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSource{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type ratesResponse struct {
	Rates map[string]json.Number `json:"rates"`
}

func (s *HTTPSource) FetchRate(ctx context.Context, from string, to string) (decimal.Decimal, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse rate endpoint: %w", err)
	}
	q := u.Query()
	q.Set("from", from)
	q.Set("to", to)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return decimal.Zero, fmt.Errorf("rate source responded %d", resp.StatusCode)
	}

	var body ratesResponse
	dec := json.NewDecoder(io.LimitReader(resp.Body, 1<<20))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode rate response: %w", err)
	}

	raw, ok := body.Rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("rate for %s missing from response", to)
	}
	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse rate %q: %w", raw, err)
	}
	return rate, nil
}
