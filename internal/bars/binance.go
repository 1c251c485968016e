package bars

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vdelta-screener/internal/domain"
)

// DefaultRESTEndpoint is the exchange REST API base URL.
const DefaultRESTEndpoint = "https://api.binance.com"

// Client fetches klines from the exchange REST API.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a klines client. An empty endpoint uses the default.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultRESTEndpoint
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchKlines fetches the last limit bars for one symbol. The klines payload
// is an array of arrays; open time is field 0, close field 4, volume field 5,
// numeric fields string-encoded.
func (c *Client) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]domain.Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol must be non-empty")
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch klines for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch klines for %s: status %d", symbol, resp.StatusCode)
	}

	var raw [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode klines for %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			continue
		}

		var openTime int64
		if err := json.Unmarshal(k[0], &openTime); err != nil {
			continue
		}
		closePrice, ok := parseStringNumber(k[4])
		if !ok {
			continue
		}
		volume, ok := parseStringNumber(k[5])
		if !ok {
			continue
		}

		bars = append(bars, domain.Bar{
			Symbol:    symbol,
			Timestamp: openTime,
			Close:     closePrice,
			Volume:    volume,
		})
	}
	return bars, nil
}

// FetchAll fetches klines for every symbol and concatenates the results.
// A symbol that fails aborts the whole fetch; historical mode is a batch
// operation with no partial-result contract.
func (c *Client) FetchAll(ctx context.Context, symbols []string, interval string, limit int) ([]domain.Bar, error) {
	var out []domain.Bar
	for _, sym := range symbols {
		bars, err := c.FetchKlines(ctx, sym, interval, limit)
		if err != nil {
			return nil, err
		}
		out = append(out, bars...)
	}
	return out, nil
}

func parseStringNumber(raw json.RawMessage) (float64, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		// Some fields may arrive as bare numbers.
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return 0, false
		}
		return f, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
