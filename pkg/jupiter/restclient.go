package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"tokenwatch/internal/market"
)

type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetPrices fetches current quotes for the given token ids.
// Entries without a price are skipped; missing change and volume default to zero.
// Quotes are returned sorted by symbol.
func (c *RESTClient) GetPrices(ctx context.Context, ids []string) ([]market.TokenQuote, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no token ids requested")
	}
	endpoint := fmt.Sprintf("%s/v4/price?ids=%s", c.baseURL, url.QueryEscape(strings.Join(ids, ",")))

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("jupiter error: status %d: %s", resp.StatusCode, body)
	}

	var rawResp PriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&rawResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rawResp.Data == nil {
		return nil, fmt.Errorf("decode response: no data field")
	}

	return ParsePrices(rawResp.Data), nil
}

// ParsePrices converts the raw data map into quotes, skipping malformed or price-less entries.
func ParsePrices(data map[string]json.RawMessage) []market.TokenQuote {
	out := make([]market.TokenQuote, 0, len(data))
	for id, raw := range data {
		var entry PriceEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if entry.Price == nil {
			continue
		}

		q := market.TokenQuote{Symbol: id, Price: *entry.Price}
		if entry.Price24hChange != nil {
			q.Change24h = *entry.Price24hChange
		}
		if entry.Volume24h != nil {
			q.Volume24h = *entry.Volume24h
		}
		out = append(out, q)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
