package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tokenwatch/internal/market"
	"tokenwatch/internal/market/analytics"
	"tokenwatch/internal/market/memorystore"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticHistory struct {
	h   market.History
	err error
}

func (s staticHistory) Load() (market.History, error) { return s.h, s.err }

func sampleHistory() market.History {
	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return market.History{
		{Timestamp: market.NewTimestamp(t0), Tokens: market.Tokens{AllTokens: []market.TokenQuote{
			{Symbol: "SOL", Price: 100, Change24h: 1, Volume24h: 50},
		}}},
		{Timestamp: market.NewTimestamp(t0.Add(time.Hour)), Tokens: market.Tokens{AllTokens: []market.TokenQuote{
			{Symbol: "SOL", Price: 110, Change24h: 4, Volume24h: 60},
			{Symbol: "JUP", Price: 0.5, Change24h: -2, Volume24h: 40},
		}}},
	}
}

func newTestServer(t *testing.T, loader staticHistory) (*httptest.Server, *Hub, *memorystore.ReportStore) {
	t.Helper()
	reports := memorystore.NewReportStore()
	hub := NewHub(nil)
	srv := NewServer(loader, analytics.New(loader, nil), reports, hub, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, hub, reports
}

func getJSON(t *testing.T, url string, into any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	return resp.StatusCode
}

// go test -v --run TestSummary
func TestSummary(t *testing.T) {
	ts, _, _ := newTestServer(t, staticHistory{h: sampleHistory()})

	var s market.Summary
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/summary", &s))
	assert.Equal(t, 2, s.TokensTracked)
	assert.Equal(t, 2, s.Snapshots)
	assert.InDelta(t, 100, s.TotalVolume24h, 1e-9)
	assert.InDelta(t, 1, s.AverageChange24h, 1e-9)
}

func TestSummaryBrokenStore(t *testing.T) {
	ts, _, _ := newTestServer(t, staticHistory{err: errors.New("corrupt")})

	var body map[string]string
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, ts.URL+"/api/summary", &body))
	assert.Equal(t, "history unavailable", body["error"])

	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, ts.URL+"/api/history/SOL", &body))
}

func TestHistory(t *testing.T) {
	ts, _, _ := newTestServer(t, staticHistory{h: sampleHistory()})

	var body struct {
		Symbol string              `json:"symbol"`
		Points []market.PricePoint `json:"points"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/history/SOL", &body))
	assert.Equal(t, "SOL", body.Symbol)
	require.Len(t, body.Points, 2)
	assert.Equal(t, 110.0, body.Points[1].Price)

	var missing map[string]string
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/history/BONK", &missing))
}

func TestTokensAndMovers(t *testing.T) {
	ts, _, reports := newTestServer(t, staticHistory{h: sampleHistory()})

	var movers map[string][]market.TokenQuote
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/movers", &movers))
	assert.Empty(t, movers["top_gainers"])

	reports.Replace([]memorystore.TokenReport{
		{TokenQuote: market.TokenQuote{Symbol: "SOL", Price: 110, Volume24h: 60},
			Trend: analytics.TrendResult{Change: 10, Points: 2}},
		{TokenQuote: market.TokenQuote{Symbol: "JUP", Volume24h: 40},
			Trend: analytics.TrendResult{Err: analytics.ErrInsufficientData}},
	}, market.Tokens{TopGainers: []market.TokenQuote{{Symbol: "SOL"}}, TopLosers: []market.TokenQuote{{Symbol: "JUP"}}})

	var tokens struct {
		Tokens []struct {
			Symbol string `json:"symbol"`
			Trend  struct {
				Display string `json:"display"`
			} `json:"trend"`
		} `json:"tokens"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/tokens", &tokens))
	require.Len(t, tokens.Tokens, 2)
	assert.Equal(t, "SOL", tokens.Tokens[0].Symbol)
	assert.Equal(t, "↑ 10.00%", tokens.Tokens[0].Trend.Display)
	assert.Equal(t, "N/A", tokens.Tokens[1].Trend.Display)

	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/movers", &movers))
	assert.Equal(t, "JUP", movers["top_losers"][0].Symbol)
}

// go test -v --run TestWebSocketPublish
func TestWebSocketPublish(t *testing.T) {
	ts, hub, _ := newTestServer(t, staticHistory{h: sampleHistory()})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish([]memorystore.TokenReport{{TokenQuote: market.TokenQuote{Symbol: "SOL", Price: 110}}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type    string `json:"type"`
		Reports []struct {
			Symbol string  `json:"symbol"`
			Price  float64 `json:"price"`
		} `json:"reports"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "reports", msg.Type)
	require.Len(t, msg.Reports, 1)
	assert.Equal(t, "SOL", msg.Reports[0].Symbol)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHealthz(t *testing.T) {
	ts, _, _ := newTestServer(t, staticHistory{})
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthzReportsFailedDependency(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	loader := staticHistory{}
	srv := NewServer(loader, analytics.New(loader, nil), memorystore.NewReportStore(), NewHub(nil), nil,
		WithHealthCheck("postgres", func(ctx context.Context) bool { return healthy.Load() }))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	healthy.Store(false)
	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "postgres unhealthy")
}
