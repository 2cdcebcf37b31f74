// Package analytics derives per-token volatility and trend figures from the
// retained snapshot history.
package analytics

//go:generate mockgen -source=analytics.go -destination=mock/mock_loader.go -package=mock

import (
	"errors"
	"fmt"
	"math"
	"time"

	"tokenwatch/internal/market"

	"go.uber.org/zap"
)

// DefaultWindow matches the store's default retention window.
const DefaultWindow = 24 * time.Hour

// volatilityScale is applied to the standard deviation of log-returns.
var volatilityScale = math.Sqrt(24)

var (
	// ErrInsufficientData means fewer than two usable prices were recorded.
	ErrInsufficientData = errors.New("insufficient price data")
	// ErrNoHistory means the history could not be loaded.
	ErrNoHistory = errors.New("history unavailable")
	// ErrInvalidPrice means the base price of a trend is zero.
	ErrInvalidPrice = errors.New("invalid base price")
)

// HistoryLoader is the read side of the snapshot store.
type HistoryLoader interface {
	Load() (market.History, error)
}

// Engine computes analytics on demand. It holds no state between calls;
// every query reloads the history.
type Engine struct {
	loader HistoryLoader
	logger *zap.Logger
}

func New(loader HistoryLoader, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{loader: loader, logger: logger}
}

// Series collects the price and timestamp of symbol from every snapshot, in history order.
func Series(h market.History, symbol string) ([]float64, []time.Time) {
	var (
		prices     []float64
		timestamps []time.Time
	)
	for _, snap := range h {
		if q, ok := snap.Quote(symbol); ok {
			prices = append(prices, q.Price)
			timestamps = append(timestamps, snap.Timestamp.Time)
		}
	}
	return prices, timestamps
}

func (e *Engine) load() (market.History, error) {
	h, err := e.loader.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoHistory, err)
	}
	return h, nil
}

// PriceHistory returns every recorded price of symbol. An untracked symbol yields no points.
func (e *Engine) PriceHistory(symbol string) ([]market.PricePoint, error) {
	h, err := e.load()
	if err != nil {
		return nil, err
	}
	prices, timestamps := Series(h, symbol)
	points := make([]market.PricePoint, len(prices))
	for i := range prices {
		points[i] = market.PricePoint{Time: timestamps[i], Price: prices[i]}
	}
	return points, nil
}

// Report bundles the analytics of one symbol.
type Report struct {
	Symbol     string           `json:"symbol"`
	Volatility VolatilityResult `json:"volatility"`
	Trend      TrendResult      `json:"trend"`
}

// Report computes volatility and trend for each symbol from a single history load.
func (e *Engine) Report(window time.Duration, symbols ...string) []Report {
	h, err := e.load()
	out := make([]Report, 0, len(symbols))
	for _, sym := range symbols {
		r := Report{Symbol: sym}
		if err != nil {
			r.Volatility = VolatilityResult{Err: err}
			r.Trend = TrendResult{Err: err}
		} else {
			r.Volatility = volatility(h, sym, window)
			r.Trend = trend(h, sym)
		}
		out = append(out, r)
	}
	return out
}
