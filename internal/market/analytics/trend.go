package analytics

import (
	"encoding/json"
	"fmt"
	"math"

	"tokenwatch/internal/market"

	"go.uber.org/zap"
)

const (
	arrowUp   = "↑"
	arrowDown = "↓"

	// NotAvailable is rendered when no trend can be derived.
	NotAvailable = "N/A"
)

// TrendResult is the percentage change between the first and last recorded price.
type TrendResult struct {
	Change float64 // percent, signed
	Points int
	Err    error
}

func (r TrendResult) OK() bool { return r.Err == nil }

// Up reports a strictly positive change. Zero change counts as down.
func (r TrendResult) Up() bool { return r.Change > 0 }

// String renders the trend as "<arrow> <abs change>%", or "N/A".
func (r TrendResult) String() string {
	if !r.OK() {
		return NotAvailable
	}
	arrow := arrowDown
	if r.Up() {
		arrow = arrowUp
	}
	return fmt.Sprintf("%s %.2f%%", arrow, math.Abs(r.Change))
}

func (r TrendResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Display string   `json:"display"`
		Change  *float64 `json:"change"`
		Points  int      `json:"points"`
		Reason  string   `json:"reason,omitempty"`
	}{Display: r.String(), Points: r.Points}
	if r.OK() {
		c := r.Change
		out.Change = &c
	} else {
		out.Reason = r.Err.Error()
	}
	return json.Marshal(out)
}

// Trend computes the price change of symbol over the retained history.
func (e *Engine) Trend(symbol string) TrendResult {
	h, err := e.load()
	if err != nil {
		e.logger.Debug("trend unavailable", zap.String("symbol", symbol), zap.Error(err))
		return TrendResult{Err: err}
	}
	return trend(h, symbol)
}

// PriceTrends returns the rendered trend, e.g. "↑ 3.47%", or "N/A".
func (e *Engine) PriceTrends(symbol string) string {
	return e.Trend(symbol).String()
}

func trend(h market.History, symbol string) TrendResult {
	prices, _ := Series(h, symbol)
	if len(prices) < 2 {
		return TrendResult{Points: len(prices), Err: ErrInsufficientData}
	}

	first, last := prices[0], prices[len(prices)-1]
	if first == 0 {
		return TrendResult{Points: len(prices), Err: ErrInvalidPrice}
	}
	return TrendResult{
		Change: (last - first) / first * 100,
		Points: len(prices),
	}
}
