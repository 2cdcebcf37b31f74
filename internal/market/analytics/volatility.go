package analytics

import (
	"encoding/json"
	"math"
	"time"

	"tokenwatch/internal/market"

	"go.uber.org/zap"
)

// VolatilityResult carries either a volatility value or the reason it is absent.
type VolatilityResult struct {
	Value  float64
	Points int // usable prices the value was derived from
	Err    error
}

func (r VolatilityResult) OK() bool { return r.Err == nil }

func (r VolatilityResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Value  *float64 `json:"value"`
		Points int      `json:"points"`
		Reason string   `json:"reason,omitempty"`
	}{Points: r.Points}
	if r.OK() {
		v := r.Value
		out.Value = &v
	} else {
		out.Reason = r.Err.Error()
	}
	return json.Marshal(out)
}

// Volatility returns the standard deviation of consecutive log-returns of
// symbol, scaled by sqrt(24). Only points within window of the newest
// snapshot are used; non-positive window means DefaultWindow.
func (e *Engine) Volatility(symbol string, window time.Duration) VolatilityResult {
	h, err := e.load()
	if err != nil {
		e.logger.Debug("volatility unavailable", zap.String("symbol", symbol), zap.Error(err))
		return VolatilityResult{Err: err}
	}
	return volatility(h, symbol, window)
}

// CalculateVolatility is the optional-value form of Volatility over the last hours.
func (e *Engine) CalculateVolatility(symbol string, hours int) (float64, bool) {
	window := DefaultWindow
	if hours > 0 {
		window = time.Duration(hours) * time.Hour
	}
	r := e.Volatility(symbol, window)
	return r.Value, r.OK()
}

func volatility(h market.History, symbol string, window time.Duration) VolatilityResult {
	prices, timestamps := Series(h, symbol)
	prices = withinWindow(h, prices, timestamps, window)

	valid := prices[:0:0]
	for _, p := range prices {
		if p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p) {
			valid = append(valid, p)
		}
	}
	if len(valid) < 2 {
		return VolatilityResult{Points: len(valid), Err: ErrInsufficientData}
	}

	returns := make([]float64, len(valid)-1)
	for i := 1; i < len(valid); i++ {
		returns[i-1] = math.Log(valid[i]) - math.Log(valid[i-1])
	}

	return VolatilityResult{
		Value:  populationStdDev(returns) * volatilityScale,
		Points: len(valid),
	}
}

// withinWindow keeps prices whose timestamp is no older than window before the newest snapshot.
func withinWindow(h market.History, prices []float64, timestamps []time.Time, window time.Duration) []float64 {
	if window <= 0 {
		window = DefaultWindow
	}
	latest, ok := h.Latest()
	if !ok {
		return prices
	}
	cutoff := latest.Timestamp.Add(-window)

	out := make([]float64, 0, len(prices))
	for i, p := range prices {
		if timestamps[i].Before(cutoff) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func populationStdDev(xs []float64) float64 {
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(xs)))
}
