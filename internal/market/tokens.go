package market

import (
	"sort"
	"time"
)

// BuildTokens orders quotes by 24h volume (descending) and derives the
// top gainers and losers by 24h change. topN <= 0 disables the mover lists.
func BuildTokens(quotes []TokenQuote, topN int) Tokens {
	byVolume := cloneQuotes(quotes)
	sort.SliceStable(byVolume, func(i, j int) bool {
		return byVolume[i].Volume24h > byVolume[j].Volume24h
	})

	out := Tokens{AllTokens: byVolume}
	if topN <= 0 || len(quotes) == 0 {
		return out
	}

	byChange := cloneQuotes(quotes)
	sort.SliceStable(byChange, func(i, j int) bool {
		return byChange[i].Change24h > byChange[j].Change24h
	})

	n := topN
	if n > len(byChange) {
		n = len(byChange)
	}
	out.TopGainers = cloneQuotes(byChange[:n])
	out.TopLosers = cloneQuotes(byChange[len(byChange)-n:])
	return out
}

// Summary aggregates the newest snapshot for display.
type Summary struct {
	TotalVolume24h   float64   `json:"total_volume_24h"`
	TokensTracked    int       `json:"tokens_tracked"`
	AverageChange24h float64   `json:"average_change_24h"`
	Snapshots        int       `json:"snapshots"`
	LastUpdate       time.Time `json:"last_update"`
}

// Summarize computes market-wide figures from the latest snapshot in h.
func Summarize(h History) Summary {
	latest, ok := h.Latest()
	if !ok {
		return Summary{}
	}

	s := Summary{
		TokensTracked: len(latest.Tokens.AllTokens),
		Snapshots:     len(h),
		LastUpdate:    latest.Timestamp.Time,
	}
	var changeSum float64
	for _, q := range latest.Tokens.AllTokens {
		s.TotalVolume24h += q.Volume24h
		changeSum += q.Change24h
	}
	if s.TokensTracked > 0 {
		s.AverageChange24h = changeSum / float64(s.TokensTracked)
	}
	return s
}
