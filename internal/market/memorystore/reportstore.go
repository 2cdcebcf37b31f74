package memorystore

import (
	"sort"
	"sync"

	"tokenwatch/internal/market"
	"tokenwatch/internal/market/analytics"
)

// TokenReport is the latest quote of a token with its analytics.
type TokenReport struct {
	market.TokenQuote
	Volatility analytics.VolatilityResult `json:"volatility"`
	Trend      analytics.TrendResult      `json:"trend"`
}

// ReportStore keeps the most recent report per symbol for readers that must not touch the disk.
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]TokenReport
	movers  market.Tokens
	cycles  int
}

func NewReportStore() *ReportStore {
	return &ReportStore{
		reports: make(map[string]TokenReport),
	}
}

// Replace swaps in the reports and movers of one sampling cycle.
func (s *ReportStore) Replace(reports []TokenReport, movers market.Tokens) {
	next := make(map[string]TokenReport, len(reports))
	for _, r := range reports {
		next[r.Symbol] = r
	}
	m := movers.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = next
	s.movers = market.Tokens{TopGainers: m.TopGainers, TopLosers: m.TopLosers}
	s.cycles++
}

func (s *ReportStore) Get(symbol string) (TokenReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[symbol]
	return r, ok
}

// GetAll returns a copy of all reports ordered by 24h volume, highest first.
func (s *ReportStore) GetAll() []TokenReport {
	s.mu.RLock()
	out := make([]TokenReport, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Volume24h == out[j].Volume24h {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Volume24h > out[j].Volume24h
	})
	return out
}

// Movers returns the top gainers and losers of the last cycle.
func (s *ReportStore) Movers() market.Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.movers.Clone()
}

// Cycles returns how many sampling cycles have been stored.
func (s *ReportStore) Cycles() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cycles
}
