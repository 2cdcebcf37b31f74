package market

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TokenQuote is one token's observation at a point in time.
type TokenQuote struct {
	Symbol    string  `json:"symbol"`     // Token identifier (e.g., "SOL")
	Price     float64 `json:"price"`      // Price in quote currency units
	Change24h float64 `json:"change_24h"` // 24h change in percent
	Volume24h float64 `json:"volume_24h"` // 24h traded volume
}

// Tokens is the payload stored with every snapshot.
// Only AllTokens is read back by analytics; the mover lists are kept for presentation.
type Tokens struct {
	AllTokens  []TokenQuote `json:"all_tokens"`
	TopGainers []TokenQuote `json:"top_gainers,omitempty"`
	TopLosers  []TokenQuote `json:"top_losers,omitempty"`
}

// Snapshot is one sampling event.
type Snapshot struct {
	Timestamp Timestamp `json:"timestamp"`
	Tokens    Tokens    `json:"tokens"`
}

// Quote returns the quote for symbol within the snapshot, if present.
func (s Snapshot) Quote(symbol string) (TokenQuote, bool) {
	for _, q := range s.Tokens.AllTokens {
		if q.Symbol == symbol {
			return q, true
		}
	}
	return TokenQuote{}, false
}

// History is the retained sequence of snapshots, oldest first.
type History []Snapshot

// Latest returns the most recently appended snapshot.
func (h History) Latest() (Snapshot, bool) {
	if len(h) == 0 {
		return Snapshot{}, false
	}
	return h[len(h)-1], true
}

// Clone returns a deep copy so callers can never alias the store's slices.
func (h History) Clone() History {
	out := make(History, len(h))
	for i, s := range h {
		out[i] = Snapshot{Timestamp: s.Timestamp, Tokens: s.Tokens.Clone()}
	}
	return out
}

// Clone returns a copy of t that shares no slices with it.
func (t Tokens) Clone() Tokens {
	return Tokens{
		AllTokens:  cloneQuotes(t.AllTokens),
		TopGainers: cloneQuotes(t.TopGainers),
		TopLosers:  cloneQuotes(t.TopLosers),
	}
}

func cloneQuotes(in []TokenQuote) []TokenQuote {
	if in == nil {
		return nil
	}
	out := make([]TokenQuote, len(in))
	copy(out, in)
	return out
}

// PricePoint is a single (time, price) observation for one symbol.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// naiveISOLayout matches ISO-8601 timestamps written without a zone offset.
const naiveISOLayout = "2006-01-02T15:04:05.999999999"

// Timestamp is an ISO-8601 instant. It marshals as RFC3339Nano and also
// accepts zone-less timestamps, which are interpreted in local time.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp parses an ISO-8601 string.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Timestamp{Time: t}, nil
	}
	t, err := time.ParseInLocation(naiveISOLayout, s, time.Local)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid ISO-8601 timestamp %q: %w", s, err)
	}
	return Timestamp{Time: t}, nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
