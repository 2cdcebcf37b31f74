package snapshotstore

import (
	"encoding/json"
	"fmt"

	"tokenwatch/internal/market"
)

// record mirrors the on-disk shape with pointer fields so missing keys can be told apart from zero values.
type record struct {
	Timestamp *market.Timestamp `json:"timestamp"`
	Tokens    *struct {
		AllTokens  *[]market.TokenQuote `json:"all_tokens"`
		TopGainers []market.TokenQuote  `json:"top_gainers"`
		TopLosers  []market.TokenQuote  `json:"top_losers"`
	} `json:"tokens"`
}

// decodeHistory parses a stored history. Every record must carry a timestamp and tokens.all_tokens.
func decodeHistory(data []byte) (market.History, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: not a list of records", ErrCorrupt)
	}

	history := make(market.History, 0, len(raw))
	for i, msg := range raw {
		var rec record
		if err := json.Unmarshal(msg, &rec); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrCorrupt, i, err)
		}
		if rec.Timestamp == nil {
			return nil, fmt.Errorf("%w: record %d: missing timestamp", ErrCorrupt, i)
		}
		if rec.Tokens == nil || rec.Tokens.AllTokens == nil {
			return nil, fmt.Errorf("%w: record %d: missing tokens.all_tokens", ErrCorrupt, i)
		}

		history = append(history, market.Snapshot{
			Timestamp: *rec.Timestamp,
			Tokens: market.Tokens{
				AllTokens:  *rec.Tokens.AllTokens,
				TopGainers: rec.Tokens.TopGainers,
				TopLosers:  rec.Tokens.TopLosers,
			},
		})
	}
	return history, nil
}

func encodeHistory(h market.History) ([]byte, error) {
	if h == nil {
		h = market.History{}
	}
	return json.MarshalIndent(h, "", "  ")
}
