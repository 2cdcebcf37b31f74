package jupiter

import "encoding/json"

// PriceResponse is the envelope returned by the Jupiter price API.
type PriceResponse struct {
	Data      map[string]json.RawMessage `json:"data"`      // Keyed by requested token id
	TimeTaken float64                    `json:"timeTaken"` // Server-side processing time in seconds
}

// PriceEntry is one token's entry in PriceResponse.Data. Optional fields stay nil when absent.
type PriceEntry struct {
	ID             string   `json:"id"`               // Token mint or symbol id
	MintSymbol     string   `json:"mintSymbol"`       // e.g., "SOL"
	Price          *float64 `json:"price"`            // Price in vsToken units
	Price24hChange *float64 `json:"price_24h_change"` // 24h change in percent
	Volume24h      *float64 `json:"volume_24h"`       // 24h traded volume
}
