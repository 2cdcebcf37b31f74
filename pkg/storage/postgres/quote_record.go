package postgres

import "time"

// QuoteRecord is one token quote of one snapshot.
type QuoteRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	Symbol    string    `gorm:"type:text;not null;index:idx_quote_symbol;index:idx_symbol_sampled_at,unique"`
	SampledAt time.Time `gorm:"not null;index:idx_symbol_sampled_at,unique;index:idx_quote_sampled_at"`

	Price     float64 `gorm:"type:numeric;not null"`
	Change24h float64 `gorm:"column:change_24h;type:numeric;not null"`
	Volume24h float64 `gorm:"column:volume_24h;type:numeric;not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (QuoteRecord) TableName() string {
	return "token_quote_record"
}
