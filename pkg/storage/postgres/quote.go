package postgres

import (
	"context"
	"time"

	"tokenwatch/internal/market"

	"gorm.io/gorm/clause"
)

// InsertSnapshot stores every quote of snap. Quotes already stored for the same instant are skipped.
func (p *PostgresClient) InsertSnapshot(ctx context.Context, snap market.Snapshot) (int64, error) {
	records := ToQuoteRecords(snap)
	if len(records) == 0 {
		return 0, nil
	}

	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "symbol"},
			{Name: "sampled_at"},
		},
		DoNothing: true,
	}).Create(&records)

	return tx.RowsAffected, tx.Error
}

// DeleteOldQuotes applies the retention window to the mirror.
func (p *PostgresClient) DeleteOldQuotes(ctx context.Context, before time.Time) (int64, error) {
	tx := p.DB.WithContext(ctx).
		Where("sampled_at < ?", before).
		Delete(&QuoteRecord{})
	return tx.RowsAffected, tx.Error
}

// ToQuoteRecords converts a snapshot into one row per quote, all stamped with the snapshot time.
func ToQuoteRecords(snap market.Snapshot) []QuoteRecord {
	records := make([]QuoteRecord, 0, len(snap.Tokens.AllTokens))
	for _, q := range snap.Tokens.AllTokens {
		records = append(records, QuoteRecord{
			Symbol:    q.Symbol,
			SampledAt: snap.Timestamp.UTC(),
			Price:     q.Price,
			Change24h: q.Change24h,
			Volume24h: q.Volume24h,
		})
	}
	return records
}
