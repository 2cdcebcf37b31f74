package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"tokenwatch/internal/market"
	"tokenwatch/pkg/storage/postgres"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// liveClient connects to the database named by TOKENWATCH_TEST_DSN, skipping otherwise.
func liveClient(t *testing.T) *postgres.PostgresClient {
	t.Helper()
	dsn := os.Getenv("TOKENWATCH_TEST_DSN")
	if dsn == "" {
		t.Skip("TOKENWATCH_TEST_DSN not set")
	}
	client, err := postgres.NewClient(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.AutoMigrateQuoteRecord())
	return client
}

// go test -v --run ^TestToQuoteRecords$
func TestToQuoteRecords(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("KST", 9*3600))
	snap := market.Snapshot{
		Timestamp: market.NewTimestamp(ts),
		Tokens: market.Tokens{AllTokens: []market.TokenQuote{
			{Symbol: "SOL", Price: 142, Change24h: 1.5, Volume24h: 10},
			{Symbol: "JUP", Price: 0.8},
		}},
	}

	records := postgres.ToQuoteRecords(snap)
	require.Len(t, records, 2)
	assert.Equal(t, "SOL", records[0].Symbol)
	assert.Equal(t, 1.5, records[0].Change24h)
	assert.Equal(t, time.UTC, records[1].SampledAt.Location())
	assert.True(t, records[1].SampledAt.Equal(ts))
	assert.Equal(t, "token_quote_record", postgres.QuoteRecord{}.TableName())

	assert.Empty(t, postgres.ToQuoteRecords(market.Snapshot{}))
}

// go test -v --run ^TestQuoteMirror$
func TestQuoteMirror(t *testing.T) {
	client := liveClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.True(t, client.IsHealthy(ctx))

	now := time.Now().UTC().Truncate(time.Second)
	snap := market.Snapshot{
		Timestamp: market.NewTimestamp(now),
		Tokens:    market.Tokens{AllTokens: []market.TokenQuote{{Symbol: "TESTSOL", Price: 150}}},
	}

	n, err := client.InsertSnapshot(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// duplicate instant is skipped
	n, err = client.InsertSnapshot(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	var got []postgres.QuoteRecord
	require.NoError(t, client.DB.WithContext(ctx).Where("symbol = ?", "TESTSOL").Find(&got).Error)
	require.NotEmpty(t, got)
	assert.Equal(t, 150.0, got[len(got)-1].Price)

	_, err = client.DeleteOldQuotes(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	got = nil
	require.NoError(t, client.DB.WithContext(ctx).Where("symbol = ?", "TESTSOL").Find(&got).Error)
	assert.Empty(t, got)
}

func TestPostgresInvalidDSN(t *testing.T) {
	if os.Getenv("TOKENWATCH_TEST_DSN") == "" {
		t.Skip("TOKENWATCH_TEST_DSN not set")
	}
	_, err := postgres.NewClient("host=invalid.invalid port=5432 user=fail password=fail dbname=fail sslmode=disable connect_timeout=2")
	assert.Error(t, err)
}
