package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	"tokenwatch/config"
	"tokenwatch/internal/market"
	"tokenwatch/internal/market/analytics"
	"tokenwatch/internal/market/memorystore"
	"tokenwatch/internal/market/snapshotstore"

	"go.uber.org/zap"
)

// Fetcher returns the current quotes of the requested tokens.
type Fetcher interface {
	GetPrices(ctx context.Context, ids []string) ([]market.TokenQuote, error)
}

// SnapshotAppender is the write side of the snapshot store.
type SnapshotAppender interface {
	Append(tokens market.Tokens) (snapshotstore.AppendResult, error)
}

// Analyzer computes per-symbol analytics over the retained history.
type Analyzer interface {
	Report(window time.Duration, symbols ...string) []analytics.Report
}

// Mirror receives a copy of every snapshot (e.g., a database).
type Mirror interface {
	InsertSnapshot(ctx context.Context, snap market.Snapshot) (int64, error)
	DeleteOldQuotes(ctx context.Context, before time.Time) (int64, error)
}

// Publisher is notified with the reports of each successful cycle.
type Publisher interface {
	Publish(reports []memorystore.TokenReport)
}

// Alert is raised for a token whose 24h change reaches the configured threshold.
type Alert struct {
	Symbol string  `json:"symbol"`
	Change float64 `json:"change"`
	Price  float64 `json:"price"`
}

// Collector runs the sampling loop: fetch, append, analyze, publish.
type Collector struct {
	cfg       config.Config
	fetcher   Fetcher
	store     SnapshotAppender
	analyzer  Analyzer
	reports   *memorystore.ReportStore
	mirror    Mirror
	publisher Publisher
	logger    *zap.Logger
}

// Option attaches an optional collaborator.
type Option func(*Collector)

func WithMirror(m Mirror) Option       { return func(c *Collector) { c.mirror = m } }
func WithPublisher(p Publisher) Option { return func(c *Collector) { c.publisher = p } }

func New(cfg config.Config, fetcher Fetcher, store SnapshotAppender, analyzer Analyzer,
	reports *memorystore.ReportStore, logger *zap.Logger, opts ...Option) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		cfg:      cfg,
		fetcher:  fetcher,
		store:    store,
		analyzer: analyzer,
		reports:  reports,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run samples immediately, then once per interval, until ctx is done.
// A failed cycle is retried after the retry delay instead of the full interval.
func (c *Collector) Run(ctx context.Context) error {
	c.logger.Info("collector started",
		zap.Int("tokens", len(c.cfg.Sampler.Tokens)),
		zap.Duration("interval", c.cfg.Sampler.Interval))

	for {
		wait := c.cfg.Sampler.Interval
		if err := c.RunOnce(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("sampling cycle failed", zap.Error(err))
			if c.cfg.Sampler.RetryDelay > 0 {
				wait = c.cfg.Sampler.RetryDelay
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.logger.Info("collector stopped")
			return nil
		case <-timer.C:
		}
	}
}

// RunOnce performs a single sampling cycle.
func (c *Collector) RunOnce(ctx context.Context) error {
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout())
	quotes, err := c.fetcher.GetPrices(fetchCtx, c.cfg.Sampler.Tokens)
	cancel()
	if err != nil {
		return fmt.Errorf("fetch quotes: %w", err)
	}
	if len(quotes) == 0 {
		return fmt.Errorf("fetch quotes: empty response")
	}

	tokens := market.BuildTokens(quotes, c.cfg.Sampler.TopN)

	res, err := c.store.Append(tokens)
	if err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	if res.Abandoned != nil {
		c.logger.Warn("snapshot not stored, will retry next cycle", zap.Error(res.Abandoned))
	} else {
		c.logger.Info("snapshot stored",
			zap.Int("quotes", len(tokens.AllTokens)),
			zap.Int("retained", res.Retained),
			zap.Int("pruned", res.Pruned))
		c.mirrorSnapshot(ctx, res.Snapshot)
	}

	symbols := make([]string, len(tokens.AllTokens))
	for i, q := range tokens.AllTokens {
		symbols[i] = q.Symbol
	}

	reports := make([]memorystore.TokenReport, 0, len(symbols))
	for i, r := range c.analyzer.Report(c.cfg.Analytics.Window, symbols...) {
		report := memorystore.TokenReport{
			TokenQuote: tokens.AllTokens[i],
			Volatility: r.Volatility,
			Trend:      r.Trend,
		}
		reports = append(reports, report)
		c.logReport(report)
	}

	for _, a := range CheckAlerts(tokens.AllTokens, c.cfg.Sampler.AlertThreshold) {
		c.logger.Warn("price alert",
			zap.String("symbol", a.Symbol),
			zap.Float64("change_24h", a.Change),
			zap.Float64("price", a.Price))
	}

	if c.reports != nil {
		c.reports.Replace(reports, tokens)
	}
	if c.publisher != nil {
		c.publisher.Publish(reports)
	}
	return nil
}

func (c *Collector) logReport(r memorystore.TokenReport) {
	if !r.Volatility.OK() || r.Volatility.Value == 0 {
		c.logger.Debug("analysis unavailable",
			zap.String("symbol", r.Symbol),
			zap.String("trend", r.Trend.String()),
			zap.NamedError("reason", r.Volatility.Err))
		return
	}
	c.logger.Info("analysis",
		zap.String("symbol", r.Symbol),
		zap.String("price", FormatPrice(r.Price)),
		zap.String("volatility", fmt.Sprintf("%.2f%%", r.Volatility.Value)),
		zap.String("trend", r.Trend.String()))
}

func (c *Collector) mirrorSnapshot(ctx context.Context, snap market.Snapshot) {
	if c.mirror == nil {
		return
	}
	dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := c.mirror.InsertSnapshot(dbCtx, snap); err != nil {
		c.logger.Warn("failed to mirror snapshot", zap.Error(err))
		return
	}
	cutoff := snap.Timestamp.Add(-c.cfg.Store.Retention)
	if n, err := c.mirror.DeleteOldQuotes(dbCtx, cutoff); err != nil {
		c.logger.Warn("failed to prune mirrored quotes", zap.Error(err))
	} else if n > 0 {
		c.logger.Debug("pruned mirrored quotes", zap.Int64("rows", n))
	}
}

func (c *Collector) fetchTimeout() time.Duration {
	if c.cfg.Jupiter.Timeout > 0 {
		return c.cfg.Jupiter.Timeout
	}
	return 10 * time.Second
}

// CheckAlerts returns the quotes whose absolute 24h change is at least threshold percent.
func CheckAlerts(quotes []market.TokenQuote, threshold float64) []Alert {
	if threshold <= 0 {
		return nil
	}
	var out []Alert
	for _, q := range quotes {
		if math.Abs(q.Change24h) >= threshold {
			out = append(out, Alert{Symbol: q.Symbol, Change: q.Change24h, Price: q.Price})
		}
	}
	return out
}

// FormatPrice renders a price with precision suited to its magnitude.
func FormatPrice(price float64) string {
	switch {
	case price < 0.01:
		return fmt.Sprintf("$%.8f", price)
	case price < 1:
		return fmt.Sprintf("$%.4f", price)
	default:
		return fmt.Sprintf("$%.2f", price)
	}
}
