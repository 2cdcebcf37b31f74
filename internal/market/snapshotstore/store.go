package snapshotstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"tokenwatch/internal/market"

	"go.uber.org/zap"
)

// DefaultRetention is the sliding window of snapshots kept on disk.
const DefaultRetention = 24 * time.Hour

// Store persists the snapshot history as a single JSON file and owns it exclusively.
type Store struct {
	path      string
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger

	mu sync.Mutex
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now as the append-time reference.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store backed by the file at path. A non-positive retention uses DefaultRetention.
func New(path string, retention time.Duration, logger *zap.Logger, opts ...Option) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		path:      path,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Path() string             { return s.path }
func (s *Store) Retention() time.Duration { return s.retention }

// AppendResult describes the outcome of an Append.
type AppendResult struct {
	Snapshot market.Snapshot
	Retained int // snapshots on disk after the write
	Pruned   int // snapshots dropped by retention

	// Abandoned is set when the existing history could not be read for merging.
	// Nothing was written and the next cycle is expected to retry.
	Abandoned error
}

// Append records tokens as a new snapshot stamped with the current time,
// prunes everything older than the retention window and rewrites the file.
// Only write failures are returned as errors.
func (s *Store) Append(tokens market.Tokens) (AppendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	snap := market.Snapshot{
		Timestamp: market.NewTimestamp(now),
		Tokens:    tokens.Clone(),
	}
	result := AppendResult{Snapshot: snap}

	history, err := s.read()
	if err != nil {
		s.logger.Warn("abandoning append, history unreadable",
			zap.String("path", s.path), zap.Error(err))
		result.Abandoned = err
		return result, nil
	}

	history = append(history, snap)
	kept := prune(history, now.Add(-s.retention))
	result.Pruned = len(history) - len(kept)
	result.Retained = len(kept)

	if err := s.write(kept); err != nil {
		return result, err
	}

	s.logger.Debug("snapshot appended",
		zap.Time("timestamp", now),
		zap.Int("quotes", len(tokens.AllTokens)),
		zap.Int("retained", result.Retained),
		zap.Int("pruned", result.Pruned))
	return result, nil
}

// AppendQuotes appends a snapshot holding only quotes, in the given order.
func (s *Store) AppendQuotes(quotes []market.TokenQuote) (AppendResult, error) {
	return s.Append(market.Tokens{AllTokens: quotes})
}

// Load returns the full retained history. A store that does not exist yet is an empty history.
func (s *Store) Load() (market.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// prune drops snapshots strictly older than cutoff, preserving order.
func prune(h market.History, cutoff time.Time) market.History {
	kept := h[:0:0]
	for _, snap := range h {
		if snap.Timestamp.Before(cutoff) {
			continue
		}
		kept = append(kept, snap)
	}
	return kept
}

func (s *Store) read() (market.History, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return market.History{}, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "read", Path: s.path, Err: err}
	}

	history, err := decodeHistory(data)
	if err != nil {
		return nil, &PersistenceError{Op: "decode", Path: s.path, Err: err}
	}
	return history, nil
}

// write replaces the file atomically: temp file in the same directory, fsync, rename.
func (s *Store) write(h market.History) error {
	data, err := encodeHistory(h)
	if err != nil {
		return &PersistenceError{Op: "encode", Path: s.path, Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{Op: "write", Path: s.path, Err: fmt.Errorf("create data directory: %w", err)}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &PersistenceError{Op: "write", Path: s.path, Err: err}
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return &PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}
