// Package mapping maintains the ticker to external-identifier table used
// by providers that address entities by non-ticker IDs. The table is backed
// by a snapshot file and refreshed from the upstream full listing at most
// once per refresh interval; a failed refresh keeps the stale snapshot
// authoritative, because staleness is preferred over absence.
package mapping

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/finbridge/finbridge/internal/config"
	"github.com/finbridge/finbridge/internal/errors"
	"github.com/finbridge/finbridge/internal/executor"
	"github.com/finbridge/finbridge/internal/logging"
	"github.com/finbridge/finbridge/internal/metrics"
)

// Entry is one snapshot record: canonical external ID plus display name.
type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Match is one search result.
type Match struct {
	Ticker     string `json:"ticker"`
	Name       string `json:"name"`
	ExternalID string `json:"external_id"`
}

// Cache is the ticker identifier table. Lookups read a whole-map reference
// taken under the lock, and refresh swaps the reference atomically, so
// readers never observe a partially updated table.
type Cache struct {
	path            string
	sourceURL       string
	refreshInterval time.Duration
	searchLimit     int
	exec            *executor.Executor
	logger          *logging.Logger
	metrics         *metrics.Metrics
	now             func() time.Time

	mu            sync.RWMutex
	entries       map[string]Entry
	lastRefreshed time.Time

	watcher   *fsnotify.Watcher
	watchStop chan struct{}
	watchOnce sync.Once
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMetrics attaches gateway metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New creates a Cache. exec issues the upstream listing fetch and is
// expected to carry the provider's fair-access etiquette.
func New(cfg config.MappingConfig, exec *executor.Executor, logger *logging.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = logging.NewLogger()
	}
	searchLimit := cfg.SearchLimit
	if searchLimit <= 0 {
		searchLimit = 10
	}
	c := &Cache{
		path:            cfg.SnapshotPath,
		sourceURL:       cfg.SourceURL,
		refreshInterval: cfg.RefreshInterval,
		searchLimit:     searchLimit,
		exec:            exec,
		logger:          logger,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads the snapshot from disk. A missing snapshot is not an error:
// the cache starts empty and degrades to not-found until a refresh lands.
func (c *Cache) Load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			c.logger.Warn("mapping snapshot absent, starting empty", "path", c.path)
			return nil
		}
		return fmt.Errorf("read mapping snapshot %s: %w", c.path, err)
	}

	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse mapping snapshot %s: %w", c.path, err)
	}

	info, err := os.Stat(c.path)
	var lastRefreshed time.Time
	if err == nil {
		lastRefreshed = info.ModTime()
	}

	c.mu.Lock()
	c.entries = entries
	c.lastRefreshed = lastRefreshed
	c.mu.Unlock()

	c.logger.Info("mapping snapshot loaded",
		"path", c.path,
		"entries", len(entries),
		"last_refreshed", lastRefreshed.UTC().Format(time.RFC3339),
	)
	return nil
}

// EnsureFresh refreshes the table when the snapshot is older than the
// refresh interval. Refresh failure is logged and swallowed: the stale
// table remains authoritative.
func (c *Cache) EnsureFresh(ctx context.Context) {
	c.mu.RLock()
	stale := c.entries == nil || c.now().Sub(c.lastRefreshed) > c.refreshInterval
	c.mu.RUnlock()

	if !stale {
		return
	}
	if err := c.Refresh(ctx); err != nil {
		c.logger.WarnWithContext(ctx, "mapping refresh failed, keeping stale snapshot", "error", err.Error())
	}
}

// Resolve returns the canonical external ID for a ticker, or ErrNotFound.
func (c *Cache) Resolve(ticker string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	c.mu.RLock()
	entries := c.entries
	c.mu.RUnlock()

	entry, ok := entries[ticker]
	if !ok {
		return "", &errors.ErrNotFound{Ticker: ticker}
	}
	return entry.ID, nil
}

// Search returns matches whose ticker or name contains term,
// case-insensitively, capped at the configured limit and ordered by ticker
// for deterministic output.
func (c *Cache) Search(term string) []Match {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}

	c.mu.RLock()
	entries := c.entries
	c.mu.RUnlock()

	tickers := make([]string, 0, len(entries))
	for ticker := range entries {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	matches := make([]Match, 0, c.searchLimit)
	for _, ticker := range tickers {
		entry := entries[ticker]
		if !strings.Contains(strings.ToLower(ticker), term) &&
			!strings.Contains(strings.ToLower(entry.Name), term) {
			continue
		}
		matches = append(matches, Match{Ticker: ticker, Name: entry.Name, ExternalID: entry.ID})
		if len(matches) >= c.searchLimit {
			break
		}
	}
	return matches
}

// Len returns the number of entries currently held.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// upstream listing shape: {"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."}}
type upstreamEntry struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// Refresh fetches the full upstream listing, normalizes it, atomically
// replaces the in-memory table and persists a fresh snapshot. On failure it
// returns ErrRefresh and leaves the existing table untouched.
func (c *Cache) Refresh(ctx context.Context) error {
	resp, err := c.exec.Execute(ctx, executor.Request{
		Method:   http.MethodGet,
		Endpoint: c.sourceURL,
	}, nil)
	if err != nil {
		c.metrics.RecordMappingRefresh("failure")
		return &errors.ErrRefresh{Err: err}
	}

	var listing map[string]upstreamEntry
	if err := json.Unmarshal(resp.Body, &listing); err != nil {
		c.metrics.RecordMappingRefresh("failure")
		return &errors.ErrRefresh{Err: fmt.Errorf("parse upstream listing: %w", err)}
	}

	entries := make(map[string]Entry, len(listing))
	for _, item := range listing {
		ticker := strings.ToUpper(strings.TrimSpace(item.Ticker))
		if ticker == "" {
			continue
		}
		entries[ticker] = Entry{
			ID:   fmt.Sprintf("%010d", item.CIK),
			Name: item.Title,
		}
	}

	now := c.now()

	c.mu.Lock()
	c.entries = entries
	c.lastRefreshed = now
	c.mu.Unlock()

	if err := c.persist(entries); err != nil {
		// The in-memory table is already fresh; a persist failure only
		// costs us the next restart.
		c.logger.Warn("mapping snapshot not persisted", "path", c.path, "error", err.Error())
	}

	c.metrics.RecordMappingRefresh("success")
	c.logger.InfoWithContext(ctx, "mapping refreshed", "entries", len(entries))
	return nil
}

func (c *Cache) persist(entries map[string]Entry) error {
	dir := filepath.Dir(c.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}
