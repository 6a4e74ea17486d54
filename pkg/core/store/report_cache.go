package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"financial_auditor/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ReportCache caches raw data-provider payloads per ticker and statement.
// Supports a hybrid vault: DB (primary) + file system (fallback/local).
// Entries older than the TTL are treated as misses; a zero TTL never expires.
type ReportCache struct {
	pool    *pgxpool.Pool
	fileDir string
	ttl     time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

// CacheEntry is the on-disk form of one cached payload. The payload is kept as a
// string so it reads back byte for byte.
type CacheEntry struct {
	Ticker    string    `json:"ticker"`
	Function  string    `json:"function"`
	Payload   string    `json:"payload"`
	FetchedAt time.Time `json:"fetched_at"`
}

const createReportsTable = `
CREATE TABLE IF NOT EXISTS provider_reports (
	ticker     TEXT        NOT NULL,
	function   TEXT        NOT NULL,
	payload    JSONB       NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (ticker, function)
)`

// NewReportCache creates a cache. If pool is nil, it falls back to a file cache in dir.
// If both are empty, dir defaults to .cache/reports.
func NewReportCache(pool *pgxpool.Pool, dir string, ttl time.Duration, logger zerolog.Logger) *ReportCache {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "reports")
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Warn().Err(err).Str("dir", dir).Msg("Report cache dir unavailable")
		}
	}
	return &ReportCache{pool: pool, fileDir: dir, ttl: ttl, now: time.Now, logger: logger}
}

// EnsureSchema creates the backing table when a database is configured.
func (c *ReportCache) EnsureSchema(ctx context.Context) error {
	if c.pool == nil {
		return nil
	}
	if _, err := c.pool.Exec(ctx, createReportsTable); err != nil {
		return fmt.Errorf("failed to create provider_reports: %w", err)
	}
	return nil
}

// Get returns a fresh cached payload for ticker and kind.
func (c *ReportCache) Get(ctx context.Context, ticker string, kind models.StatementType) ([]byte, bool, error) {
	ticker = normalizeTicker(ticker)

	// 1. Try DB
	if c.pool != nil {
		var payload []byte
		var fetchedAt time.Time
		err := c.pool.QueryRow(ctx,
			`SELECT payload, fetched_at FROM provider_reports WHERE ticker = $1 AND function = $2`,
			ticker, string(kind),
		).Scan(&payload, &fetchedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("failed to read db cache: %w", err)
		}
		if c.expired(fetchedAt) {
			return nil, false, nil
		}
		return payload, true, nil
	}

	// 2. Try file system
	if c.fileDir == "" {
		return nil, false, nil
	}
	data, err := os.ReadFile(c.entryPath(ticker, kind))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache file: %w", err)
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Payload == "" {
		c.logger.Warn().Err(err).Str("ticker", ticker).Str("function", string(kind)).Msg("Discarding corrupt cache entry")
		return nil, false, nil
	}
	if c.expired(entry.FetchedAt) {
		return nil, false, nil
	}
	return []byte(entry.Payload), true, nil
}

// Put stores a payload, replacing any previous entry.
func (c *ReportCache) Put(ctx context.Context, ticker string, kind models.StatementType, payload []byte) error {
	ticker = normalizeTicker(ticker)
	if !json.Valid(payload) {
		return fmt.Errorf("refusing to cache invalid JSON for %s %s", ticker, kind)
	}
	fetchedAt := c.now().UTC()

	// 1. Save to DB
	if c.pool != nil {
		_, err := c.pool.Exec(ctx, `
			INSERT INTO provider_reports (ticker, function, payload, fetched_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (ticker, function)
			DO UPDATE SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at`,
			ticker, string(kind), payload, fetchedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save to db cache: %w", err)
		}
	}

	// 2. Save to file (always if configured)
	if c.fileDir != "" {
		entry := CacheEntry{
			Ticker:    ticker,
			Function:  string(kind),
			Payload:   string(payload),
			FetchedAt: fetchedAt,
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal cache entry: %w", err)
		}
		path := c.entryPath(ticker, kind)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create cache dir: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write cache file: %w", err)
		}
	}
	return nil
}

// Invalidate drops every cached statement for ticker.
func (c *ReportCache) Invalidate(ctx context.Context, ticker string) error {
	ticker = normalizeTicker(ticker)
	if c.pool != nil {
		if _, err := c.pool.Exec(ctx, `DELETE FROM provider_reports WHERE ticker = $1`, ticker); err != nil {
			return fmt.Errorf("failed to invalidate db cache: %w", err)
		}
	}
	if c.fileDir != "" {
		for _, kind := range models.StatementTypes {
			if err := os.Remove(c.entryPath(ticker, kind)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to remove cache file: %w", err)
			}
		}
	}
	return nil
}

func (c *ReportCache) expired(fetchedAt time.Time) bool {
	return c.ttl > 0 && c.now().Sub(fetchedAt) > c.ttl
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Z0-9._-]`)

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

func (c *ReportCache) entryPath(ticker string, kind models.StatementType) string {
	safe := unsafeKeyChars.ReplaceAllString(ticker, "_")
	if strings.Trim(safe, ".") == "" {
		safe = "_" + safe
	}
	return filepath.Join(c.fileDir, safe, strings.ToLower(string(kind))+".json")
}
