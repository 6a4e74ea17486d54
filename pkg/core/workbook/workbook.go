// Package workbook holds the in-memory five-year record set edited through the UI and API.
package workbook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"financial_auditor/pkg/core/calc"
	apperrors "financial_auditor/pkg/core/errors"
	"financial_auditor/pkg/core/ingest"
	"financial_auditor/pkg/core/logging"
	"financial_auditor/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Source identifies what last changed the workbook.
type Source string

const (
	SourceTemplate Source = "template"
	SourceFetch    Source = "fetch"
	SourceEdit     Source = "edit"
	SourceReplace  Source = "replace"
)

// State is an immutable copy of the workbook.
type State struct {
	Ticker    string                 `json:"ticker"`
	Years     []models.FinancialYear `json:"financials"`
	Source    Source                 `json:"source"`
	Version   uint64                 `json:"version"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// FetchToken correlates a fetch with the log lines it produces.
type FetchToken struct {
	ID        string
	Ticker    string
	StartedAt time.Time
}

// Ingester fetches and reconciles a ticker. ingest.Ingestor satisfies it.
type Ingester interface {
	Ingest(ctx context.Context, ticker string) (*ingest.IngestResult, error)
}

// Workbook is safe for concurrent use. Every change swaps in a complete new record set.
type Workbook struct {
	mu        sync.RWMutex
	ticker    string
	years     []models.FinancialYear
	source    Source
	version   uint64
	updatedAt time.Time

	now    func() time.Time
	logger zerolog.Logger
}

// New returns a workbook holding the FY21..FY25 template.
func New(logger zerolog.Logger) *Workbook {
	w := &Workbook{
		years:  models.Baseline(),
		source: SourceTemplate,
		now:    time.Now,
		logger: logger.With().Str("component", "workbook").Logger(),
	}
	w.updatedAt = w.now()
	return w
}

// Snapshot returns a copy of the current state.
func (w *Workbook) Snapshot() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshotLocked()
}

func (w *Workbook) snapshotLocked() State {
	years := make([]models.FinancialYear, len(w.years))
	copy(years, w.years)
	return State{
		Ticker:    w.ticker,
		Years:     years,
		Source:    w.source,
		Version:   w.version,
		UpdatedAt: w.updatedAt,
	}
}

// Metrics derives ratios from the current records. Nothing is cached.
func (w *Workbook) Metrics() []models.CalculatedMetrics {
	return calc.Derive(w.Snapshot().Years)
}

// Replace swaps in a caller-supplied record set. Fewer than five records are laid over the template.
func (w *Workbook) Replace(years []models.FinancialYear) (State, error) {
	if len(years) > models.YearWindow {
		return State{}, fmt.Errorf("%w: %d records, at most %d allowed", apperrors.ErrInvalidWorkbook, len(years), models.YearWindow)
	}
	next := models.PadToBaseline(years)
	if label, dup := models.DuplicateYear(next); dup {
		return State{}, fmt.Errorf("%w: duplicate year %q", apperrors.ErrInvalidWorkbook, label)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.commitLocked(next, SourceReplace)
	w.logger.Info().Uint64("version", w.version).Msg("Workbook replaced")
	return w.snapshotLocked(), nil
}

// EditCell replaces one year's record with a copy carrying the coerced value.
// Unparseable input becomes 0.
func (w *Workbook) EditCell(index int, field, raw string) (State, error) {
	value := models.CoerceNumber(raw)

	w.mu.Lock()
	defer w.mu.Unlock()

	if index < 0 || index >= len(w.years) {
		return State{}, fmt.Errorf("%w: row %d", apperrors.ErrInvalidCell, index)
	}
	updated, ok := w.years[index].With(field, value)
	if !ok {
		return State{}, fmt.Errorf("%w: field %q", apperrors.ErrInvalidCell, field)
	}

	next := make([]models.FinancialYear, len(w.years))
	copy(next, w.years)
	next[index] = updated
	w.commitLocked(next, SourceEdit)

	w.logger.Debug().Int("row", index).Str("field", field).Float64("value", value).Msg("Cell edited")
	return w.snapshotLocked(), nil
}

// BeginFetch issues a token for an upcoming fetch.
func (w *Workbook) BeginFetch(ticker string) FetchToken {
	token := FetchToken{ID: uuid.New().String(), Ticker: ticker, StartedAt: w.now()}
	logger := logging.WithTicker(w.logger, ticker)
	logger.Info().Str("fetch_id", token.ID).Msg("Fetch started")
	return token
}

// ApplyFetch lays reconciled records over the template and installs them.
// Results apply in arrival order, so with overlapping fetches the last to finish wins.
func (w *Workbook) ApplyFetch(token FetchToken, fetched []models.FinancialYear) State {
	next := models.PadToBaseline(fetched)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.ticker = token.Ticker
	w.commitLocked(next, SourceFetch)

	logger := logging.WithTicker(w.logger, token.Ticker)
	logger.Info().
		Str("fetch_id", token.ID).
		Int("years", len(fetched)).
		Dur("elapsed", w.now().Sub(token.StartedAt)).
		Uint64("version", w.version).
		Msg("Fetch applied")
	return w.snapshotLocked()
}

// Fetch runs a full fetch for ticker. On failure the workbook is left untouched.
func (w *Workbook) Fetch(ctx context.Context, src Ingester, ticker string) (State, error) {
	token := w.BeginFetch(ticker)
	result, err := src.Ingest(ctx, ticker)
	if err != nil {
		logger := logging.WithTicker(w.logger, ticker)
		logger.Warn().Err(err).Str("fetch_id", token.ID).Msg("Fetch failed")
		return State{}, err
	}
	token.Ticker = result.Ticker
	return w.ApplyFetch(token, result.Years), nil
}

func (w *Workbook) commitLocked(years []models.FinancialYear, source Source) {
	w.years = years
	w.source = source
	w.version++
	w.updatedAt = w.now()
}
