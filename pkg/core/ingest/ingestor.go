package ingest

import (
	"context"
	"strings"
	"time"

	"financial_auditor/pkg/core/logging"
	"financial_auditor/pkg/core/reconcile"
	"financial_auditor/pkg/models"
)

// StatementFetcher is the data source an Ingestor reads from.
type StatementFetcher interface {
	FetchStatements(ctx context.Context, ticker string) (models.Statements, error)
}

// IngestResult holds the outcome of one ticker fetch.
type IngestResult struct {
	Ticker    string                 `json:"ticker"`
	Years     []models.FinancialYear `json:"years"`
	Income    int                    `json:"income_reports"`
	Balance   int                    `json:"balance_reports"`
	CashFlow  int                    `json:"cash_flow_reports"`
	FetchedAt time.Time              `json:"fetched_at"`
}

// Ingestor fetches the three statements for a ticker and reconciles them into yearly records.
type Ingestor struct {
	fetcher StatementFetcher
}

// NewIngestor creates an Ingestor backed by fetcher.
func NewIngestor(fetcher StatementFetcher) *Ingestor {
	return &Ingestor{fetcher: fetcher}
}

// Ingest runs fetch then reconcile. Reconciliation fails with ErrNoDataFound when the
// provider returned nothing for all three statements.
func (i *Ingestor) Ingest(ctx context.Context, ticker string) (*IngestResult, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	logger := logging.WithOperation(logging.FromContext(ctx), "ingest")

	stmts, err := i.fetcher.FetchStatements(ctx, ticker)
	if err != nil {
		logger.Error().Err(err).Str("ticker", ticker).Msg("Statement fetch failed")
		return nil, err
	}

	years, err := reconcile.NewReconciler(logger).Reconcile(stmts.Income, stmts.Balance, stmts.CashFlow)
	if err != nil {
		logger.Warn().Err(err).Str("ticker", ticker).Msg("Nothing to reconcile")
		return nil, err
	}

	logger.Info().Str("ticker", ticker).Int("years", len(years)).Msg("Reconciled statements")
	return &IngestResult{
		Ticker:    ticker,
		Years:     years,
		Income:    len(stmts.Income),
		Balance:   len(stmts.Balance),
		CashFlow:  len(stmts.CashFlow),
		FetchedAt: time.Now().UTC(),
	}, nil
}
