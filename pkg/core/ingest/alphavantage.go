// Package ingest fetches annual statements from the Alpha Vantage fundamentals API.
// API Documentation: https://www.alphavantage.co/documentation/#fundamentals
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "financial_auditor/pkg/core/errors"
	"financial_auditor/pkg/core/logging"
	"financial_auditor/pkg/models"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBaseURL is the Alpha Vantage query endpoint.
	DefaultBaseURL = "https://www.alphavantage.co/query"

	// UserAgent identifies the client to the data service.
	UserAgent = "FinancialAuditor/1.0"

	serviceName = "alphavantage"
)

// advisoryKeys are the fields Alpha Vantage uses for rate limit and usage notices.
var advisoryKeys = []string{"Information", "Note", "Error Message"}

// ReportCache stores raw provider payloads keyed by ticker and report function.
type ReportCache interface {
	Get(ctx context.Context, ticker string, kind models.StatementType) ([]byte, bool, error)
	Put(ctx context.Context, ticker string, kind models.StatementType, payload []byte) error
}

// statementResponse is the subset of an Alpha Vantage fundamentals payload we read.
type statementResponse struct {
	Symbol        string             `json:"symbol"`
	AnnualReports []models.RawReport `json:"annualReports"`
}

// =============================================================================
// ALPHA VANTAGE CLIENT
// =============================================================================

// Client handles Alpha Vantage API requests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cache      ReportCache
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint (used by tests and proxies).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithCache enables the response cache.
func WithCache(cache ReportCache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a new Alpha Vantage client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchStatements retrieves the three annual report collections for ticker concurrently.
// Any single failure aborts the whole fetch. Reports are returned newest first, as delivered.
func (c *Client) FetchStatements(ctx context.Context, ticker string) (models.Statements, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return models.Statements{}, apperrors.NewDataError("", ticker, "ticker is required", apperrors.ErrInvalidTicker)
	}
	if c.apiKey == "" {
		return models.Statements{}, apperrors.NewDataError("", ticker, "data provider API key is not configured", apperrors.ErrMissingCredential)
	}

	var out models.Statements
	g, gctx := errgroup.WithContext(ctx)

	targets := map[models.StatementType]*[]models.RawReport{
		models.IncomeStatement: &out.Income,
		models.BalanceSheet:    &out.Balance,
		models.CashFlow:        &out.CashFlow,
	}
	for kind, dst := range targets {
		kind, dst := kind, dst
		g.Go(func() error {
			reports, err := c.FetchReports(gctx, ticker, kind)
			if err != nil {
				return err
			}
			*dst = reports
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return models.Statements{}, err
	}

	c.logger.Info().
		Str("ticker", ticker).
		Int("income", len(out.Income)).
		Int("balance", len(out.Balance)).
		Int("cash_flow", len(out.CashFlow)).
		Msg("Fetched statements")
	return out, nil
}

// FetchReports retrieves the annualReports array for a single report function.
// A payload with no annualReports yields an empty slice, not an error.
func (c *Client) FetchReports(ctx context.Context, ticker string, kind models.StatementType) ([]models.RawReport, error) {
	if c.cache != nil {
		if payload, ok, err := c.cache.Get(ctx, ticker, kind); err != nil {
			c.logger.Warn().Err(err).Str("ticker", ticker).Str("function", string(kind)).Msg("Report cache read failed")
		} else if ok {
			if reports, err := c.decode(ticker, kind, payload); err == nil {
				c.logger.Debug().Str("ticker", ticker).Str("function", string(kind)).Msg("Report cache hit")
				return reports, nil
			}
		}
	}

	payload, err := c.get(ctx, ticker, kind)
	if err != nil {
		return nil, err
	}

	reports, err := c.decode(ticker, kind, payload)
	if err != nil {
		return nil, err
	}

	// Advisory-only payloads are not cached so the next request retries the network.
	if c.cache != nil && len(reports) > 0 {
		if err := c.cache.Put(ctx, ticker, kind, payload); err != nil {
			c.logger.Warn().Err(err).Str("ticker", ticker).Str("function", string(kind)).Msg("Report cache write failed")
		}
	}
	return reports, nil
}

func (c *Client) get(ctx context.Context, ticker string, kind models.StatementType) ([]byte, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, apperrors.NewDataError(string(kind), ticker, "invalid base URL", err)
	}
	q := endpoint.Query()
	q.Set("function", string(kind))
	q.Set("symbol", ticker)
	q.Set("apikey", c.apiKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, apperrors.NewDataError(string(kind), ticker, "failed to create request", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.LogAPICall(c.logger, serviceName, string(kind), time.Since(start), err)
		return nil, apperrors.NewDataError(string(kind), ticker, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("HTTP %d", resp.StatusCode)
		logging.LogAPICall(c.logger, serviceName, string(kind), time.Since(start), err)
		return nil, apperrors.NewDataError(string(kind), ticker, "unexpected status", err)
	}

	body, err := io.ReadAll(resp.Body)
	logging.LogAPICall(c.logger, serviceName, string(kind), time.Since(start), err)
	if err != nil {
		return nil, apperrors.NewDataError(string(kind), ticker, "failed to read response", err)
	}
	return body, nil
}

func (c *Client) decode(ticker string, kind models.StatementType, payload []byte) ([]models.RawReport, error) {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(payload, &generic); err != nil {
		return nil, apperrors.NewDataError(string(kind), ticker, "failed to parse response", err)
	}
	c.logAdvisory(ticker, kind, generic)

	var resp statementResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, apperrors.NewDataError(string(kind), ticker, "failed to parse annualReports", err)
	}
	if resp.AnnualReports == nil {
		return []models.RawReport{}, nil
	}
	return resp.AnnualReports, nil
}

// logAdvisory surfaces provider notices (rate limits, bad symbols) without failing the fetch.
func (c *Client) logAdvisory(ticker string, kind models.StatementType, payload map[string]json.RawMessage) {
	for _, key := range advisoryKeys {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil {
			msg = string(raw)
		}
		c.logger.Warn().
			Str("ticker", ticker).
			Str("function", string(kind)).
			Str("notice", key).
			Msg(msg)
	}
}
