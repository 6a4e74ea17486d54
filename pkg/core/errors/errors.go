// Package errors provides the error taxonomy shared by ingestion, reconciliation and analysis.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrNoDataFound       = errors.New("no data found for this ticker")
	ErrMalformedEntry    = errors.New("malformed report entry")
	ErrEmptyAnalysis     = errors.New("empty response from analysis service")
	ErrSchemaViolation   = errors.New("analysis response does not match schema")
	ErrProviderNotFound  = errors.New("llm provider not found")
	ErrMissingCredential = errors.New("missing api credential")
	ErrInvalidCell       = errors.New("invalid cell reference")
	ErrInvalidTicker     = errors.New("invalid ticker symbol")
	ErrInvalidWorkbook   = errors.New("invalid workbook")
)

// DataError represents a failure talking to the financial data service.
type DataError struct {
	Function string
	Ticker   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.Function, e.Ticker, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.Function, e.Ticker, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(function, ticker, message string, err error) *DataError {
	return &DataError{
		Function: function,
		Ticker:   ticker,
		Message:  message,
		Err:      err,
	}
}

// AnalysisStage names where an analysis round trip broke.
type AnalysisStage string

const (
	StageRequest AnalysisStage = "request"
	StageEmpty   AnalysisStage = "empty"
	StageParse   AnalysisStage = "parse"
	StageSchema  AnalysisStage = "schema"
)

// AnalysisError represents an analysis service failure. No partial report accompanies it.
type AnalysisError struct {
	Provider string
	Stage    AnalysisStage
	Err      error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis error [%s] %s: %v", e.Provider, e.Stage, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewAnalysisError creates a new AnalysisError.
func NewAnalysisError(provider string, stage AnalysisStage, err error) *AnalysisError {
	return &AnalysisError{
		Provider: provider,
		Stage:    stage,
		Err:      err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
