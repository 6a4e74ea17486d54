package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"financial_auditor/pkg/core/calc"
	"financial_auditor/pkg/core/export"
	"financial_auditor/pkg/core/logging"
	"financial_auditor/pkg/models"

	"github.com/spf13/cobra"
)

const fetchTimeout = 2 * time.Minute

func newFetchCmd(a *App) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "fetch <TICKER>",
		Short: "Fetch and reconcile five years of statements",
		Long: `Fetch the income statement, balance sheet and cash-flow statement for a
ticker from Alpha Vantage and reconcile them into yearly records.

Requires ALPHAVANTAGE_API_KEY.`,
		Example: `  auditor fetch IBM
  auditor fetch IBM --out IBM_financials.csv
  auditor fetch IBM --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.Services(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(commandContext(cmd), fetchTimeout)
			defer cancel()
			ctx = logging.WithLogger(ctx, s.Logger)

			result, err := s.Ingestor.Ingest(ctx, args[0])
			if err != nil {
				return err
			}

			if out != "" {
				if err := writeCSVFile(out, result.Years); err != nil {
					return err
				}
			}

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(result)
			}
			output.Bold("%s: %d years reconciled\n", result.Ticker, len(result.Years))
			output.FinancialsTable(result.Years)
			if out != "" {
				output.Printf("\nSaved to %s\n", out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write the reconciled years to a CSV file")
	return cmd
}

func newMetricsCmd(a *App) *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:     "metrics",
		Short:   "Derive the audit ratios from a saved workbook",
		Example: `  auditor metrics --in IBM_financials.csv`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			years, err := readCSVFile(in)
			if err != nil {
				return err
			}
			metrics := calc.Derive(years)

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(metrics)
			}
			output.MetricsTable(years, metrics)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "workbook CSV written by fetch")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func newExportCmd(a *App) *cobra.Command {
	var in, xlsx string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Convert a saved workbook to XLSX",
		Long: `Write the financials and the derived metrics to an XLSX file with one
sheet each.`,
		Example: `  auditor export --in IBM_financials.csv --xlsx IBM_financials.xlsx`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			years, err := readCSVFile(in)
			if err != nil {
				return err
			}

			f, err := os.Create(xlsx)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", xlsx, err)
			}
			defer f.Close()

			if err := export.WriteXLSX(f, years, calc.Derive(years)); err != nil {
				return err
			}
			NewOutput(cmd).Printf("Wrote %s\n", xlsx)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "workbook CSV written by fetch")
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "XLSX file to write")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("xlsx")
	return cmd
}

func readCSVFile(path string) ([]models.FinancialYear, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return export.ReadCSV(f)
}

func writeCSVFile(path string, years []models.FinancialYear) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := export.WriteCSV(f, years); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
