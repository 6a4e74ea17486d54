package cli

import (
	"context"
	"errors"
	"strings"

	"financial_auditor/pkg/core/calc"
	apperrors "financial_auditor/pkg/core/errors"
	"financial_auditor/pkg/core/logging"
	"financial_auditor/pkg/core/utils"
	"financial_auditor/pkg/models"

	"github.com/spf13/cobra"
)

type analyzeResult struct {
	Ticker string `json:"ticker,omitempty"`
	models.AnomalyReport
}

func newAnalyzeCmd(a *App) *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "analyze [TICKER]",
		Short: "Produce the forensic anomaly report",
		Long: `Send the financials and derived ratios to the active LLM provider and
print the risk grade, the key red flags and the narrative analysis.

With --in the workbook is read from a CSV file and TICKER only names the
company in the prompt. Without --in the ticker is fetched first.`,
		Example: `  auditor analyze IBM
  auditor analyze IBM --in IBM_financials.csv
  auditor analyze --in IBM_financials.csv --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ticker string
			if len(args) == 1 {
				ticker = strings.ToUpper(strings.TrimSpace(args[0]))
			}
			if in == "" && ticker == "" {
				return errors.New("either a ticker or --in is required")
			}

			s, err := a.Services(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(commandContext(cmd), fetchTimeout)
			defer cancel()
			ctx = logging.WithLogger(ctx, s.Logger)

			var years []models.FinancialYear
			if in != "" {
				if years, err = readCSVFile(in); err != nil {
					return err
				}
			} else {
				result, err := s.Ingestor.Ingest(ctx, ticker)
				if err != nil {
					return err
				}
				years = result.Years
			}
			if len(years) == 0 {
				return apperrors.ErrNoDataFound
			}

			report, err := s.Analyzer.AnalyzeCompany(ctx, ticker, years, calc.Derive(years))
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(analyzeResult{Ticker: ticker, AnomalyReport: report})
			}
			output.Risk(report.RiskLevel)
			if len(report.KeyFlags) > 0 {
				output.Bold("\nKey flags\n")
				for _, flag := range report.KeyFlags {
					output.Printf("  - %s\n", flag)
				}
			}
			output.Printf("\n%s\n", utils.CleanMarkdown(report.Analysis))
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "workbook CSV written by fetch")
	return cmd
}
