package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"financial_auditor/pkg/core/utils"
	"financial_auditor/pkg/models"

	"github.com/spf13/cobra"
)

// Color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBold   = "\033[1m"
)

// Output handles formatted output for the CLI.
type Output struct {
	writer       io.Writer
	jsonMode     bool
	colorEnabled bool
}

// NewOutput creates a new Output instance.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	w := cmd.OutOrStdout()
	return &Output{
		writer:       w,
		jsonMode:     jsonMode,
		colorEnabled: !jsonMode && w == os.Stdout && isTerminal(),
	}
}

func isTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// IsJSON returns true if JSON output mode is enabled.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// JSON outputs data as indented JSON.
func (o *Output) JSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Printf prints a formatted message.
func (o *Output) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}

// Bold prints a bold line.
func (o *Output) Bold(format string, args ...interface{}) {
	o.colored(ColorBold, format, args...)
}

// Risk prints the risk grade colored by severity.
func (o *Output) Risk(level models.RiskLevel) {
	color := ColorGreen
	switch level {
	case models.RiskMedium:
		color = ColorYellow
	case models.RiskHigh, models.RiskCritical:
		color = ColorRed
	}
	o.colored(color, "Risk level: %s\n", level)
}

func (o *Output) colored(color, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if o.colorEnabled {
		fmt.Fprint(o.writer, color+msg+ColorReset)
	} else {
		fmt.Fprint(o.writer, msg)
	}
}

// FinancialsTable prints one row per field and one column per year.
func (o *Output) FinancialsTable(years []models.FinancialYear) {
	tw := tabwriter.NewWriter(o.writer, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := []string{"Field"}
	for _, fy := range years {
		header = append(header, fy.Year)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")
	for _, f := range models.Fields {
		cells := []string{f.Label}
		for _, fy := range years {
			cells = append(cells, utils.FormatAmount(f.Value(fy)))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	tw.Flush()
}

// MetricsTable prints one row per ratio and one column per year.
func (o *Output) MetricsTable(years []models.FinancialYear, metrics []models.CalculatedMetrics) {
	tw := tabwriter.NewWriter(o.writer, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := []string{"Metric"}
	for _, fy := range years {
		header = append(header, fy.Year)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")
	for _, row := range utils.MetricRows(metrics) {
		fmt.Fprintln(tw, strings.Join(append([]string{row.Label}, row.Cells...), "\t")+"\t")
	}
	tw.Flush()
}
