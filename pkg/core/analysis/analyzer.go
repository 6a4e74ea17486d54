package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "financial_auditor/pkg/core/errors"
	"financial_auditor/pkg/core/llm"
	"financial_auditor/pkg/core/logging"
	"financial_auditor/pkg/core/prompt"
	"financial_auditor/pkg/core/utils"
	"financial_auditor/pkg/models"

	"github.com/rs/zerolog"
)

// DefaultAgentType is the models.yaml agent key used for anomaly reports.
const DefaultAgentType = "auditor"

// Executor runs a prompt against the provider routed for agentType and returns the
// provider name with the raw response. agent.Manager satisfies it.
type Executor interface {
	ExecutePrompt(ctx context.Context, agentType, prompt, systemPrompt string, opts llm.Options) (string, string, error)
}

// Analyzer requests an anomaly report for a five-year workbook.
type Analyzer struct {
	exec      Executor
	prompts   *prompt.Registry
	agentType string
	opts      llm.Options
	logger    zerolog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithAgentType selects the agent whose model and prompt settings are used.
func WithAgentType(agentType string) Option {
	return func(a *Analyzer) { a.agentType = agentType }
}

// WithMaxTokens caps the length of the generated report.
func WithMaxTokens(n int) Option {
	return func(a *Analyzer) { a.opts.MaxTokens = n }
}

// WithTemperature sets the sampling temperature sent to the provider.
func WithTemperature(t float32) Option {
	return func(a *Analyzer) { a.opts.Temperature = llm.Float32(t) }
}

// WithLogger sets the logger used for analysis events.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// NewAnalyzer builds an Analyzer. A nil registry uses the global prompt registry.
func NewAnalyzer(exec Executor, prompts *prompt.Registry, opts ...Option) *Analyzer {
	if prompts == nil {
		prompts = prompt.Get()
	}
	a := &Analyzer{
		exec:      exec,
		prompts:   prompts,
		agentType: DefaultAgentType,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.opts.Schema = AnomalySchema()
	a.opts.SchemaName = "anomaly_report"
	return a
}

// Analyze sends the financials and derived metrics to the analysis service and returns the
// parsed report. Any failure yields a zero report and an *apperrors.AnalysisError.
func (a *Analyzer) Analyze(ctx context.Context, financials []models.FinancialYear, metrics []models.CalculatedMetrics) (models.AnomalyReport, error) {
	return a.AnalyzeCompany(ctx, "", financials, metrics)
}

// AnalyzeCompany is Analyze with a ticker or company label for the prompt.
func (a *Analyzer) AnalyzeCompany(ctx context.Context, company string, financials []models.FinancialYear, metrics []models.CalculatedMetrics) (models.AnomalyReport, error) {
	logger := logging.WithOperation(a.logger, "anomaly_report")
	if company != "" {
		logger = logging.WithTicker(logger, company)
	}

	userPrompt, systemPrompt, err := a.buildPrompt(company, financials, metrics)
	if err != nil {
		return models.AnomalyReport{}, apperrors.NewAnalysisError("", apperrors.StageRequest, err)
	}

	providerName, raw, err := a.exec.ExecutePrompt(ctx, a.agentType, userPrompt, systemPrompt, a.opts)
	if err != nil {
		logger.Error().Err(err).Str("provider", providerName).Msg("Analysis request failed")
		return models.AnomalyReport{}, apperrors.NewAnalysisError(providerName, apperrors.StageRequest, err)
	}

	report, err := ParseReport(providerName, raw)
	if err != nil {
		logger.Error().Err(err).Str("provider", providerName).Int("response_len", len(raw)).Msg("Analysis response rejected")
		return models.AnomalyReport{}, err
	}

	logger.Info().
		Str("provider", providerName).
		Str("risk_level", string(report.RiskLevel)).
		Int("flags", len(report.KeyFlags)).
		Msg("Anomaly report generated")
	return report, nil
}

func (a *Analyzer) buildPrompt(company string, financials []models.FinancialYear, metrics []models.CalculatedMetrics) (string, string, error) {
	pt, err := a.prompts.GetPrompt(prompt.PromptIDs.AnomalyReport)
	if err != nil {
		return "", "", err
	}
	dataContext, err := BuildDataContext(financials, metrics)
	if err != nil {
		return "", "", err
	}

	ctx := prompt.NewContext().
		Set("YearCount", len(financials)).
		Set("DataContext", dataContext)
	if company != "" {
		ctx.Set("Company", company)
	}
	userPrompt, err := prompt.RenderUserPrompt(pt, ctx)
	if err != nil {
		return "", "", err
	}
	return userPrompt, pt.SystemPrompt, nil
}

type dataContext struct {
	Financials     []models.FinancialYear     `json:"financials"`
	DerivedMetrics []models.CalculatedMetrics `json:"derivedMetrics"`
}

// BuildDataContext serializes both sequences as indented JSON for the prompt.
func BuildDataContext(financials []models.FinancialYear, metrics []models.CalculatedMetrics) (string, error) {
	dc := dataContext{Financials: financials, DerivedMetrics: metrics}
	if dc.Financials == nil {
		dc.Financials = []models.FinancialYear{}
	}
	if dc.DerivedMetrics == nil {
		dc.DerivedMetrics = []models.CalculatedMetrics{}
	}
	out, err := json.MarshalIndent(dc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// AnomalySchema is the three-field response contract sent to providers.
func AnomalySchema() *llm.Schema {
	levels := make([]string, len(models.RiskLevels))
	for i, l := range models.RiskLevels {
		levels[i] = string(l)
	}
	return &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"analysis": {
				Type:        llm.TypeString,
				Description: "Detailed markdown formatted analysis of financial health and anomalies.",
			},
			"riskLevel": {
				Type: llm.TypeString,
				Enum: levels,
			},
			"keyFlags": {
				Type:        llm.TypeArray,
				Description: "List of short bullet points highlighting specific red flags.",
				Items:       &llm.Schema{Type: llm.TypeString},
			},
		},
		Required: []string{"analysis", "riskLevel", "keyFlags"},
	}
}

// ParseReport validates a raw provider response against the three-field contract.
// JSON syntax slips (fences, trailing commas) are repaired; missing, extra or
// mistyped fields are not.
func ParseReport(providerName, raw string) (models.AnomalyReport, error) {
	if strings.TrimSpace(raw) == "" {
		return models.AnomalyReport{}, apperrors.NewAnalysisError(providerName, apperrors.StageEmpty, apperrors.ErrEmptyAnalysis)
	}

	var fields map[string]json.RawMessage
	if err := utils.DecodeJSON(raw, &fields); err != nil {
		return models.AnomalyReport{}, apperrors.NewAnalysisError(providerName, apperrors.StageParse, err)
	}
	if fields == nil {
		return models.AnomalyReport{}, schemaError(providerName, "response is not an object")
	}

	for key := range fields {
		switch key {
		case "analysis", "riskLevel", "keyFlags":
		default:
			return models.AnomalyReport{}, schemaError(providerName, fmt.Sprintf("unexpected field %q", key))
		}
	}

	var report models.AnomalyReport

	var narrative string
	if err := decodeField(fields, "analysis", &narrative); err != nil {
		return models.AnomalyReport{}, schemaError(providerName, err.Error())
	}
	if strings.TrimSpace(narrative) == "" {
		return models.AnomalyReport{}, schemaError(providerName, "analysis is empty")
	}
	report.Analysis = narrative

	var level string
	if err := decodeField(fields, "riskLevel", &level); err != nil {
		return models.AnomalyReport{}, schemaError(providerName, err.Error())
	}
	report.RiskLevel = models.RiskLevel(strings.ToUpper(strings.TrimSpace(level)))
	if !report.RiskLevel.Valid() {
		return models.AnomalyReport{}, schemaError(providerName, fmt.Sprintf("unknown riskLevel %q", level))
	}

	var flags []string
	if err := decodeField(fields, "keyFlags", &flags); err != nil {
		return models.AnomalyReport{}, schemaError(providerName, err.Error())
	}
	if flags == nil {
		return models.AnomalyReport{}, schemaError(providerName, "keyFlags is null")
	}
	report.KeyFlags = make([]string, 0, len(flags))
	for _, f := range flags {
		if f = strings.TrimSpace(f); f != "" {
			report.KeyFlags = append(report.KeyFlags, f)
		}
	}

	return report, nil
}

func decodeField(fields map[string]json.RawMessage, key string, dst interface{}) error {
	raw, ok := fields[key]
	if !ok {
		return fmt.Errorf("missing field %q", key)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %q: %v", key, err)
	}
	return nil
}

func schemaError(providerName, detail string) error {
	return apperrors.NewAnalysisError(providerName, apperrors.StageSchema, fmt.Errorf("%w: %s", apperrors.ErrSchemaViolation, detail))
}
