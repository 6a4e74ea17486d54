package prompt

// PromptIDs contains all known prompt identifiers
var PromptIDs = struct {
	AnomalyReport string
}{
	AnomalyReport: "analysis.anomaly_report",
}

// builtins returns the compiled-in prompt set.
func builtins() []*PromptTemplate {
	return []*PromptTemplate{
		{
			ID:           PromptIDs.AnomalyReport,
			Name:         "Financial Anomaly Report",
			Category:     "analysis",
			Description:  "Senior auditor review of five years of statements and derived ratios.",
			SystemPrompt: "You are a concise, professional financial analyst. Use markdown for formatting.",
			UserPromptTmpl: `You are an expert Senior Financial Auditor and Analyst Agent.
Analyze the provided {{.YearCount}}-year financial JSON data for {{.Company}}.

Your tasks:
1. Identify structural shifts in profitability (EBITDA, PAT margins).
2. Analyze working capital efficiency (DSO, Inventory, Payables).
3. Flag specific anomalies (e.g., Revenue rising but OCF falling).
4. Provide a risk assessment (Low, Medium, High, Critical).

Data:
{{.DataContext}}
`,
			Variables: []PromptVariable{
				{Name: "YearCount", Type: "int", Description: "Number of fiscal years supplied", Required: true},
				{Name: "Company", Type: "string", Description: "Ticker or company label", Default: "a company"},
				{Name: "DataContext", Type: "object", Description: "Indented JSON of financials and derivedMetrics", Required: true},
			},
			Version: "1.0",
		},
	}
}
