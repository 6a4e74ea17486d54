package models

// RiskLevel is the overall risk grade returned by the analysis service.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskLevels lists the accepted grades in ascending severity.
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}

// Valid reports whether r is one of the four accepted grades.
func (r RiskLevel) Valid() bool {
	for _, l := range RiskLevels {
		if r == l {
			return true
		}
	}
	return false
}

// AnomalyReport is the narrative audit produced by the analysis service.
type AnomalyReport struct {
	Analysis  string    `json:"analysis"`
	RiskLevel RiskLevel `json:"riskLevel"`
	KeyFlags  []string  `json:"keyFlags"`
}
