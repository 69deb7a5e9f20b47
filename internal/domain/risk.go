package domain

// riskDeduction is one row of the questionnaire scoring table.
type riskDeduction struct {
	Key    string
	Answer string
	Points int
}

// riskDeductions is the fixed scoring table. Keys, answers and points are a
// stable contract with stored questionnaire responses.
var riskDeductions = []riskDeduction{
	{Key: "iso_certified", Answer: "No", Points: 15},
	{Key: "security_policy", Answer: "No", Points: 10},
	{Key: "incident_response", Answer: "No", Points: 10},
	{Key: "encryption", Answer: "No", Points: 15},
	{Key: "privacy_policy", Answer: "No", Points: 10},
	{Key: "gdpr_compliance", Answer: "No", Points: 10},
	{Key: "bc_plan", Answer: "No", Points: 15},
	{Key: "backup_frequency", Answer: "No regular backups", Points: 15},
}

const maxRiskScore = 100

// ComputeRiskScore scores questionnaire responses from 100 down, one
// deduction per exact answer match, floored at 0. Missing keys never deduct.
func ComputeRiskScore(responses map[string]string) int {
	score := maxRiskScore
	for _, d := range riskDeductions {
		if answer, ok := responses[d.Key]; ok && answer == d.Answer {
			score -= d.Points
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

// RiskFinding names a questionnaire answer that reduced the score.
type RiskFinding struct {
	Key    string `json:"key"`
	Answer string `json:"answer"`
	Points int    `json:"points"`
}

// ExplainRiskScore lists the deductions ComputeRiskScore applied, in table order.
func ExplainRiskScore(responses map[string]string) []RiskFinding {
	var out []RiskFinding
	for _, d := range riskDeductions {
		if responses[d.Key] == d.Answer {
			out = append(out, RiskFinding{Key: d.Key, Answer: d.Answer, Points: d.Points})
		}
	}
	return out
}

// RiskBand is a coarse label for a risk score.
type RiskBand string

const (
	RiskBandLow      RiskBand = "low"
	RiskBandMedium   RiskBand = "medium"
	RiskBandHigh     RiskBand = "high"
	RiskBandCritical RiskBand = "critical"
)

// BandFor maps a score to its band. Higher scores mean lower risk.
func BandFor(score int) RiskBand {
	switch {
	case score >= 80:
		return RiskBandLow
	case score >= 60:
		return RiskBandMedium
	case score >= 40:
		return RiskBandHigh
	default:
		return RiskBandCritical
	}
}
