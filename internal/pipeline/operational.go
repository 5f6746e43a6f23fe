package pipeline

import "icsguard/internal/model"

// OperationalAssessor converts detection output into an operational-impact
// assessment.
type OperationalAssessor interface {
	Assess(det model.DetectionResult) (model.OperationalRiskAssessment, error)
}

// OperationalRisk scores operational impact with a likelihood x impact
// risk matrix: likelihood is binned from the anomaly rate, impact from the
// mean attack-probability magnitude, both into 4 bands; the product is
// normalized to [0,1]. Stateless and deterministic.
type OperationalRisk struct{}

func NewOperationalRisk() *OperationalRisk { return &OperationalRisk{} }

var bandNames = [4]string{"low", "moderate", "high", "severe"}

// Subsystems in escalation order; severity selects a prefix.
var subsystems = [4]string{
	"Primary Treatment",
	"Control System",
	"Distribution System",
	"Safety Systems",
}

func (a *OperationalRisk) Assess(det model.DetectionResult) (model.OperationalRiskAssessment, error) {
	likelihood := likelihoodBand(det.AnomalyRate)
	impact := impactBand(det.MeanAttackProb)

	score := float64(likelihood*impact) / 16.0
	level := classifyLevel(score)

	return model.OperationalRiskAssessment{
		Score:           score,
		Level:           level,
		Likelihood:      bandNames[likelihood-1],
		Impact:          bandNames[impact-1],
		AffectedSystems: affectedSystems(level),
		DowntimeMinutes: downtimeEstimate(level),
		DegradationPct:  score * 100,
		SafetyImpact:    safetyImpact(level),
	}, nil
}

func likelihoodBand(rate float64) int {
	switch {
	case rate < 0.1:
		return 1
	case rate < 0.3:
		return 2
	case rate < 0.7:
		return 3
	default:
		return 4
	}
}

func impactBand(meanAttackProb float64) int {
	switch {
	case meanAttackProb < 0.25:
		return 1
	case meanAttackProb < 0.5:
		return 2
	case meanAttackProb < 0.75:
		return 3
	default:
		return 4
	}
}

func affectedSystems(level model.RiskLevel) []string {
	n := level.Rank()
	out := make([]string, n)
	copy(out, subsystems[:n])
	return out
}

func downtimeEstimate(level model.RiskLevel) int {
	switch level {
	case model.RiskCritical:
		return 240
	case model.RiskHigh:
		return 120
	case model.RiskMedium:
		return 60
	default:
		return 15
	}
}

func safetyImpact(level model.RiskLevel) string {
	switch level {
	case model.RiskCritical:
		return "Severe - Immediate safety concerns"
	case model.RiskHigh:
		return "Moderate - Safety monitoring required"
	case model.RiskMedium:
		return "Minor - Standard safety protocols"
	default:
		return "Minimal - No safety concerns"
	}
}
