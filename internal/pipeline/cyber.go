package pipeline

import (
	"fmt"
	"math"

	"icsguard/internal/model"
)

// CyberAssessor converts detection output into a cyber-threat assessment.
type CyberAssessor interface {
	Assess(det model.DetectionResult) (model.CyberRiskAssessment, error)
}

// Attack-signature vocabulary.
const (
	SignatureNormal       = "Normal Operation"
	SignatureSporadic     = "Sporadic Anomalies"
	SignatureIntermittent = "Intermittent Attack"
	SignatureTargeted     = "Targeted Attack"
	SignaturePersistent   = "Persistent Attack"
)

// CyberRisk scores cyber threat as a weighted blend of attack probability,
// anomaly rate, and a temporal term over the rolling rate window:
//
//	score = 0.4*mean(attack prob over anomalous rows) + 0.3*rate + 0.3*temporal
//
// The window includes the current batch, so a single fully-anomalous batch
// still scores critical while an isolated spike after a quiet stretch
// yields a low temporal term.
type CyberRisk struct {
	history *RateHistory
}

func NewCyberRisk(history *RateHistory) *CyberRisk {
	if history == nil {
		history = NewRateHistory(0)
	}
	return &CyberRisk{history: history}
}

func (a *CyberRisk) Assess(det model.DetectionResult) (model.CyberRiskAssessment, error) {
	avgAnomalous := meanOverAnomalous(det)

	a.history.Add(det.AnomalyRate)
	window := a.history.Snapshot()
	temporal := temporalRisk(window)

	score := 0.4*avgAnomalous + 0.3*det.AnomalyRate + 0.3*temporal
	score = clamp01(score)

	level := classifyLevel(score)
	signature := identifySignature(det.AnomalyRate, avgAnomalous, temporal)

	return model.CyberRiskAssessment{
		Score:            score,
		Level:            level,
		AvgAttackProb:    det.MeanAttackProb,
		MaxAttackProb:    det.MaxAttackProb,
		AnomalyCount:     det.NumAnomalies,
		AnomalyRate:      det.AnomalyRate,
		TemporalRisk:     temporal,
		AttackSignature:  signature,
		ThreatAssessment: threatNarrative(level, signature),
	}, nil
}

func meanOverAnomalous(det model.DetectionResult) float64 {
	if det.NumAnomalies == 0 {
		return 0
	}
	var sum float64
	for i, pred := range det.Predictions {
		if pred == 1 {
			sum += det.AttackProb[i]
		}
	}
	return sum / float64(det.NumAnomalies)
}

// temporalRisk is mean minus standard deviation of the window rates:
// a sustained high rate (high mean, low spread) scores near 1, a single
// spike in an otherwise quiet window (low mean, high spread) scores
// near 0.
func temporalRisk(window []float64) float64 {
	if len(window) == 0 {
		return 0
	}
	var mean float64
	for _, r := range window {
		mean += r
	}
	mean /= float64(len(window))
	var variance float64
	for _, r := range window {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(window))
	return clamp01(mean - math.Sqrt(variance))
}

func identifySignature(rate, avgAnomalous, temporal float64) string {
	switch {
	case rate > 0.8 && temporal > 0.5:
		return SignaturePersistent
	case rate > 0.5:
		return SignatureIntermittent
	case avgAnomalous > 0.9:
		return SignatureTargeted
	case rate > 0.1:
		return SignatureSporadic
	default:
		return SignatureNormal
	}
}

func threatNarrative(level model.RiskLevel, signature string) string {
	switch level {
	case model.RiskLow:
		return fmt.Sprintf("Minimal cyber threat detected. %s.", signature)
	case model.RiskMedium:
		return fmt.Sprintf("Moderate cyber risk. %s. Monitor closely.", signature)
	case model.RiskHigh:
		return fmt.Sprintf("High cyber threat level! %s. Immediate attention required.", signature)
	case model.RiskCritical:
		return fmt.Sprintf("CRITICAL CYBER ATTACK! %s. Activate incident response!", signature)
	}
	return "Unknown threat level"
}

// classifyLevel maps a [0,1] score to a discrete level. Thresholds are
// 0.25/0.50/0.75, shared by the cyber and operational assessors.
func classifyLevel(score float64) model.RiskLevel {
	switch {
	case score < 0.25:
		return model.RiskLow
	case score < 0.50:
		return model.RiskMedium
	case score < 0.75:
		return model.RiskHigh
	default:
		return model.RiskCritical
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
