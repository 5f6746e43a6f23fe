package pipeline

import (
	"fmt"

	"icsguard/internal/model"
)

// Decider turns the two risk assessments into a remediation plan.
type Decider interface {
	Decide(cyber model.CyberRiskAssessment, op model.OperationalRiskAssessment) (model.Decision, error)
}

// Both scores at or above this mark an elevated combined threat.
const combinedThreshold = 0.50

// One score must exceed the other by this margin to dominate.
const dominanceMargin = 0.10

// DecisionEngine assembles the remediation plan from the immutable action
// library. Deterministic given its two inputs.
type DecisionEngine struct {
	lib *actionLibrary
}

func NewDecisionEngine() *DecisionEngine {
	return &DecisionEngine{lib: defaultActionLibrary()}
}

func (d *DecisionEngine) Decide(cyber model.CyberRiskAssessment, op model.OperationalRiskAssessment) (model.Decision, error) {
	primary := primaryThreat(cyber.Score, op.Score)
	severity := maxLevel(cyber.Level, op.Level)

	actions := d.lib.lookup(primary, severity)
	plan := partitionActions(actions)

	approval := cyber.Level == model.RiskCritical ||
		op.Level == model.RiskCritical ||
		primary == ThreatCombined

	return model.Decision{
		PrimaryThreat:     primary,
		ResponseTimeline:  responseTimeline(severity),
		RequiresApproval:  approval,
		Actions:           plan,
		SubsystemActions:  d.lib.subsystemActions(op.AffectedSystems),
		EmergencyContacts: emergencyContacts(severity),
		Rationale:         rationale(primary, cyber, op),
	}, nil
}

// primaryThreat labels the dominant threat. Both scores elevated means a
// combined cyber-physical threat; otherwise one must materially exceed
// the other to claim the label, and a near-tie falls to the larger score.
func primaryThreat(cyberScore, opScore float64) string {
	if cyberScore >= combinedThreshold && opScore >= combinedThreshold {
		return ThreatCombined
	}
	switch {
	case cyberScore >= opScore+dominanceMargin:
		return ThreatCyber
	case opScore >= cyberScore+dominanceMargin:
		return ThreatOperational
	case cyberScore > opScore:
		return ThreatCyber
	default:
		return ThreatOperational
	}
}

func maxLevel(a, b model.RiskLevel) model.RiskLevel {
	if a.Rank() >= b.Rank() {
		return a
	}
	return b
}

func partitionActions(actions []action) model.ActionPlan {
	plan := model.ActionPlan{
		Immediate: []string{},
		ShortTerm: []string{},
		Ongoing:   []string{},
	}
	for _, a := range actions {
		switch a.priority {
		case priorityImmediate:
			plan.Immediate = append(plan.Immediate, a.text)
		case priorityShortTerm:
			plan.ShortTerm = append(plan.ShortTerm, a.text)
		default:
			plan.Ongoing = append(plan.Ongoing, a.text)
		}
	}
	return plan
}

func responseTimeline(severity model.RiskLevel) string {
	switch severity {
	case model.RiskCritical:
		return "IMMEDIATE (0-5 minutes)"
	case model.RiskHigh:
		return "URGENT (5-15 minutes)"
	case model.RiskMedium:
		return "PRIORITY (15-60 minutes)"
	default:
		return "STANDARD (1-24 hours)"
	}
}

func rationale(primary string, cyber model.CyberRiskAssessment, op model.OperationalRiskAssessment) string {
	r := fmt.Sprintf("Decision based on %s (cyber %.2f, operational %.2f). ", primary, cyber.Score, op.Score)
	if cyber.Level.Rank() >= model.RiskHigh.Rank() {
		r += fmt.Sprintf("Cyber threat detected: %s. ", cyber.AttackSignature)
	}
	if op.Level.Rank() >= model.RiskHigh.Rank() {
		r += fmt.Sprintf("Operational impact: %.1f%% degradation. ", op.DegradationPct)
	}
	r += fmt.Sprintf("Estimated recovery: %d minutes.", op.DowntimeMinutes)
	return r
}
