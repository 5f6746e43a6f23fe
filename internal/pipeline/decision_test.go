package pipeline

import (
	"strings"
	"testing"

	"icsguard/internal/model"
)

func cyberAssessment(score float64) model.CyberRiskAssessment {
	return model.CyberRiskAssessment{
		Score:           score,
		Level:           classifyLevel(score),
		AttackSignature: SignatureSporadic,
	}
}

func opAssessment(score float64) model.OperationalRiskAssessment {
	return model.OperationalRiskAssessment{
		Score:           score,
		Level:           classifyLevel(score),
		AffectedSystems: []string{"Primary Treatment"},
		DowntimeMinutes: 15,
	}
}

func TestDecideQuietBatchNeedsNoApproval(t *testing.T) {
	d := NewDecisionEngine()
	got, err := d.Decide(cyberAssessment(0.1), opAssessment(0.1))
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if got.RequiresApproval {
		t.Fatalf("low/low must not require approval")
	}
	if got.ResponseTimeline != "STANDARD (1-24 hours)" {
		t.Fatalf("timeline = %q", got.ResponseTimeline)
	}
	if len(got.EmergencyContacts) != 1 || got.EmergencyContacts[0] != "Plant Manager" {
		t.Fatalf("contacts = %v", got.EmergencyContacts)
	}
}

func TestDecideCombinedThreat(t *testing.T) {
	d := NewDecisionEngine()
	got, err := d.Decide(cyberAssessment(0.8), opAssessment(0.9))
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if got.PrimaryThreat != ThreatCombined {
		t.Fatalf("primary = %q, want combined", got.PrimaryThreat)
	}
	if !got.RequiresApproval {
		t.Fatalf("combined threat must require approval")
	}
	if got.ResponseTimeline != "IMMEDIATE (0-5 minutes)" {
		t.Fatalf("timeline = %q", got.ResponseTimeline)
	}
	want := []string{"Plant Manager", "Security Team", "Safety Officer"}
	if len(got.EmergencyContacts) != 3 {
		t.Fatalf("contacts = %v, want %v", got.EmergencyContacts, want)
	}
}

func TestDecideCriticalSingleAxisNeedsApproval(t *testing.T) {
	d := NewDecisionEngine()
	got, _ := d.Decide(cyberAssessment(0.8), opAssessment(0.1))
	if !got.RequiresApproval {
		t.Fatalf("critical cyber level must require approval")
	}
	if got.PrimaryThreat != ThreatCyber {
		t.Fatalf("primary = %q, want cyber", got.PrimaryThreat)
	}
}

func TestPrimaryThreatSelection(t *testing.T) {
	cases := []struct {
		cyber, op float64
		want      string
	}{
		{0.6, 0.3, ThreatCyber},
		{0.2, 0.45, ThreatOperational},
		{0.6, 0.55, ThreatCombined},
		{0.40, 0.35, ThreatCyber},       // near-tie, larger wins
		{0.35, 0.40, ThreatOperational}, // near-tie, larger wins
		{0.30, 0.30, ThreatOperational}, // exact tie
	}
	for _, c := range cases {
		if got := primaryThreat(c.cyber, c.op); got != c.want {
			t.Fatalf("primaryThreat(%v, %v) = %q, want %q", c.cyber, c.op, got, c.want)
		}
	}
}

func TestDecideActionPartition(t *testing.T) {
	d := NewDecisionEngine()
	got, _ := d.Decide(cyberAssessment(0.8), opAssessment(0.1))
	if len(got.Actions.Immediate) != 3 {
		t.Fatalf("immediate actions = %v", got.Actions.Immediate)
	}
	if len(got.Actions.ShortTerm) != 1 || len(got.Actions.Ongoing) != 1 {
		t.Fatalf("short/ongoing = %v / %v", got.Actions.ShortTerm, got.Actions.Ongoing)
	}
}

func TestDecideEmptyBucketsAreNotNil(t *testing.T) {
	d := NewDecisionEngine()
	got, _ := d.Decide(cyberAssessment(0.1), opAssessment(0.05))
	if got.Actions.Immediate == nil || got.Actions.ShortTerm == nil || got.Actions.Ongoing == nil {
		t.Fatalf("empty buckets must serialize as [], not null")
	}
}

func TestDecideCombinedMergesAndDedupes(t *testing.T) {
	d := NewDecisionEngine()
	// medium severity shares the same list on both axes; the combined
	// merge must not duplicate entries
	got, _ := d.Decide(
		model.CyberRiskAssessment{Score: 0.55, Level: model.RiskMedium},
		model.OperationalRiskAssessment{Score: 0.55, Level: model.RiskMedium},
	)
	if got.PrimaryThreat != ThreatCombined {
		t.Fatalf("primary = %q", got.PrimaryThreat)
	}
	total := len(got.Actions.Immediate) + len(got.Actions.ShortTerm) + len(got.Actions.Ongoing)
	if total != 4 {
		t.Fatalf("merged action count = %d, want 4 deduplicated", total)
	}
}

func TestDecideSubsystemActions(t *testing.T) {
	d := NewDecisionEngine()
	op := opAssessment(0.1)
	op.AffectedSystems = []string{"Primary Treatment", "Control System"}
	got, _ := d.Decide(cyberAssessment(0.1), op)
	if len(got.SubsystemActions) != 3 {
		t.Fatalf("subsystem actions = %v", got.SubsystemActions)
	}
}

func TestDecideRationaleMentionsScores(t *testing.T) {
	d := NewDecisionEngine()
	got, _ := d.Decide(cyberAssessment(0.8), opAssessment(0.2))
	if !strings.Contains(got.Rationale, "0.80") || !strings.Contains(got.Rationale, "0.20") {
		t.Fatalf("rationale = %q", got.Rationale)
	}
}

func TestResponseTimelines(t *testing.T) {
	cases := map[model.RiskLevel]string{
		model.RiskLow:      "STANDARD (1-24 hours)",
		model.RiskMedium:   "PRIORITY (15-60 minutes)",
		model.RiskHigh:     "URGENT (5-15 minutes)",
		model.RiskCritical: "IMMEDIATE (0-5 minutes)",
	}
	for level, want := range cases {
		if got := responseTimeline(level); got != want {
			t.Fatalf("responseTimeline(%s) = %q, want %q", level, got, want)
		}
	}
}
