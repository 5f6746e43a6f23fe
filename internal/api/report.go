package api

import (
	"fmt"
	"strings"
	"time"

	"icsguard/internal/model"
)

// RenderReport formats one aggregated result as a plain-text incident
// summary for operators who are not reading the JSON feed.
func RenderReport(res *model.AggregatedResult) string {
	var b strings.Builder
	line := strings.Repeat("=", 60)

	fmt.Fprintln(&b, line)
	fmt.Fprintln(&b, "ICS SECURITY ASSESSMENT REPORT")
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "Report ID:   %s\n", res.ID)
	fmt.Fprintf(&b, "Generated:   %s\n", res.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Batch Size:  %d\n", res.BatchSize)
	fmt.Fprintf(&b, "State:       %s\n", res.State)
	if res.FailedStage != "" {
		fmt.Fprintf(&b, "Failed At:   %s\n", res.FailedStage)
	}

	if d := res.Detection; d != nil {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "ANOMALY DETECTION")
		fmt.Fprintf(&b, "  Anomalies:        %d / %d (%.1f%%)\n", d.NumAnomalies, res.BatchSize, d.AnomalyRate*100)
		fmt.Fprintf(&b, "  Mean Confidence:  %.3f\n", d.MeanConfidence)
		fmt.Fprintf(&b, "  Max Attack Prob:  %.3f\n", d.MaxAttackProb)
	}

	if c := res.Cyber; c != nil {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "CYBER RISK")
		fmt.Fprintf(&b, "  Score:      %.3f (%s)\n", c.Score, strings.ToUpper(string(c.Level)))
		fmt.Fprintf(&b, "  Signature:  %s\n", c.AttackSignature)
		fmt.Fprintf(&b, "  Temporal:   %.3f\n", c.TemporalRisk)
		fmt.Fprintf(&b, "  Assessment: %s\n", c.ThreatAssessment)
	}

	if o := res.Operational; o != nil {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "OPERATIONAL RISK")
		fmt.Fprintf(&b, "  Score:      %.3f (%s)\n", o.Score, strings.ToUpper(string(o.Level)))
		fmt.Fprintf(&b, "  Likelihood: %s, Impact: %s\n", o.Likelihood, o.Impact)
		fmt.Fprintf(&b, "  Downtime:   ~%d minutes, degradation %.0f%%\n", o.DowntimeMinutes, o.DegradationPct)
		fmt.Fprintf(&b, "  Safety:     %s\n", o.SafetyImpact)
		if len(o.AffectedSystems) > 0 {
			fmt.Fprintf(&b, "  Systems:    %s\n", strings.Join(o.AffectedSystems, ", "))
		}
	}

	if dec := res.Decision; dec != nil {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "DECISION")
		fmt.Fprintf(&b, "  Primary Threat:  %s\n", dec.PrimaryThreat)
		fmt.Fprintf(&b, "  Timeline:        %s\n", dec.ResponseTimeline)
		fmt.Fprintf(&b, "  Human Approval:  %t\n", dec.RequiresApproval)
		fmt.Fprintf(&b, "  Rationale:       %s\n", dec.Rationale)
		writeActions(&b, "Immediate", dec.Actions.Immediate)
		writeActions(&b, "Short Term", dec.Actions.ShortTerm)
		writeActions(&b, "Ongoing", dec.Actions.Ongoing)
		if len(dec.EmergencyContacts) > 0 {
			fmt.Fprintf(&b, "  Contacts:        %s\n", strings.Join(dec.EmergencyContacts, ", "))
		}
	}

	if m := res.Metrics; m != nil {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "DETECTION METRICS (labeled batch)")
		fmt.Fprintf(&b, "  Accuracy: %.3f  Precision: %.3f  Recall: %.3f  F1: %.3f\n", m.Accuracy, m.Precision, m.Recall, m.F1)
	}

	if len(res.StageRisks) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "PROCESS STAGE ATTRIBUTION")
		for _, sr := range res.StageRisks {
			fmt.Fprintf(&b, "  %-4s %3d anomalies (%.0f%%)\n", sr.Stage, sr.AnomalyCount, sr.Share*100)
		}
	}

	fmt.Fprintln(&b, line)
	return b.String()
}

func writeActions(b *strings.Builder, heading string, actions []string) {
	if len(actions) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s:\n", heading)
	for _, a := range actions {
		fmt.Fprintf(b, "    - %s\n", a)
	}
}
