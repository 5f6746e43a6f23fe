package pipeline

import "icsguard/internal/model"

// Primary-threat labels.
const (
	ThreatCyber       = "Cyber Attack"
	ThreatOperational = "Operational Fault"
	ThreatCombined    = "Combined Cyber-Physical Threat"
)

type actionPriority int

const (
	priorityImmediate actionPriority = iota
	priorityShortTerm
	priorityOngoing
)

type action struct {
	text     string
	priority actionPriority
}

// actionLibrary is the immutable remediation catalog, keyed by primary
// threat and severity. Each action carries a fixed priority tag that
// decides its bucket in the final plan. Loaded at construction so the
// rule tables are testable on their own.
type actionLibrary struct {
	cyber       map[model.RiskLevel][]action
	operational map[model.RiskLevel][]action
	subsystem   map[string][]string
}

func defaultActionLibrary() *actionLibrary {
	sharedMedium := []action{
		{"Continue enhanced monitoring", priorityShortTerm},
		{"Notify maintenance team", priorityShortTerm},
		{"Log anomalies for analysis", priorityOngoing},
		{"Schedule system inspection", priorityOngoing},
	}
	sharedLow := []action{
		{"Standard monitoring protocols", priorityOngoing},
		{"Document anomaly in system logs", priorityOngoing},
	}
	return &actionLibrary{
		cyber: map[model.RiskLevel][]action{
			model.RiskCritical: {
				{"Isolate affected network segments", priorityImmediate},
				{"Activate incident response team", priorityImmediate},
				{"Switch to backup control system", priorityImmediate},
				{"Initiate emergency shutdown protocol", priorityShortTerm},
				{"Preserve logs for forensic analysis", priorityOngoing},
			},
			model.RiskHigh: {
				{"Increase monitoring frequency", priorityImmediate},
				{"Restrict remote access", priorityImmediate},
				{"Verify actuator commands", priorityShortTerm},
				{"Alert security operations center", priorityShortTerm},
			},
			model.RiskMedium: sharedMedium,
			model.RiskLow:    sharedLow,
		},
		operational: map[model.RiskLevel][]action{
			model.RiskCritical: {
				{"Emergency shutdown of affected stages", priorityImmediate},
				{"Activate backup water supply", priorityImmediate},
				{"Notify emergency response team", priorityImmediate},
				{"Implement manual override controls", priorityShortTerm},
				{"Evacuate non-essential personnel", priorityShortTerm},
			},
			model.RiskHigh: {
				{"Reduce process throughput", priorityImmediate},
				{"Activate redundant systems", priorityShortTerm},
				{"Increase operator supervision", priorityShortTerm},
				{"Prepare for manual intervention", priorityOngoing},
			},
			model.RiskMedium: sharedMedium,
			model.RiskLow:    sharedLow,
		},
		subsystem: map[string][]string{
			"Primary Treatment":   {"Isolate chemical dosing", "Stop dosing pumps"},
			"Control System":      {"Switch to manual control mode"},
			"Distribution System": {"Close distribution valves", "Activate storage tanks"},
			"Safety Systems":      {"Activate emergency safety protocols"},
		},
	}
}

// lookup returns the deduplicated action list for a threat and severity.
// A combined threat merges the cyber and operational lists.
func (l *actionLibrary) lookup(threat string, severity model.RiskLevel) []action {
	var lists [][]action
	switch threat {
	case ThreatCyber:
		lists = append(lists, l.cyber[severity])
	case ThreatOperational:
		lists = append(lists, l.operational[severity])
	default:
		lists = append(lists, l.cyber[severity], l.operational[severity])
	}
	seen := make(map[string]bool)
	var out []action
	for _, list := range lists {
		for _, a := range list {
			if seen[a.text] {
				continue
			}
			seen[a.text] = true
			out = append(out, a)
		}
	}
	return out
}

func (l *actionLibrary) subsystemActions(affected []string) []string {
	var out []string
	for _, sys := range affected {
		out = append(out, l.subsystem[sys]...)
	}
	return out
}

// emergencyContacts gates the fixed role list by severity: the plant
// manager is always notified, the security team from high, the safety
// officer at critical.
func emergencyContacts(severity model.RiskLevel) []string {
	contacts := []string{"Plant Manager"}
	if severity.Rank() >= model.RiskHigh.Rank() {
		contacts = append(contacts, "Security Team")
	}
	if severity == model.RiskCritical {
		contacts = append(contacts, "Safety Officer")
	}
	return contacts
}
