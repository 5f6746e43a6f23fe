package model

import "time"

type Label int

const (
	LabelNormal Label = 0
	LabelAttack Label = 1
)

// SensorBatch is one window of raw sensor rows. Columns gives the batch's
// column order; every row must have exactly len(Columns) readings. Labels
// is nil for unlabeled data, otherwise one ground-truth label per row.
type SensorBatch struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
	Labels  []Label     `json:"labels,omitempty"`
}

func (b SensorBatch) Size() int { return len(b.Rows) }

// NormalizedBatch is the model-ready matrix produced by the feature
// normalizer. Row count always equals the source batch's row count.
type NormalizedBatch struct {
	Rows [][]float64 `json:"-"`
}

type DetectionResult struct {
	Predictions    []int     `json:"predictions"`
	Confidence     []float64 `json:"confidence"`
	AttackProb     []float64 `json:"attack_probability"`
	NumAnomalies   int       `json:"num_anomalies"`
	AnomalyRate    float64   `json:"anomaly_rate"`
	MeanConfidence float64   `json:"mean_confidence"`
	MeanAttackProb float64   `json:"mean_attack_probability"`
	MaxAttackProb  float64   `json:"max_attack_probability"`
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Rank orders risk levels for comparisons: low=1 .. critical=4.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	}
	return 0
}

type CyberRiskAssessment struct {
	Score            float64   `json:"score"`
	Level            RiskLevel `json:"level"`
	AvgAttackProb    float64   `json:"avg_attack_probability"`
	MaxAttackProb    float64   `json:"max_attack_probability"`
	AnomalyCount     int       `json:"anomaly_count"`
	AnomalyRate      float64   `json:"anomaly_rate"`
	TemporalRisk     float64   `json:"temporal_risk"`
	AttackSignature  string    `json:"attack_signature"`
	ThreatAssessment string    `json:"threat_assessment"`
}

type OperationalRiskAssessment struct {
	Score           float64   `json:"score"`
	Level           RiskLevel `json:"level"`
	Likelihood      string    `json:"likelihood"`
	Impact          string    `json:"impact"`
	AffectedSystems []string  `json:"affected_systems"`
	DowntimeMinutes int       `json:"estimated_downtime_minutes"`
	DegradationPct  float64   `json:"performance_degradation_pct"`
	SafetyImpact    string    `json:"safety_impact"`
}

type ActionPlan struct {
	Immediate []string `json:"immediate"`
	ShortTerm []string `json:"short_term"`
	Ongoing   []string `json:"ongoing"`
}

type Decision struct {
	PrimaryThreat     string     `json:"primary_threat"`
	ResponseTimeline  string     `json:"response_timeline"`
	RequiresApproval  bool       `json:"requires_human_approval"`
	Actions           ActionPlan `json:"action_priority"`
	SubsystemActions  []string   `json:"subsystem_actions"`
	EmergencyContacts []string   `json:"emergency_contacts"`
	Rationale         string     `json:"rationale"`
}

type PipelineState string

const (
	StateReady      PipelineState = "READY"
	StateProcessing PipelineState = "PROCESSING"
	StateCompleted  PipelineState = "COMPLETED"
	StateError      PipelineState = "ERROR"
)

// BatchMetrics compares predictions against ground-truth labels when the
// submitted batch carried them.
type BatchMetrics struct {
	Accuracy    float64 `json:"accuracy"`
	Precision   float64 `json:"precision"`
	Recall      float64 `json:"recall"`
	F1          float64 `json:"f1_score"`
	TrueAttacks int     `json:"true_attacks"`
	TrueNormal  int     `json:"true_normal"`
}

// StageRisk attributes anomalous rows to a physical process stage by the
// sensor that deviated most in each row.
type StageRisk struct {
	Stage        string  `json:"stage"`
	AnomalyCount int     `json:"anomaly_count"`
	Share        float64 `json:"share"`
}

// AggregatedResult is the per-batch output of the full pipeline. On a
// downstream stage failure the earlier sections are still populated and
// FailedStage names the stage that did not run to completion.
type AggregatedResult struct {
	ID          string                     `json:"id"`
	Timestamp   time.Time                  `json:"timestamp"`
	BatchSize   int                        `json:"batch_size"`
	State       PipelineState              `json:"state"`
	FailedStage string                     `json:"failed_stage,omitempty"`
	Detection   *DetectionResult           `json:"detection,omitempty"`
	Cyber       *CyberRiskAssessment       `json:"cyber_risk,omitempty"`
	Operational *OperationalRiskAssessment `json:"operational_risk,omitempty"`
	Decision    *Decision                  `json:"decision,omitempty"`
	Metrics     *BatchMetrics              `json:"metrics,omitempty"`
	StageRisks  []StageRisk                `json:"stage_risks,omitempty"`
}
