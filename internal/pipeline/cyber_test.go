package pipeline

import (
	"math"
	"testing"

	"icsguard/internal/model"
)

func detection(preds []int, attackProb []float64) model.DetectionResult {
	res := model.DetectionResult{
		Predictions: preds,
		AttackProb:  attackProb,
		Confidence:  make([]float64, len(preds)),
	}
	var sum, max float64
	for i, p := range preds {
		if p == 1 {
			res.NumAnomalies++
		}
		sum += attackProb[i]
		if attackProb[i] > max {
			max = attackProb[i]
		}
	}
	if len(preds) > 0 {
		res.AnomalyRate = float64(res.NumAnomalies) / float64(len(preds))
		res.MeanAttackProb = sum / float64(len(preds))
	}
	res.MaxAttackProb = max
	return res
}

func uniform(n int, pred int, prob float64) model.DetectionResult {
	preds := make([]int, n)
	probs := make([]float64, n)
	for i := range preds {
		preds[i] = pred
		probs[i] = prob
	}
	return detection(preds, probs)
}

func TestCyberAllAttackIsCritical(t *testing.T) {
	a := NewCyberRisk(NewRateHistory(10))
	got, err := a.Assess(uniform(20, 1, 0.99))
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if got.Level != model.RiskCritical {
		t.Fatalf("level = %s, want critical (score %v)", got.Level, got.Score)
	}
	if got.TemporalRisk != 1 {
		t.Fatalf("temporal = %v, want 1 for a single saturated window", got.TemporalRisk)
	}
	if got.AttackSignature != SignaturePersistent {
		t.Fatalf("signature = %q", got.AttackSignature)
	}
}

func TestCyberAllNormalIsLow(t *testing.T) {
	a := NewCyberRisk(NewRateHistory(10))
	got, err := a.Assess(uniform(20, 0, 0.01))
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if got.Level != model.RiskLow {
		t.Fatalf("level = %s, want low", got.Level)
	}
	if got.Score != 0 {
		t.Fatalf("score = %v, want 0", got.Score)
	}
	if got.AttackSignature != SignatureNormal {
		t.Fatalf("signature = %q", got.AttackSignature)
	}
}

func TestCyberSpikeAfterQuietStretch(t *testing.T) {
	a := NewCyberRisk(NewRateHistory(10))
	for i := 0; i < 9; i++ {
		if _, err := a.Assess(uniform(20, 0, 0.01)); err != nil {
			t.Fatalf("assess: %v", err)
		}
	}
	got, err := a.Assess(uniform(20, 1, 0.99))
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	// one spike in an otherwise quiet window contributes no temporal risk
	if got.TemporalRisk != 0 {
		t.Fatalf("temporal = %v, want 0", got.TemporalRisk)
	}
	if got.Level == model.RiskCritical {
		t.Fatalf("an isolated spike must not score critical (score %v)", got.Score)
	}
}

func TestCyberScoreMonotonicInRate(t *testing.T) {
	var prev float64
	for i, n := range []int{0, 5, 10, 15, 20} {
		a := NewCyberRisk(NewRateHistory(10))
		preds := make([]int, 20)
		probs := make([]float64, 20)
		for j := 0; j < n; j++ {
			preds[j] = 1
			probs[j] = 0.9
		}
		got, err := a.Assess(detection(preds, probs))
		if err != nil {
			t.Fatalf("assess: %v", err)
		}
		if i > 0 && got.Score < prev {
			t.Fatalf("score decreased: %v after %v at %d anomalies", got.Score, prev, n)
		}
		prev = got.Score
	}
}

func TestCyberScoreBounds(t *testing.T) {
	a := NewCyberRisk(NewRateHistory(10))
	got, _ := a.Assess(uniform(10, 1, 1.0))
	if got.Score < 0 || got.Score > 1 {
		t.Fatalf("score out of bounds: %v", got.Score)
	}
}

func TestIdentifySignature(t *testing.T) {
	cases := []struct {
		rate, avg, temporal float64
		want                string
	}{
		{0.9, 0.9, 0.8, SignaturePersistent},
		{0.6, 0.5, 0.1, SignatureIntermittent},
		{0.05, 0.95, 0, SignatureTargeted},
		{0.2, 0.5, 0, SignatureSporadic},
		{0.05, 0.2, 0, SignatureNormal},
	}
	for _, c := range cases {
		if got := identifySignature(c.rate, c.avg, c.temporal); got != c.want {
			t.Fatalf("identifySignature(%v, %v, %v) = %q, want %q", c.rate, c.avg, c.temporal, got, c.want)
		}
	}
}

func TestTemporalRisk(t *testing.T) {
	if got := temporalRisk(nil); got != 0 {
		t.Fatalf("empty window = %v", got)
	}
	if got := temporalRisk([]float64{1, 1, 1}); got != 1 {
		t.Fatalf("sustained window = %v, want 1", got)
	}
	spike := temporalRisk([]float64{0, 0, 0, 0, 1})
	if spike > 0.01 {
		t.Fatalf("spiky window = %v, want near 0", spike)
	}
}

func TestClassifyLevelThresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  model.RiskLevel
	}{
		{0, model.RiskLow},
		{0.24, model.RiskLow},
		{0.25, model.RiskMedium},
		{0.49, model.RiskMedium},
		{0.50, model.RiskHigh},
		{0.74, model.RiskHigh},
		{0.75, model.RiskCritical},
		{1, model.RiskCritical},
	}
	for _, c := range cases {
		if got := classifyLevel(c.score); got != c.want {
			t.Fatalf("classifyLevel(%v) = %s, want %s", c.score, got, c.want)
		}
	}
}

func TestRateHistoryBounded(t *testing.T) {
	h := NewRateHistory(3)
	for i := 0; i < 5; i++ {
		h.Add(float64(i))
	}
	got := h.Snapshot()
	if len(got) != 3 {
		t.Fatalf("window length = %d, want 3", len(got))
	}
	if math.Abs(got[0]-2) > 1e-12 || math.Abs(got[2]-4) > 1e-12 {
		t.Fatalf("window = %v, want [2 3 4]", got)
	}
	h.Reset()
	if len(h.Snapshot()) != 0 {
		t.Fatalf("reset did not clear history")
	}
}
