package pipeline

import (
	"fmt"

	"icsguard/internal/artifact"
	"icsguard/internal/model"
)

// Detector produces per-row anomaly labels and batch aggregates.
type Detector interface {
	Detect(nb model.NormalizedBatch) (model.DetectionResult, error)
}

// ForestClassifier wraps the fitted voting-forest artifact. Per row:
// confidence is the probability mass on the predicted class, attack
// probability the mass on the anomalous class; the two coincide when the
// predicted class is anomalous.
type ForestClassifier struct {
	forest *artifact.Forest
}

func NewForestClassifier(f *artifact.Forest) *ForestClassifier {
	return &ForestClassifier{forest: f}
}

func (c *ForestClassifier) Detect(nb model.NormalizedBatch) (model.DetectionResult, error) {
	if c.forest == nil {
		return model.DetectionResult{}, ErrModelUnavailable
	}
	probs, err := c.forest.PredictProba(nb.Rows)
	if err != nil {
		return model.DetectionResult{}, fmt.Errorf("%w: %v", ErrInference, err)
	}

	n := len(probs)
	res := model.DetectionResult{
		Predictions: make([]int, n),
		Confidence:  make([]float64, n),
		AttackProb:  make([]float64, n),
	}
	var sumConf, sumAttack float64
	for i, p := range probs {
		pred := 0
		if p[1] > p[0] {
			pred = 1
			res.NumAnomalies++
		}
		conf := p[pred]
		res.Predictions[i] = pred
		res.Confidence[i] = conf
		res.AttackProb[i] = p[1]
		sumConf += conf
		sumAttack += p[1]
		if p[1] > res.MaxAttackProb {
			res.MaxAttackProb = p[1]
		}
	}
	if n > 0 {
		res.AnomalyRate = float64(res.NumAnomalies) / float64(n)
		res.MeanConfidence = sumConf / float64(n)
		res.MeanAttackProb = sumAttack / float64(n)
	}
	return res, nil
}
