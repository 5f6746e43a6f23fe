package pipeline

import "icsguard/internal/model"

// batchMetrics scores predictions against ground-truth labels. Returns
// nil when the batch carries no labels.
func batchMetrics(labels []model.Label, predictions []int) *model.BatchMetrics {
	if len(labels) == 0 || len(labels) != len(predictions) {
		return nil
	}
	var tp, tn, fp, fn int
	for i, label := range labels {
		truth := label == model.LabelAttack
		pred := predictions[i] == 1
		switch {
		case truth && pred:
			tp++
		case truth && !pred:
			fn++
		case !truth && pred:
			fp++
		default:
			tn++
		}
	}
	m := &model.BatchMetrics{
		TrueAttacks: tp + fn,
		TrueNormal:  tn + fp,
	}
	total := float64(len(labels))
	m.Accuracy = float64(tp+tn) / total
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}
