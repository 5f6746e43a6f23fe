package pipeline

import (
	"math"
	"sort"

	"icsguard/internal/model"
)

// StageMapper attributes anomalous rows to physical process stages
// (P1..P6) by the sensor tag that deviates most from the batch baseline.
// Sensor tags encode their stage in the hundreds digit of the numeric
// suffix (FIT101 -> P1, AIT402 -> P4).
type StageMapper struct{}

func NewStageMapper() *StageMapper { return &StageMapper{} }

func stageOf(column string) string {
	for i := 0; i < len(column); i++ {
		c := column[i]
		if c >= '1' && c <= '9' {
			return "P" + string(c)
		}
	}
	return "P?"
}

// Attribute maps each anomalous row to the stage of its most deviating
// sensor, measured as a z-score against the batch's own column
// statistics, and returns per-stage counts sorted by share.
func (m *StageMapper) Attribute(batch model.SensorBatch, det model.DetectionResult) []model.StageRisk {
	if det.NumAnomalies == 0 || len(batch.Rows) == 0 {
		return nil
	}
	means, stds := columnStats(batch.Rows)

	counts := make(map[string]int)
	for r, pred := range det.Predictions {
		if pred != 1 {
			continue
		}
		best := -1
		bestDev := -1.0
		for c, v := range batch.Rows[r] {
			if stds[c] == 0 {
				continue
			}
			dev := math.Abs(v-means[c]) / stds[c]
			if dev > bestDev {
				bestDev = dev
				best = c
			}
		}
		if best >= 0 {
			counts[stageOf(batch.Columns[best])]++
		}
	}

	out := make([]model.StageRisk, 0, len(counts))
	for stage, n := range counts {
		out = append(out, model.StageRisk{
			Stage:        stage,
			AnomalyCount: n,
			Share:        float64(n) / float64(det.NumAnomalies),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AnomalyCount != out[j].AnomalyCount {
			return out[i].AnomalyCount > out[j].AnomalyCount
		}
		return out[i].Stage < out[j].Stage
	})
	return out
}

func columnStats(rows [][]float64) (means, stds []float64) {
	cols := len(rows[0])
	means = make([]float64, cols)
	stds = make([]float64, cols)
	for _, row := range rows {
		for c, v := range row {
			means[c] += v
		}
	}
	for c := range means {
		means[c] /= float64(len(rows))
	}
	for _, row := range rows {
		for c, v := range row {
			d := v - means[c]
			stds[c] += d * d
		}
	}
	for c := range stds {
		stds[c] = math.Sqrt(stds[c] / float64(len(rows)))
	}
	return means, stds
}
