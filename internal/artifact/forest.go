package artifact

import (
	"encoding/json"
	"fmt"
	"os"
)

// Node is one decision-tree node. Leaf nodes have Left < 0 and carry the
// class distribution [normal, attack]; internal nodes route on
// feature <= threshold.
type Node struct {
	Feature   int        `json:"feature"`
	Threshold float64    `json:"threshold"`
	Left      int        `json:"left"`
	Right     int        `json:"right"`
	Value     [2]float64 `json:"value"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Forest is a fitted voting-ensemble classifier artifact. Per-row class
// probability is the mean of each tree's leaf distribution; the predicted
// class is the one with the larger mass. Read-only after load.
type Forest struct {
	NumFeatures int    `json:"num_features"`
	Trees       []Tree `json:"trees"`
}

func LoadForest(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load classifier artifact: %w", err)
	}
	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode classifier artifact %s: %w", path, err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("classifier artifact %s: %w", path, err)
	}
	return &f, nil
}

func (f *Forest) validate() error {
	if f.NumFeatures <= 0 {
		return fmt.Errorf("num_features must be positive")
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("no trees")
	}
	for ti, tree := range f.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, n := range tree.Nodes {
			if n.Left < 0 {
				continue
			}
			if n.Left >= len(tree.Nodes) || n.Right < 0 || n.Right >= len(tree.Nodes) {
				return fmt.Errorf("tree %d node %d has out-of-range children", ti, ni)
			}
			if n.Feature < 0 || n.Feature >= f.NumFeatures {
				return fmt.Errorf("tree %d node %d routes on feature %d, width is %d", ti, ni, n.Feature, f.NumFeatures)
			}
		}
	}
	return nil
}

// Width returns the expected input column count.
func (f *Forest) Width() int { return f.NumFeatures }

// PredictProba returns per-row [normal, attack] probability pairs.
func (f *Forest) PredictProba(rows [][]float64) ([][2]float64, error) {
	out := make([][2]float64, len(rows))
	for r, row := range rows {
		if len(row) != f.NumFeatures {
			return nil, fmt.Errorf("row %d has %d features, model expects %d", r, len(row), f.NumFeatures)
		}
		var sum [2]float64
		for _, tree := range f.Trees {
			leaf := tree.route(row)
			total := leaf.Value[0] + leaf.Value[1]
			if total <= 0 {
				continue
			}
			sum[0] += leaf.Value[0] / total
			sum[1] += leaf.Value[1] / total
		}
		n := float64(len(f.Trees))
		out[r] = [2]float64{sum[0] / n, sum[1] / n}
	}
	return out, nil
}

// Predict returns the majority class per row: 0 normal, 1 attack.
func (f *Forest) Predict(rows [][]float64) ([]int, error) {
	probs, err := f.PredictProba(rows)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(probs))
	for i, p := range probs {
		if p[1] > p[0] {
			out[i] = 1
		}
	}
	return out, nil
}

func (t Tree) route(row []float64) Node {
	idx := 0
	for {
		n := t.Nodes[idx]
		if n.Left < 0 {
			return n
		}
		if row[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}
