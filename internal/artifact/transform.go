package artifact

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Transform is a fitted feature-transform artifact: a Yeo-Johnson
// skew correction for a subset of columns followed by an affine
// standardization of all columns. It is loaded once, never refitted,
// and safe for concurrent use.
type Transform struct {
	Columns []string           `json:"columns"`
	Skewed  map[string]float64 `json:"skewed"` // column -> fitted lambda
	Mean    []float64          `json:"mean"`
	Scale   []float64          `json:"scale"`

	skewedIdx map[int]float64
}

func LoadTransform(path string) (*Transform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load transform artifact: %w", err)
	}
	var t Transform
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode transform artifact %s: %w", path, err)
	}
	if err := t.init(); err != nil {
		return nil, fmt.Errorf("transform artifact %s: %w", path, err)
	}
	return &t, nil
}

func (t *Transform) init() error {
	n := len(t.Columns)
	if n == 0 {
		return fmt.Errorf("no columns")
	}
	if len(t.Mean) != n || len(t.Scale) != n {
		return fmt.Errorf("mean/scale length %d/%d does not match %d columns", len(t.Mean), len(t.Scale), n)
	}
	t.skewedIdx = make(map[int]float64, len(t.Skewed))
	pos := make(map[string]int, n)
	for i, c := range t.Columns {
		pos[c] = i
	}
	for col, lambda := range t.Skewed {
		i, ok := pos[col]
		if !ok {
			return fmt.Errorf("skewed column %q not in column list", col)
		}
		t.skewedIdx[i] = lambda
	}
	return nil
}

// Width returns the expected input column count.
func (t *Transform) Width() int { return len(t.Columns) }

// Apply transforms a matrix whose columns follow t.Columns. The output has
// the same row count; input rows are not modified.
func (t *Transform) Apply(rows [][]float64) ([][]float64, error) {
	if t.skewedIdx == nil {
		if err := t.init(); err != nil {
			return nil, err
		}
	}
	out := make([][]float64, len(rows))
	for r, row := range rows {
		if len(row) != len(t.Columns) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", r, len(row), len(t.Columns))
		}
		dst := make([]float64, len(row))
		for i, v := range row {
			if lambda, ok := t.skewedIdx[i]; ok {
				v = yeoJohnson(v, lambda)
			}
			scale := t.Scale[i]
			if scale == 0 {
				scale = 1
			}
			dst[i] = (v - t.Mean[i]) / scale
		}
		out[r] = dst
	}
	return out, nil
}

// yeoJohnson applies the Yeo-Johnson power transform for a fitted lambda.
func yeoJohnson(x, lambda float64) float64 {
	switch {
	case x >= 0 && lambda != 0:
		return (math.Pow(x+1, lambda) - 1) / lambda
	case x >= 0:
		return math.Log1p(x)
	case lambda != 2:
		return -(math.Pow(-x+1, 2-lambda) - 1) / (2 - lambda)
	default:
		return -math.Log1p(-x)
	}
}
