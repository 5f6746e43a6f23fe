package pipeline

import (
	"fmt"

	"icsguard/internal/artifact"
	"icsguard/internal/model"
)

// Normalizer maps a raw sensor batch to a model-ready matrix.
type Normalizer interface {
	Normalize(batch model.SensorBatch) (model.NormalizedBatch, error)
}

// FeatureNormalizer applies a fitted transform artifact without refitting.
// Deterministic; rejects batches whose schema disagrees with the artifact.
type FeatureNormalizer struct {
	transform *artifact.Transform
}

func NewFeatureNormalizer(t *artifact.Transform) *FeatureNormalizer {
	return &FeatureNormalizer{transform: t}
}

func (n *FeatureNormalizer) Normalize(batch model.SensorBatch) (model.NormalizedBatch, error) {
	if n.transform == nil {
		return model.NormalizedBatch{}, ErrModelUnavailable
	}
	if err := n.checkSchema(batch.Columns); err != nil {
		return model.NormalizedBatch{}, err
	}
	rows, err := n.transform.Apply(batch.Rows)
	if err != nil {
		return model.NormalizedBatch{}, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return model.NormalizedBatch{Rows: rows}, nil
}

func (n *FeatureNormalizer) checkSchema(columns []string) error {
	expected := n.transform.Columns
	if len(columns) != len(expected) {
		return fmt.Errorf("%w: batch has %d columns, transform expects %d", ErrSchemaMismatch, len(columns), len(expected))
	}
	for i, c := range columns {
		if c != expected[i] {
			return fmt.Errorf("%w: column %d is %q, expected %q", ErrSchemaMismatch, i, c, expected[i])
		}
	}
	return nil
}
