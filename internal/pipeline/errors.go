package pipeline

import (
	"errors"
	"fmt"
)

// Failure taxonomy for pipeline stages. Callers match with errors.Is.
var (
	// ErrSchemaMismatch: batch column count/order disagrees with the
	// fitted transform's schema. The batch is rejected, never retried.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrModelUnavailable: a required artifact is missing or corrupt.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrInference: the matrix shape does not match the model input width.
	ErrInference = errors.New("inference error")
	// ErrBusy: a batch was submitted while another is in flight. The
	// caller should retry later; this is not an internal fault.
	ErrBusy = errors.New("pipeline busy")
	// ErrStageTimeout: a stage exceeded its time budget.
	ErrStageTimeout = errors.New("stage timeout")
	// ErrEmptyBatch: a batch with no rows was submitted.
	ErrEmptyBatch = errors.New("empty batch")
)

// Stage names as reported on results and stage errors.
const (
	StageNormalizer  = "normalizer"
	StageClassifier  = "classifier"
	StageCyber       = "cyber_risk"
	StageOperational = "operational_risk"
	StageDecision    = "decision"
)

// StageError wraps a stage failure with the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
