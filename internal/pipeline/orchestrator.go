package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"icsguard/internal/model"
)

// Orchestrator sequences the five pipeline stages for one batch and owns
// the process-wide pipeline state. At most one batch is in flight; a
// second submission is rejected with ErrBusy rather than queued.
//
// A normalizer or classifier failure abandons the batch and surfaces the
// stage error. A failure in a risk assessor or the decision engine is not
// fatal to the upstream output: the partial result is returned with the
// failed stage annotated and the state set to ERROR.
type Orchestrator struct {
	normalizer  Normalizer
	classifier  Detector
	cyber       CyberAssessor
	operational OperationalAssessor
	decider     Decider

	history *RateHistory
	mapper  *StageMapper

	stageTimeout time.Duration
	logger       *slog.Logger

	mu       sync.Mutex
	state    model.PipelineState
	inflight bool
}

type OrchestratorOptions struct {
	StageTimeout time.Duration
	Logger       *slog.Logger
}

func NewOrchestrator(n Normalizer, d Detector, c CyberAssessor, o OperationalAssessor, dec Decider, history *RateHistory, opts OrchestratorOptions) *Orchestrator {
	timeout := opts.StageTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Orchestrator{
		normalizer:   n,
		classifier:   d,
		cyber:        c,
		operational:  o,
		decider:      dec,
		history:      history,
		mapper:       NewStageMapper(),
		stageTimeout: timeout,
		logger:       opts.Logger,
		state:        model.StateReady,
	}
}

// Status reports the current pipeline state.
func (p *Orchestrator) Status() model.PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Reset clears the rolling rate history and returns an idle pipeline to
// READY. A batch in flight is unaffected.
func (p *Orchestrator) Reset() {
	if p.history != nil {
		p.history.Reset()
	}
	p.mu.Lock()
	if !p.inflight {
		p.state = model.StateReady
	}
	p.mu.Unlock()
}

// Submit runs one batch through the full pipeline.
func (p *Orchestrator) Submit(ctx context.Context, batch model.SensorBatch) (*model.AggregatedResult, error) {
	if batch.Size() == 0 {
		return nil, ErrEmptyBatch
	}

	p.mu.Lock()
	if p.inflight {
		p.mu.Unlock()
		return nil, ErrBusy
	}
	p.inflight = true
	p.state = model.StateProcessing
	p.mu.Unlock()

	result, err := p.run(ctx, batch)

	p.mu.Lock()
	p.inflight = false
	if err != nil || (result != nil && result.FailedStage != "") {
		p.state = model.StateError
	} else {
		p.state = model.StateCompleted
	}
	p.mu.Unlock()

	return result, err
}

func (p *Orchestrator) run(ctx context.Context, batch model.SensorBatch) (*model.AggregatedResult, error) {
	result := &model.AggregatedResult{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		BatchSize: batch.Size(),
		State:     model.StateCompleted,
	}

	normalized, err := runStage(ctx, p.stageTimeout, StageNormalizer, func() (model.NormalizedBatch, error) {
		return p.normalizer.Normalize(batch)
	})
	if err != nil {
		p.logStageError(StageNormalizer, err)
		return nil, err
	}

	detection, err := runStage(ctx, p.stageTimeout, StageClassifier, func() (model.DetectionResult, error) {
		return p.classifier.Detect(normalized)
	})
	if err != nil {
		p.logStageError(StageClassifier, err)
		return nil, err
	}
	result.Detection = &detection
	result.Metrics = batchMetrics(batch.Labels, detection.Predictions)
	result.StageRisks = p.mapper.Attribute(batch, detection)

	cyber, err := runStage(ctx, p.stageTimeout, StageCyber, func() (model.CyberRiskAssessment, error) {
		return p.cyber.Assess(detection)
	})
	if err != nil {
		return p.partial(result, StageCyber, err), nil
	}
	result.Cyber = &cyber

	operational, err := runStage(ctx, p.stageTimeout, StageOperational, func() (model.OperationalRiskAssessment, error) {
		return p.operational.Assess(detection)
	})
	if err != nil {
		return p.partial(result, StageOperational, err), nil
	}
	result.Operational = &operational

	decision, err := runStage(ctx, p.stageTimeout, StageDecision, func() (model.Decision, error) {
		return p.decider.Decide(cyber, operational)
	})
	if err != nil {
		return p.partial(result, StageDecision, err), nil
	}
	result.Decision = &decision

	if p.logger != nil {
		p.logger.Info("pipeline completed",
			"result_id", result.ID,
			"batch_size", result.BatchSize,
			"anomaly_rate", detection.AnomalyRate,
			"cyber_level", cyber.Level,
			"operational_level", operational.Level,
			"primary_threat", decision.PrimaryThreat,
		)
	}
	return result, nil
}

func (p *Orchestrator) partial(result *model.AggregatedResult, stage string, err error) *model.AggregatedResult {
	p.logStageError(stage, err)
	result.State = model.StateError
	result.FailedStage = stage
	return result
}

func (p *Orchestrator) logStageError(stage string, err error) {
	if p.logger != nil {
		p.logger.Error("stage failed", "stage", stage, "err", err)
	}
}

// runStage executes one stage with a bounded wait. A stage that never
// returns is reported as ErrStageTimeout instead of being treated as
// success; its goroutine result is discarded when the deadline fires.
func runStage[T any](ctx context.Context, timeout time.Duration, name string, fn func() (T, error)) (T, error) {
	type outcome struct {
		val T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		val, err := fn()
		ch <- outcome{val, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case out := <-ch:
		if out.err != nil {
			return zero, &StageError{Stage: name, Err: out.err}
		}
		return out.val, nil
	case <-timer.C:
		return zero, &StageError{Stage: name, Err: ErrStageTimeout}
	case <-ctx.Done():
		return zero, &StageError{Stage: name, Err: ctx.Err()}
	}
}
