package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"icsguard/internal/dataset"
	"icsguard/internal/model"
	"icsguard/internal/pipeline"
)

// Submitter is the pipeline surface the driver feeds.
type Submitter interface {
	Submit(ctx context.Context, batch model.SensorBatch) (*model.AggregatedResult, error)
}

// Driver repeatedly slices the next window of rows from a bounded dataset
// and submits it on a fixed cadence. The cursor wraps to row 0 at dataset
// end, matching the source simulator's looping behavior. The loop's only
// suspension point is the inter-batch wait, and cancellation is honored
// there: a stop requested mid-wait never submits another batch.
type Driver struct {
	table *dataset.Table
	orch  Submitter

	logger *slog.Logger
	sink   func(*model.AggregatedResult)

	mu        sync.Mutex
	batchSize int
	delay     time.Duration
	cursor    int
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewDriver(table *dataset.Table, orch Submitter, batchSize int, delay time.Duration, sink func(*model.AggregatedResult), logger *slog.Logger) *Driver {
	if batchSize <= 0 {
		batchSize = 50
	}
	if delay <= 0 {
		delay = 3 * time.Second
	}
	return &Driver{
		table:     table,
		orch:      orch,
		batchSize: batchSize,
		delay:     delay,
		sink:      sink,
		logger:    logger,
	}
}

// Configure adjusts batch size and delay for subsequent cycles.
func (d *Driver) Configure(batchSize int, delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if batchSize > 0 {
		d.batchSize = batchSize
	}
	if delay > 0 {
		d.delay = delay
	}
}

// Start launches the streaming loop. Starting a running driver is a no-op.
func (d *Driver) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true
	d.done = make(chan struct{})
	done := d.done
	d.mu.Unlock()

	if d.logger != nil {
		d.logger.Info("stream started", "batch_size", d.batchSize, "delay", d.delay.String())
	}
	go d.loop(loopCtx, done)
}

// Stop halts the loop without touching the cursor.
func (d *Driver) Stop() {
	d.halt()
	if d.logger != nil {
		d.logger.Info("stream stopped", "cursor", d.Position())
	}
}

// Reset halts the loop and returns the cursor to row 0; a subsequent
// Start re-reads from the beginning of the dataset.
func (d *Driver) Reset() {
	d.halt()
	d.mu.Lock()
	d.cursor = 0
	d.mu.Unlock()
	if d.logger != nil {
		d.logger.Info("stream reset")
	}
}

func (d *Driver) halt() {
	d.mu.Lock()
	cancel := d.cancel
	done := d.done
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Position reports the current cursor index into the dataset.
func (d *Driver) Position() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor
}

func (d *Driver) DatasetSize() int {
	if d.table == nil {
		return 0
	}
	return d.table.Len()
}

// NextBatch slices the next window and advances the cursor, wrapping at
// dataset end. Shared by the loop and by mixed-scenario manual
// submissions so both walk the same cursor.
func (d *Driver) NextBatch() model.SensorBatch {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cursor >= d.table.Len() {
		d.cursor = 0
	}
	batch := d.table.Slice(d.cursor, d.batchSize)
	d.cursor += len(batch.Rows)
	if d.cursor >= d.table.Len() {
		d.cursor = 0
	}
	return batch
}

func (d *Driver) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		close(done)
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		batch := d.NextBatch()
		result, err := d.orch.Submit(ctx, batch)
		switch {
		case errors.Is(err, pipeline.ErrBusy):
			// another submission holds the pipeline; try again next cycle
		case err != nil:
			if d.logger != nil {
				d.logger.Error("stream submission failed", "err", err)
			}
		default:
			if d.sink != nil {
				d.sink(result)
			}
		}

		d.mu.Lock()
		delay := d.delay
		d.mu.Unlock()
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}
