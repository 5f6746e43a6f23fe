package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/segmentio/kafka-go"

	"icsguard/internal/config"
	"icsguard/internal/dataset"
	"icsguard/internal/model"
)

// rowMessage is one sensor reading on the wire: readings keyed by column
// name plus an optional ground-truth label.
type rowMessage struct {
	Readings map[string]json.Number `json:"readings"`
	Label    string                 `json:"label,omitempty"`
}

// StartKafka consumes JSON-encoded sensor rows, buffers them into
// batch-size windows following the normalizer's column order, and emits
// complete batches on out. Rows that do not cover the full schema are
// dropped with a warning.
func StartKafka(ctx context.Context, cfg *config.Manager, columns []string, out chan<- model.SensorBatch, logger *slog.Logger) {
	current := cfg.Get().Ingest.Kafka
	if !current.Enabled {
		if logger != nil {
			logger.Info("kafka ingest disabled")
		}
		return
	}
	if logger != nil {
		logger.Info("kafka ingest enabled", "brokers", current.Brokers, "topic", current.Topic, "group_id", current.GroupID)
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  current.Brokers,
		Topic:    current.Topic,
		GroupID:  current.GroupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	go func() {
		defer reader.Close()
		batchSize := cfg.Get().Stream.BatchSize
		pending := model.SensorBatch{Columns: columns}
		labeled := 0
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if logger != nil {
					logger.Warn("kafka read error", "err", err)
				}
				continue
			}
			row, label, hasLabel, ok := decodeRow(m.Value, columns, logger)
			if !ok {
				continue
			}
			pending.Rows = append(pending.Rows, row)
			pending.Labels = append(pending.Labels, label)
			if hasLabel {
				labeled++
			}
			if len(pending.Rows) < batchSize {
				continue
			}
			// ground truth only travels with fully labeled windows
			if labeled < len(pending.Rows) {
				pending.Labels = nil
			}
			SendNonBlocking(ctx, out, pending, logger)
			pending = model.SensorBatch{Columns: columns}
			labeled = 0
		}
	}()
}

func decodeRow(value []byte, columns []string, logger *slog.Logger) ([]float64, model.Label, bool, bool) {
	var msg rowMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		if logger != nil {
			logger.Warn("kafka decode error", "err", err)
		}
		return nil, 0, false, false
	}
	row := make([]float64, len(columns))
	for i, col := range columns {
		raw, ok := msg.Readings[col]
		if !ok {
			if logger != nil {
				logger.Warn("kafka row missing column", "column", col)
			}
			return nil, 0, false, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw.String()), 64)
		if err != nil {
			if logger != nil {
				logger.Warn("kafka row bad value", "column", col, "err", err)
			}
			return nil, 0, false, false
		}
		row[i] = v
	}
	if msg.Label == "" {
		return row, model.LabelNormal, false, true
	}
	label, err := dataset.ParseLabel(msg.Label)
	if err != nil {
		if logger != nil {
			logger.Warn("kafka row bad label", "label", msg.Label)
		}
		return nil, 0, false, false
	}
	return row, label, true, true
}
