package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"icsguard/internal/config"
	"icsguard/internal/model"
)

// Store persists aggregated pipeline results. Optional: NewStore returns
// (nil, nil) when storage is disabled.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	SaveResult(ctx context.Context, res *model.AggregatedResult) error
}

func NewStore(cfg config.StorageConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported storage driver")
	}
}

type baseStore struct {
	db *sql.DB
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func encodeJSON(value any) string {
	if value == nil {
		return "null"
	}
	data, _ := json.Marshal(value)
	return string(data)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

type resultRow struct {
	id            string
	ts            time.Time
	state         string
	failedStage   string
	batchSize     int
	anomalyRate   float64
	cyberScore    float64
	opScore       float64
	primaryThreat string
}

func flatten(res *model.AggregatedResult) resultRow {
	row := resultRow{
		id:          res.ID,
		ts:          res.Timestamp.UTC(),
		state:       string(res.State),
		failedStage: res.FailedStage,
		batchSize:   res.BatchSize,
	}
	if res.Detection != nil {
		row.anomalyRate = res.Detection.AnomalyRate
	}
	if res.Cyber != nil {
		row.cyberScore = res.Cyber.Score
	}
	if res.Operational != nil {
		row.opScore = res.Operational.Score
	}
	if res.Decision != nil {
		row.primaryThreat = res.Decision.PrimaryThreat
	}
	return row
}
