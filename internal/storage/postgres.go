package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"icsguard/internal/model"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/icsguard?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			saved_at TIMESTAMPTZ NOT NULL,
			state TEXT NOT NULL,
			failed_stage TEXT,
			batch_size INTEGER NOT NULL,
			anomaly_rate DOUBLE PRECISION NOT NULL,
			cyber_score DOUBLE PRECISION NOT NULL,
			operational_score DOUBLE PRECISION NOT NULL,
			primary_threat TEXT,
			detection_json JSONB,
			cyber_json JSONB,
			operational_json JSONB,
			decision_json JSONB,
			metrics_json JSONB,
			stage_risks_json JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_ts ON results(ts)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *postgresStore) SaveResult(ctx context.Context, res *model.AggregatedResult) error {
	if s.db == nil || res == nil {
		return nil
	}
	row := flatten(res)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (id, ts, saved_at, state, failed_stage, batch_size, anomaly_rate,
			cyber_score, operational_score, primary_threat,
			detection_json, cyber_json, operational_json, decision_json, metrics_json, stage_risks_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		row.id,
		row.ts,
		nowUTC(),
		row.state,
		row.failedStage,
		row.batchSize,
		row.anomalyRate,
		row.cyberScore,
		row.opScore,
		row.primaryThreat,
		encodeJSON(res.Detection),
		encodeJSON(res.Cyber),
		encodeJSON(res.Operational),
		encodeJSON(res.Decision),
		encodeJSON(res.Metrics),
		encodeJSON(res.StageRisks),
	)
	return err
}
