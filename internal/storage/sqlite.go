package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"

	"icsguard/internal/model"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:icsguard.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			ts TEXT NOT NULL,
			saved_at TEXT NOT NULL,
			state TEXT NOT NULL,
			failed_stage TEXT,
			batch_size INTEGER NOT NULL,
			anomaly_rate REAL NOT NULL,
			cyber_score REAL NOT NULL,
			operational_score REAL NOT NULL,
			primary_threat TEXT,
			detection_json TEXT,
			cyber_json TEXT,
			operational_json TEXT,
			decision_json TEXT,
			metrics_json TEXT,
			stage_risks_json TEXT
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

func (s *sqliteStore) SaveResult(ctx context.Context, res *model.AggregatedResult) error {
	if s.db == nil || res == nil {
		return nil
	}
	row := flatten(res)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (id, ts, saved_at, state, failed_stage, batch_size, anomaly_rate,
			cyber_score, operational_score, primary_threat,
			detection_json, cyber_json, operational_json, decision_json, metrics_json, stage_risks_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
