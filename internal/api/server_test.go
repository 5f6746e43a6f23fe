package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"icsguard/internal/dataset"
	"icsguard/internal/model"
	"icsguard/internal/pipeline"
	"icsguard/internal/results"
)

type stubPipeline struct {
	state model.PipelineState
	err   error
}

func (s *stubPipeline) Submit(ctx context.Context, batch model.SensorBatch) (*model.AggregatedResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.AggregatedResult{
		ID:        "test-result",
		Timestamp: time.Now().UTC(),
		BatchSize: batch.Size(),
		State:     model.StateCompleted,
	}, nil
}

func (s *stubPipeline) Status() model.PipelineState { return s.state }

type stubStream struct {
	running   bool
	position  int
	batchSize int
	starts    int
	stops     int
	resets    int
	table     *dataset.Table
}

func (s *stubStream) Start(ctx context.Context)  { s.starts++; s.running = true }
func (s *stubStream) Stop()                      { s.stops++; s.running = false }
func (s *stubStream) Reset()                     { s.resets++; s.position = 0 }
func (s *stubStream) Running() bool              { return s.running }
func (s *stubStream) Position() int              { return s.position }
func (s *stubStream) DatasetSize() int           { return s.table.Len() }
func (s *stubStream) NextBatch() model.SensorBatch {
	return s.table.Slice(0, s.batchSize)
}
func (s *stubStream) Configure(batchSize int, delay time.Duration) {
	if batchSize > 0 {
		s.batchSize = batchSize
	}
}

func testTable() *dataset.Table {
	return &dataset.Table{
		Columns: []string{"FIT101"},
		Rows:    [][]float64{{1}, {2}, {3}, {4}},
		Labels: []model.Label{
			model.LabelNormal, model.LabelAttack,
			model.LabelNormal, model.LabelAttack,
		},
	}
}

func testServer(orch Pipeline) (*Server, *stubStream, *results.Store) {
	table := testTable()
	driver := &stubStream{table: table, batchSize: 2}
	store := results.NewStore(10)
	srv := &Server{
		orch:    orch,
		driver:  driver,
		table:   table,
		store:   store,
		sink:    func(res *model.AggregatedResult) { store.Add(res) },
		version: "test",
		rootCtx: context.Background(),
	}
	return srv, driver, store
}

func TestStatusEndpoint(t *testing.T) {
	srv, driver, _ := testServer(&stubPipeline{state: model.StateReady})
	driver.position = 2

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	var got statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PipelineState != "READY" || got.DataIndex != 2 || got.TotalSamples != 4 {
		t.Fatalf("status = %+v", got)
	}
}

func TestProcessBatchMixed(t *testing.T) {
	srv, _, store := testServer(&stubPipeline{state: model.StateReady})
	body := strings.NewReader(`{"batch_size": 2, "scenario": "mixed"}`)
	rec := httptest.NewRecorder()
	srv.handleProcessBatch(rec, httptest.NewRequest(http.MethodPost, "/process/batch", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d: %s", rec.Code, rec.Body.String())
	}
	var got model.AggregatedResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.BatchSize != 2 {
		t.Fatalf("batch size = %d", got.BatchSize)
	}
	if _, ok := store.Latest(); !ok {
		t.Fatalf("manual submission did not reach the sink")
	}
}

func TestProcessBatchAttackScenario(t *testing.T) {
	srv, _, _ := testServer(&stubPipeline{state: model.StateReady})
	body := strings.NewReader(`{"batch_size": 10, "scenario": "attack"}`)
	rec := httptest.NewRecorder()
	srv.handleProcessBatch(rec, httptest.NewRequest(http.MethodPost, "/process/batch", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d: %s", rec.Code, rec.Body.String())
	}
	var got model.AggregatedResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.BatchSize != 2 {
		t.Fatalf("attack rows = %d, want 2", got.BatchSize)
	}
}

func TestProcessBatchUnknownScenario(t *testing.T) {
	srv, _, _ := testServer(&stubPipeline{state: model.StateReady})
	body := strings.NewReader(`{"scenario": "chaos"}`)
	rec := httptest.NewRecorder()
	srv.handleProcessBatch(rec, httptest.NewRequest(http.MethodPost, "/process/batch", body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d", rec.Code)
	}
}

func TestProcessBatchBusy(t *testing.T) {
	srv, _, _ := testServer(&stubPipeline{state: model.StateProcessing, err: pipeline.ErrBusy})
	rec := httptest.NewRecorder()
	srv.handleProcessBatch(rec, httptest.NewRequest(http.MethodPost, "/process/batch", strings.NewReader(`{}`)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status code = %d, want 409", rec.Code)
	}
}

func TestProcessBatchMethodNotAllowed(t *testing.T) {
	srv, _, _ := testServer(&stubPipeline{})
	rec := httptest.NewRecorder()
	srv.handleProcessBatch(rec, httptest.NewRequest(http.MethodGet, "/process/batch", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status code = %d", rec.Code)
	}
}

func TestStreamEndpoints(t *testing.T) {
	srv, driver, _ := testServer(&stubPipeline{state: model.StateReady})

	rec := httptest.NewRecorder()
	srv.handleStreamStart(rec, httptest.NewRequest(http.MethodPost, "/stream/start", strings.NewReader(`{"batch_size": 5}`)))
	if rec.Code != http.StatusOK || driver.starts != 1 {
		t.Fatalf("start: code %d, starts %d", rec.Code, driver.starts)
	}
	if driver.batchSize != 5 {
		t.Fatalf("configure not applied: batch size %d", driver.batchSize)
	}

	rec = httptest.NewRecorder()
	srv.handleStreamStop(rec, httptest.NewRequest(http.MethodPost, "/stream/stop", nil))
	if rec.Code != http.StatusOK || driver.stops != 1 {
		t.Fatalf("stop: code %d, stops %d", rec.Code, driver.stops)
	}

	rec = httptest.NewRecorder()
	srv.handleStreamReset(rec, httptest.NewRequest(http.MethodPost, "/stream/reset", nil))
	if rec.Code != http.StatusOK || driver.resets != 1 {
		t.Fatalf("reset: code %d, resets %d", rec.Code, driver.resets)
	}
}

func TestResultsEndpoints(t *testing.T) {
	srv, _, store := testServer(&stubPipeline{state: model.StateReady})

	rec := httptest.NewRecorder()
	srv.handleLatest(rec, httptest.NewRequest(http.MethodGet, "/results/latest", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("empty store latest = %d, want 404", rec.Code)
	}

	store.Add(&model.AggregatedResult{ID: "a", Timestamp: time.Now()})
	store.Add(&model.AggregatedResult{ID: "b", Timestamp: time.Now()})

	rec = httptest.NewRecorder()
	srv.handleResults(rec, httptest.NewRequest(http.MethodGet, "/results?limit=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("results code = %d", rec.Code)
	}
	var listResp struct {
		Count   int                       `json:"count"`
		Results []*model.AggregatedResult `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if listResp.Count != 1 || listResp.Results[0].ID != "b" {
		t.Fatalf("list = %+v", listResp)
	}

	rec = httptest.NewRecorder()
	srv.handleLatest(rec, httptest.NewRequest(http.MethodGet, "/results/latest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("latest code = %d", rec.Code)
	}
}

func TestReportEndpoint(t *testing.T) {
	srv, _, store := testServer(&stubPipeline{state: model.StateReady})
	store.Add(&model.AggregatedResult{
		ID:        "rep-1",
		Timestamp: time.Now(),
		BatchSize: 10,
		State:     model.StateCompleted,
		Decision: &model.Decision{
			PrimaryThreat:    "Cyber Attack",
			ResponseTimeline: "URGENT (5-15 minutes)",
		},
	})
	rec := httptest.NewRecorder()
	srv.handleReport(rec, httptest.NewRequest(http.MethodGet, "/report/latest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("report code = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "rep-1") || !strings.Contains(body, "Cyber Attack") {
		t.Fatalf("report body missing fields:\n%s", body)
	}
}
