package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"icsguard/internal/config"
	"icsguard/internal/dataset"
	"icsguard/internal/model"
	"icsguard/internal/pipeline"
	"icsguard/internal/results"
)

// Pipeline is the orchestrator surface the API consumes.
type Pipeline interface {
	Submit(ctx context.Context, batch model.SensorBatch) (*model.AggregatedResult, error)
	Status() model.PipelineState
}

// StreamControl is the streaming-driver surface the API consumes.
type StreamControl interface {
	Start(ctx context.Context)
	Stop()
	Reset()
	Running() bool
	Position() int
	DatasetSize() int
	NextBatch() model.SensorBatch
	Configure(batchSize int, delay time.Duration)
}

type Server struct {
	cfg     *config.Manager
	orch    Pipeline
	driver  StreamControl
	table   *dataset.Table
	store   *results.Store
	sink    func(*model.AggregatedResult)
	logger  *slog.Logger
	version string
	rootCtx context.Context
}

type statusResponse struct {
	Status        string `json:"status"`
	Time          string `json:"time"`
	Version       string `json:"version"`
	PipelineState string `json:"pipeline_state"`
	StreamRunning bool   `json:"stream_running"`
	DataIndex     int    `json:"data_index"`
	TotalSamples  int    `json:"total_samples"`
}

type processRequest struct {
	BatchSize int    `json:"batch_size"`
	Scenario  string `json:"scenario"`
}

type streamRequest struct {
	BatchSize    int     `json:"batch_size"`
	DelaySeconds float64 `json:"delay_seconds"`
}

// Start brings up the HTTP surface and shuts it down when ctx is
// canceled. sink is invoked for every successfully produced result so
// manual submissions reach the same stores and subscribers as streamed
// ones.
func Start(ctx context.Context, cfg *config.Manager, orch Pipeline, driver StreamControl, table *dataset.Table, store *results.Store, sink func(*model.AggregatedResult), logger *slog.Logger, version string) *http.Server {
	current := cfg.Get().API
	if !current.Enabled {
		if logger != nil {
			logger.Info("api disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("api enabled", "addr", current.Addr)
	}
	server := &Server{
		cfg:     cfg,
		orch:    orch,
		driver:  driver,
		table:   table,
		store:   store,
		sink:    sink,
		logger:  logger,
		version: version,
		rootCtx: ctx,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", server.handleStatus)
	mux.HandleFunc("/process/batch", server.handleProcessBatch)
	mux.HandleFunc("/stream/start", server.handleStreamStart)
	mux.HandleFunc("/stream/stop", server.handleStreamStop)
	mux.HandleFunc("/stream/reset", server.handleStreamReset)
	mux.HandleFunc("/results", server.handleResults)
	mux.HandleFunc("/results/latest", server.handleLatest)
	mux.HandleFunc("/report/latest", server.handleReport)

	httpServer := &http.Server{Addr: current.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp := statusResponse{
		Status:        "ok",
		Time:          time.Now().UTC().Format(time.RFC3339Nano),
		Version:       s.version,
		PipelineState: string(s.orch.Status()),
		StreamRunning: s.driver.Running(),
		DataIndex:     s.driver.Position(),
		TotalSamples:  s.driver.DatasetSize(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProcessBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	var req processRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}
	scenario, err := dataset.ParseScenario(req.Scenario)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var batch model.SensorBatch
	if scenario == dataset.ScenarioMixed {
		if req.BatchSize > 0 {
			s.driver.Configure(req.BatchSize, 0)
		}
		batch = s.driver.NextBatch()
	} else {
		batch, err = s.table.Filter(scenario, req.BatchSize)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	res, err := s.orch.Submit(r.Context(), batch)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, pipeline.ErrBusy):
			status = http.StatusConflict
		case errors.Is(err, pipeline.ErrSchemaMismatch), errors.Is(err, pipeline.ErrEmptyBatch):
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	if s.sink != nil {
		s.sink(res)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStreamStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, _ := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	var req streamRequest
	_ = json.Unmarshal(body, &req)
	if req.BatchSize > 0 || req.DelaySeconds > 0 {
		s.driver.Configure(req.BatchSize, time.Duration(req.DelaySeconds*float64(time.Second)))
	}
	s.driver.Start(s.rootCtx)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "running": s.driver.Running()})
}

func (s *Server) handleStreamStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.driver.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "data_index": s.driver.Position()})
}

func (s *Server) handleStreamReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.driver.Reset()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "data_index": 0})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	var list []*model.AggregatedResult
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		ts, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since timestamp")
			return
		}
		list = s.store.Since(ts)
	} else {
		list = s.store.List(limit)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": list, "count": len(list)})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	res, ok := s.store.Latest()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	res, ok := s.store.Latest()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, RenderReport(res))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"status": "error", "message": msg})
}
