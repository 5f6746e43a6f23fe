package pipeline

import "sync"

// RateHistory is a bounded rolling window of recent per-batch anomaly
// rates, used for temporal-pattern scoring. Safe for concurrent use.
type RateHistory struct {
	mu    sync.Mutex
	rates []float64
	limit int
}

func NewRateHistory(limit int) *RateHistory {
	if limit <= 0 {
		limit = 10
	}
	return &RateHistory{limit: limit}
}

func (h *RateHistory) Add(rate float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rates = append(h.rates, rate)
	if len(h.rates) > h.limit {
		h.rates = h.rates[len(h.rates)-h.limit:]
	}
}

func (h *RateHistory) Snapshot() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]float64, len(h.rates))
	copy(out, h.rates)
	return out
}

func (h *RateHistory) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rates = nil
}
