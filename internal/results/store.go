package results

import (
	"sync"
	"time"

	"icsguard/internal/model"
)

// Store is a bounded in-memory ring of recent pipeline results, newest
// last. It backs the results endpoints and survives between batches only
// for the life of the process.
type Store struct {
	mu    sync.RWMutex
	buf   []*model.AggregatedResult
	limit int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 500
	}
	return &Store{limit: limit}
}

func (s *Store) Add(res *model.AggregatedResult) {
	if res == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) < s.limit {
		s.buf = append(s.buf, res)
		return
	}
	copy(s.buf, s.buf[1:])
	s.buf[len(s.buf)-1] = res
}

// List returns up to limit most recent results, oldest first.
func (s *Store) List(limit int) []*model.AggregatedResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.buf) {
		limit = len(s.buf)
	}
	out := make([]*model.AggregatedResult, 0, limit)
	for i := len(s.buf) - limit; i < len(s.buf); i++ {
		out = append(out, s.buf[i])
	}
	return out
}

func (s *Store) Latest() (*model.AggregatedResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.buf) == 0 {
		return nil, false
	}
	return s.buf[len(s.buf)-1], true
}

// Since returns results produced at or after ts.
func (s *Store) Since(ts time.Time) []*model.AggregatedResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.AggregatedResult, 0)
	for _, r := range s.buf {
		if !r.Timestamp.Before(ts) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
}
