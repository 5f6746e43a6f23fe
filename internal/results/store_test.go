package results

import (
	"fmt"
	"testing"
	"time"

	"icsguard/internal/model"
)

func result(i int, ts time.Time) *model.AggregatedResult {
	return &model.AggregatedResult{
		ID:        fmt.Sprintf("r-%d", i),
		Timestamp: ts,
		State:     model.StateCompleted,
	}
}

func TestStoreRingEviction(t *testing.T) {
	s := NewStore(3)
	base := time.Now()
	for i := 0; i < 5; i++ {
		s.Add(result(i, base.Add(time.Duration(i)*time.Second)))
	}
	got := s.List(0)
	if len(got) != 3 {
		t.Fatalf("stored = %d, want 3", len(got))
	}
	if got[0].ID != "r-2" || got[2].ID != "r-4" {
		t.Fatalf("ring contents = %s..%s", got[0].ID, got[2].ID)
	}
}

func TestStoreListLimit(t *testing.T) {
	s := NewStore(10)
	base := time.Now()
	for i := 0; i < 5; i++ {
		s.Add(result(i, base))
	}
	got := s.List(2)
	if len(got) != 2 {
		t.Fatalf("list(2) = %d entries", len(got))
	}
	if got[1].ID != "r-4" {
		t.Fatalf("newest entry = %s", got[1].ID)
	}
}

func TestStoreLatest(t *testing.T) {
	s := NewStore(10)
	if _, ok := s.Latest(); ok {
		t.Fatalf("empty store reported a latest result")
	}
	s.Add(result(1, time.Now()))
	s.Add(result(2, time.Now()))
	latest, ok := s.Latest()
	if !ok || latest.ID != "r-2" {
		t.Fatalf("latest = %v, %v", latest, ok)
	}
}

func TestStoreSince(t *testing.T) {
	s := NewStore(10)
	base := time.Now()
	for i := 0; i < 4; i++ {
		s.Add(result(i, base.Add(time.Duration(i)*time.Minute)))
	}
	got := s.Since(base.Add(2 * time.Minute))
	if len(got) != 2 {
		t.Fatalf("since = %d entries, want 2", len(got))
	}
}

func TestStoreIgnoresNil(t *testing.T) {
	s := NewStore(10)
	s.Add(nil)
	if len(s.List(0)) != 0 {
		t.Fatalf("nil result was stored")
	}
}
