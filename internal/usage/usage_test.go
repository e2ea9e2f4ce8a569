package usage

import (
	"sync"
	"testing"
	"time"
)

func TestTrackerTotals(t *testing.T) {
	t.Parallel()

	tr := NewTracker(nil)
	tr.RecordAPICall("provider", "/data", 200, 120*time.Millisecond)
	tr.RecordAPICall("provider", "/companies", 500, 80*time.Millisecond)
	tr.RecordTokens("composer", 1500, 0.002)
	tr.RecordTokens("composer", 500, 0)
	tr.RecordService("publisher", map[string]any{"posts": 3})

	s := tr.Summarize()
	if s.TotalAPICalls != 2 {
		t.Fatalf("TotalAPICalls = %d, want 2", s.TotalAPICalls)
	}
	if s.TotalTokens != 2000 {
		t.Fatalf("TotalTokens = %d, want 2000", s.TotalTokens)
	}
	wantCost := 1.5 * 0.002
	if diff := s.TotalCost - wantCost; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("TotalCost = %f, want %f", s.TotalCost, wantCost)
	}
	if len(s.Costs) != 1 {
		t.Fatalf("len(Costs) = %d, want 1 (zero-cost spend must not add an entry)", len(s.Costs))
	}
	if len(s.Services) != 1 {
		t.Fatalf("len(Services) = %d, want 1", len(s.Services))
	}
}

func TestTrackerReset(t *testing.T) {
	t.Parallel()

	tr := NewTracker(nil)
	tr.RecordAPICall("provider", "/data", 200, time.Millisecond)

	final := tr.Reset()
	if final.TotalAPICalls != 1 {
		t.Fatalf("final summary lost calls: %d", final.TotalAPICalls)
	}

	after := tr.Summarize()
	if after.TotalAPICalls != 0 || after.TotalTokens != 0 {
		t.Fatal("reset did not clear counters")
	}
}

func TestTrackerConcurrentAppends(t *testing.T) {
	t.Parallel()

	tr := NewTracker(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.RecordAPICall("provider", "/data", 200, time.Millisecond)
			tr.RecordTokens("composer", 10, 0.001)
		}()
	}
	wg.Wait()

	s := tr.Summarize()
	if s.TotalAPICalls != 50 {
		t.Fatalf("lost api calls under concurrency: %d", s.TotalAPICalls)
	}
	if s.TotalTokens != 500 {
		t.Fatalf("lost token records under concurrency: %d", s.TotalTokens)
	}
}
