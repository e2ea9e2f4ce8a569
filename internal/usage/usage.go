// Package usage accumulates run-scoped service counters: API calls, token
// consumption and derived costs. A Tracker may be shared across concurrent
// operations; every record and read is mutex-guarded.
package usage

import (
	"log/slog"
	"sync"
	"time"

	"intelpipeline/internal/ports"
)

// APICall records one outbound provider request.
type APICall struct {
	Service      string        `json:"service"`
	Endpoint     string        `json:"endpoint"`
	Timestamp    time.Time     `json:"timestamp"`
	ResponseCode int           `json:"response_code"`
	ResponseTime time.Duration `json:"response_time"`
}

// TokenUsage records one model/token spend event.
type TokenUsage struct {
	Service    string    `json:"service"`
	TokensUsed int       `json:"tokens_used"`
	Timestamp  time.Time `json:"timestamp"`
	Cost       float64   `json:"cost,omitempty"`
}

// CostEntry is the derived cost of one token spend.
type CostEntry struct {
	Service string  `json:"service"`
	Cost    float64 `json:"cost"`
	Tokens  int     `json:"tokens"`
}

// ServiceUsage records a generic service event with free-form details.
type ServiceUsage struct {
	Service   string         `json:"service"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Summary is a point-in-time rollup of the tracker.
type Summary struct {
	StartTime     time.Time      `json:"start_time"`
	Elapsed       time.Duration  `json:"elapsed"`
	TotalAPICalls int            `json:"total_api_calls"`
	TotalTokens   int            `json:"total_tokens"`
	TotalCost     float64        `json:"total_cost"`
	APICalls      []APICall      `json:"api_calls"`
	TokensUsed    []TokenUsage   `json:"tokens_used"`
	Costs         []CostEntry    `json:"costs"`
	Services      []ServiceUsage `json:"services"`
}

// Tracker implements ports.UsageRecorder.
type Tracker struct {
	mu        sync.Mutex
	startTime time.Time
	apiCalls  []APICall
	tokens    []TokenUsage
	costs     []CostEntry
	services  []ServiceUsage
	logger    *slog.Logger
	now       func() time.Time
}

var _ ports.UsageRecorder = (*Tracker)(nil)

// NewTracker returns an empty tracker. The logger may be nil.
func NewTracker(logger *slog.Logger) *Tracker {
	t := &Tracker{logger: logger, now: time.Now}
	t.startTime = t.now()
	return t
}

// RecordAPICall appends one outbound-call record.
func (t *Tracker) RecordAPICall(service, endpoint string, statusCode int, elapsed time.Duration) {
	t.mu.Lock()
	t.apiCalls = append(t.apiCalls, APICall{
		Service:      service,
		Endpoint:     endpoint,
		Timestamp:    t.now(),
		ResponseCode: statusCode,
		ResponseTime: elapsed,
	})
	t.mu.Unlock()

	if t.logger != nil {
		t.logger.Info("api call", "service", service, "endpoint", endpoint,
			"status", statusCode, "elapsed", elapsed)
	}
}

// RecordTokens appends a token-spend record; a positive costPer1K also
// produces a cost entry.
func (t *Tracker) RecordTokens(service string, tokens int, costPer1K float64) {
	entry := TokenUsage{Service: service, TokensUsed: tokens, Timestamp: t.now()}

	t.mu.Lock()
	if costPer1K > 0 {
		entry.Cost = float64(tokens) / 1000 * costPer1K
		t.costs = append(t.costs, CostEntry{Service: service, Cost: entry.Cost, Tokens: tokens})
	}
	t.tokens = append(t.tokens, entry)
	t.mu.Unlock()

	if t.logger != nil {
		t.logger.Info("token usage", "service", service, "tokens", tokens, "cost", entry.Cost)
	}
}

// RecordService appends a free-form service event.
func (t *Tracker) RecordService(service string, details map[string]any) {
	t.mu.Lock()
	t.services = append(t.services, ServiceUsage{Service: service, Details: details, Timestamp: t.now()})
	t.mu.Unlock()
}

// Summarize returns the current rollup without resetting.
func (t *Tracker) Summarize() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Summary{
		StartTime:     t.startTime,
		Elapsed:       t.now().Sub(t.startTime),
		TotalAPICalls: len(t.apiCalls),
		APICalls:      append([]APICall(nil), t.apiCalls...),
		TokensUsed:    append([]TokenUsage(nil), t.tokens...),
		Costs:         append([]CostEntry(nil), t.costs...),
		Services:      append([]ServiceUsage(nil), t.services...),
	}
	for _, tu := range t.tokens {
		s.TotalTokens += tu.TokensUsed
	}
	for _, c := range t.costs {
		s.TotalCost += c.Cost
	}
	return s
}

// Reset logs a final summary line and clears all counters. Stats are
// run-scoped and never persisted; this is the end-of-run boundary.
func (t *Tracker) Reset() Summary {
	s := t.Summarize()

	if t.logger != nil {
		t.logger.Info("usage summary",
			"elapsed", s.Elapsed,
			"api_calls", s.TotalAPICalls,
			"tokens", s.TotalTokens,
			"cost", s.TotalCost)
	}

	t.mu.Lock()
	t.startTime = t.now()
	t.apiCalls = nil
	t.tokens = nil
	t.costs = nil
	t.services = nil
	t.mu.Unlock()

	return s
}
