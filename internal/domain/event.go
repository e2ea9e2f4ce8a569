package domain

import "time"

// LogEntry is one audit event in the append-only event log. The log is
// bounded; the oldest entries are evicted first.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	EventType string         `json:"event_type"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
}

// MaxLogEntries caps the event log. Eviction is FIFO: entries are never read
// in a way that should affect their eviction order.
const MaxLogEntries = 1000
