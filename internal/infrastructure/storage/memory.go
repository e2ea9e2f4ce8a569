// Package storage provides the RecordStore drivers: an in-memory store for
// tests and single-process runs, a Postgres store and a Redis store. All three
// enforce the same write discipline: a snapshot and its refresh marker change
// as one value, and read-modify-write sequences are serialized.
package storage

import (
	"context"
	"sync"
	"time"

	"intelpipeline/internal/domain"
	"intelpipeline/internal/ports"
)

// MemoryStore keeps every collection in process memory behind one mutex.
type MemoryStore struct {
	mu           sync.Mutex
	intelligence domain.IntelligenceSnapshot
	companies    domain.CompanyDataset
	logs         []domain.LogEntry
	content      map[string]domain.GeneratedContent

	maxLogEntries int
	logMaxAge     time.Duration
	nowFunc       func() time.Time
}

var _ ports.RecordStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store. maxLogEntries <= 0 falls back to the
// domain default; logMaxAge <= 0 disables age-based pruning.
func NewMemoryStore(maxLogEntries int, logMaxAge time.Duration) *MemoryStore {
	if maxLogEntries <= 0 {
		maxLogEntries = domain.MaxLogEntries
	}
	return &MemoryStore{
		companies:     domain.CompanyDataset{},
		content:       map[string]domain.GeneratedContent{},
		maxLogEntries: maxLogEntries,
		logMaxAge:     logMaxAge,
		nowFunc:       time.Now,
	}
}

// Intelligence returns the current snapshot. A zero snapshot means no refresh
// has succeeded yet.
func (m *MemoryStore) Intelligence(context.Context) (domain.IntelligenceSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySnapshot(m.intelligence), nil
}

// SetIntelligence replaces the snapshot wholesale.
func (m *MemoryStore) SetIntelligence(_ context.Context, snap domain.IntelligenceSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intelligence = copySnapshot(snap)
	return nil
}

func (m *MemoryStore) Companies(context.Context) (domain.CompanyDataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyCompanies(m.companies), nil
}

func (m *MemoryStore) SetCompanies(_ context.Context, ds domain.CompanyDataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies = copyCompanies(ds)
	return nil
}

// UpsertCompany applies one patch under the store lock so concurrent updates
// to different companies never lose each other.
func (m *MemoryStore) UpsertCompany(_ context.Context, id string, patch domain.CompanyPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	company, ok := m.companies[id]
	if !ok {
		company = domain.Company{ID: id, Status: domain.StatusUnknown}
	}
	applyPatch(&company, patch)
	m.companies[id] = company
	return nil
}

// AppendLog appends one entry and prunes: first by age when configured, then
// FIFO down to the entry cap.
func (m *MemoryStore) AppendLog(_ context.Context, entry domain.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logs = append(m.logs, entry)
	m.logs = pruneLogs(m.logs, m.maxLogEntries, m.logMaxAge, m.nowFunc())
	return nil
}

// RecentLogs returns up to limit entries, newest first. limit <= 0 returns all.
func (m *MemoryStore) RecentLogs(_ context.Context, limit int) ([]domain.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return recentFrom(m.logs, limit), nil
}

func (m *MemoryStore) SaveContent(_ context.Context, content domain.GeneratedContent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[content.ID] = content
	return nil
}

func (m *MemoryStore) ContentByID(_ context.Context, id string) (domain.GeneratedContent, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.content[id]
	return c, ok, nil
}

func (m *MemoryStore) ContentByLinkedID(_ context.Context, linkedID string) (domain.GeneratedContent, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.content {
		if c.LinkedID == linkedID && linkedID != "" {
			return c, true, nil
		}
	}
	return domain.GeneratedContent{}, false, nil
}

func copySnapshot(snap domain.IntelligenceSnapshot) domain.IntelligenceSnapshot {
	out := snap
	out.Dataset.Articles = append([]domain.Article(nil), snap.Dataset.Articles...)
	return out
}

func copyCompanies(ds domain.CompanyDataset) domain.CompanyDataset {
	out := make(domain.CompanyDataset, len(ds))
	for id, c := range ds {
		out[id] = c
	}
	return out
}

// applyPatch mutates company per the patch; empty patch fields leave the
// current value alone, matching partial-update semantics.
func applyPatch(company *domain.Company, patch domain.CompanyPatch) {
	if patch.Status != "" {
		company.Status = patch.Status
	}
	if patch.Notes != "" {
		company.Notes = patch.Notes
	}
	if !patch.UpdatedAt.IsZero() {
		company.LastUpdated = patch.UpdatedAt.UTC().Format("2006-01-02 15:04:05")
	}
}

func pruneLogs(logs []domain.LogEntry, maxEntries int, maxAge time.Duration, now time.Time) []domain.LogEntry {
	if maxAge > 0 {
		cutoff := now.Add(-maxAge)
		kept := logs[:0]
		for _, e := range logs {
			if !e.Timestamp.Before(cutoff) {
				kept = append(kept, e)
			}
		}
		logs = kept
	}
	if maxEntries > 0 && len(logs) > maxEntries {
		logs = append([]domain.LogEntry(nil), logs[len(logs)-maxEntries:]...)
	}
	return logs
}

func recentFrom(logs []domain.LogEntry, limit int) []domain.LogEntry {
	n := len(logs)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.LogEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, logs[i])
	}
	return out
}
