// Package usecase drives the four pipeline operations. Each invocation runs a
// short-lived state machine start to finish within the triggering call; the
// scheduler and the HTTP layer both funnel into the same entry points.
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"intelpipeline/internal/compose"
	"intelpipeline/internal/config"
	"intelpipeline/internal/domain"
	"intelpipeline/internal/ports"
	"intelpipeline/internal/rank"
)

// Version identifies the pipeline build in exports and status reports.
const Version = "1.0.0"

// Operation names, used in log events and scheduler registration.
const (
	OpRefreshIntelligence = "refresh_intelligence"
	OpRefreshCompanies    = "refresh_companies"
	OpGenerateInsight     = "generate_insight_post"
	OpGenerateProfiles    = "generate_company_profiles"
)

// Failure reasons surfaced in outcomes. Fetch failures carry their own reason
// via the source's error type; the rest originate here.
const (
	ReasonTransport  = "TransportError"
	ReasonHTTPStatus = "HttpStatusError"
	ReasonParse      = "ParseError"
	ReasonNoData     = "NoData"
	ReasonNoRelevant = "NoRelevantArticles"
	ReasonPublish    = "PublishError"
	ReasonStore      = "StoreError"
)

// Outcome is the structured result of one operation run. Operations never
// panic and never return Go errors to triggers; the reason string carries the
// failure class.
type Outcome struct {
	Success     bool           `json:"success"`
	ErrorReason string         `json:"error_reason,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

func succeeded(data map[string]any) Outcome {
	return Outcome{Success: true, Data: data}
}

func failed(reason string) Outcome {
	return Outcome{Success: false, ErrorReason: reason}
}

// StatusReport summarizes the stored state for the status endpoint.
type StatusReport struct {
	LastUpdated  time.Time `json:"last_updated"`
	ArticleCount int       `json:"article_count"`
	CompanyCount int       `json:"company_count"`
	Version      string    `json:"version"`
}

// ExportReport is the on-demand JSON document bundling all stored state.
type ExportReport struct {
	ExportDate       string                      `json:"export_date"`
	IntelligenceData domain.IntelligenceSnapshot `json:"intelligence_data"`
	CompanyData      domain.CompanyDataset       `json:"company_data"`
	SystemLogs       []domain.LogEntry           `json:"system_logs"`
	PluginVersion    string                      `json:"plugin_version"`
}

// Deps wires the orchestrator's collaborators. Notifier and Usage may be nil.
type Deps struct {
	Store       ports.RecordStore
	Source      ports.IntelligenceSource
	Publisher   ports.ContentPublisher
	Notifier    ports.Notifier
	Usage       ports.UsageRecorder
	Logger      *slog.Logger
	Relevance   config.RelevanceConfig
	NotifyEmail string
	Seeds       []config.SeedCompany
}

// Orchestrator executes the pipeline operations. A named mutex per operation
// serializes overlapping invocations of the same operation; different
// operations still run concurrently.
type Orchestrator struct {
	store       ports.RecordStore
	source      ports.IntelligenceSource
	publisher   ports.ContentPublisher
	notifier    ports.Notifier
	usage       ports.UsageRecorder
	logger      *slog.Logger
	relevance   config.RelevanceConfig
	notifyEmail string
	seeds       []config.SeedCompany

	muIntelligence sync.Mutex
	muCompanies    sync.Mutex
	muInsight      sync.Mutex
	muProfiles     sync.Mutex

	nowFunc func() time.Time
}

// NewOrchestrator validates the required collaborators and builds the
// orchestrator.
func NewOrchestrator(d Deps) (*Orchestrator, error) {
	if d.Store == nil || d.Source == nil || d.Publisher == nil {
		return nil, errors.New("orchestrator requires store, source and publisher")
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if d.Relevance.Threshold <= 0 {
		d.Relevance.Threshold = rank.DefaultThreshold
	}
	return &Orchestrator{
		store:       d.Store,
		source:      d.Source,
		publisher:   d.Publisher,
		notifier:    d.Notifier,
		usage:       d.Usage,
		logger:      logger,
		relevance:   d.Relevance,
		notifyEmail: d.NotifyEmail,
		seeds:       d.Seeds,
		nowFunc:     time.Now,
	}, nil
}

// RefreshIntelligence fetches the current article dataset and replaces the
// stored snapshot wholesale. Any fetch or validation failure leaves the prior
// snapshot untouched.
func (o *Orchestrator) RefreshIntelligence(ctx context.Context, actor string) Outcome {
	o.muIntelligence.Lock()
	defer o.muIntelligence.Unlock()

	m := NewMachine(OpRefreshIntelligence)
	start := o.nowFunc()

	o.advance(m, StateFetching)
	ds, err := o.source.FetchIntelligence(ctx)
	if err != nil {
		return o.fail(ctx, m, "intelligence_refresh_error", "intelligence refresh failed", actor, reasonFor(err), err)
	}

	o.advance(m, StateValidating)
	for i := range ds.Articles {
		ds.Articles[i].Normalize()
	}

	o.advance(m, StatePersisting)
	now := o.nowFunc().UTC()
	snap := domain.IntelligenceSnapshot{Dataset: ds, LastUpdated: now}
	if err := o.store.SetIntelligence(ctx, snap); err != nil {
		o.advance(m, StateLogging)
		return o.fail(ctx, m, "intelligence_refresh_error", "intelligence refresh failed", actor, ReasonStore, err)
	}

	o.notifyRefresh(ctx, len(ds.Articles), ds.Metadata.DataSource, now)

	data := map[string]any{
		"articles":    len(ds.Articles),
		"data_source": ds.Metadata.DataSource,
		"elapsed_ms":  o.nowFunc().Sub(start).Milliseconds(),
	}
	return o.complete(ctx, m, "intelligence_refreshed", "intelligence dataset refreshed", actor, data)
}

// RefreshCompanies fetches the tracked-company records and replaces the stored
// dataset. Records without a name are skipped individually; an empty or failed
// fetch never erases existing data.
func (o *Orchestrator) RefreshCompanies(ctx context.Context, actor string) Outcome {
	o.muCompanies.Lock()
	defer o.muCompanies.Unlock()

	m := NewMachine(OpRefreshCompanies)
	start := o.nowFunc()

	o.advance(m, StateFetching)
	fetched, err := o.source.FetchCompanies(ctx)
	if err != nil {
		return o.fail(ctx, m, "companies_refresh_error", "company refresh failed", actor, reasonFor(err), err)
	}

	o.advance(m, StateValidating)
	valid := domain.CompanyDataset{}
	skipped := 0
	for id, company := range fetched {
		if company.Name == "" {
			skipped++
			o.logger.Warn("company record skipped", "id", id, "reason", "missing name")
			continue
		}
		valid[id] = company
	}

	if len(valid) == 0 {
		// Zero-row clobber guard: keep whatever is stored.
		o.logger.Info("company refresh returned nothing, keeping stored dataset", "skipped", skipped)
		return o.fail(ctx, m, "companies_refresh_skipped", "company refresh returned no usable records", actor, ReasonNoData, nil)
	}

	o.advance(m, StatePersisting)
	if err := o.store.SetCompanies(ctx, valid); err != nil {
		o.advance(m, StateLogging)
		return o.fail(ctx, m, "companies_refresh_error", "company refresh failed", actor, ReasonStore, err)
	}

	data := map[string]any{
		"companies":  len(valid),
		"skipped":    skipped,
		"elapsed_ms": o.nowFunc().Sub(start).Milliseconds(),
	}
	return o.complete(ctx, m, "companies_refreshed", "company dataset refreshed", actor, data)
}

// GenerateInsightPost composes and publishes the periodic intelligence post
// from the stored snapshot. Empty or irrelevant data is a "nothing to do"
// outcome, not a system failure.
func (o *Orchestrator) GenerateInsightPost(ctx context.Context, actor string) Outcome {
	o.muInsight.Lock()
	defer o.muInsight.Unlock()

	m := NewMachine(OpGenerateInsight)

	o.advance(m, StateFetching)
	snap, err := o.store.Intelligence(ctx)
	if err != nil {
		return o.fail(ctx, m, "insight_generation_error", "insight generation failed", actor, ReasonStore, err)
	}

	o.advance(m, StateValidating)
	if snap.Dataset.Empty() {
		o.logger.Info("no intelligence data, skipping insight generation")
		return o.fail(ctx, m, "insight_generation_skipped", "no intelligence data available", actor, ReasonNoData, nil)
	}

	filtered := rank.FilterRelevant(
		snap.Dataset.Articles,
		o.relevance.Threshold,
		o.relevance.JurisdictionKeywords,
		o.relevance.CategoryKeywords,
	)
	if len(filtered) == 0 {
		o.logger.Info("no relevant articles, skipping insight generation", "total", len(snap.Dataset.Articles))
		return o.fail(ctx, m, "insight_generation_skipped", "no relevant articles in dataset", actor, ReasonNoRelevant, nil)
	}

	ranked := rank.Rank(filtered)
	order, groups := rank.GroupByJurisdiction(ranked)

	o.advance(m, StateComposing)
	content := compose.Insight(order, groups, o.nowFunc().UTC(), o.companyNames(ctx))
	content.CreatedBy = actor

	o.advance(m, StatePublishing)
	id, err := o.publisher.Create(ctx, content)
	if err != nil {
		return o.fail(ctx, m, "insight_generation_error", "insight publish failed", actor, ReasonPublish, err)
	}
	o.recordService("publisher", map[string]any{"content_type": string(domain.ContentInsight), "content_id": id})
	o.recordTokens("composer", content.Body)

	data := map[string]any{
		"content_id":        id,
		"articles_analyzed": len(ranked),
	}
	return o.complete(ctx, m, "insight_generated", "insight post published", actor, data)
}

// GenerateCompanyProfiles re-fetches company records from the source and
// publishes one profile per company, updating in place when a profile is
// already linked. A single failing company is skipped, not fatal.
func (o *Orchestrator) GenerateCompanyProfiles(ctx context.Context, actor string) Outcome {
	o.muProfiles.Lock()
	defer o.muProfiles.Unlock()

	m := NewMachine(OpGenerateProfiles)

	o.advance(m, StateFetching)
	fetched, err := o.source.FetchCompanies(ctx)
	if err != nil {
		return o.fail(ctx, m, "profiles_generation_error", "profile generation failed", actor, reasonFor(err), err)
	}

	o.advance(m, StateValidating)
	ids := make([]string, 0, len(fetched))
	for id, company := range fetched {
		if company.Name == "" {
			o.logger.Warn("company record skipped", "id", id, "reason", "missing name")
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	o.advance(m, StateComposing)
	o.advance(m, StatePublishing)

	now := o.nowFunc().UTC()
	generated, failures := 0, 0
	for _, id := range ids {
		content := compose.CompanyProfile(fetched[id], now)
		content.CreatedBy = actor

		if err := o.publishProfile(ctx, id, content); err != nil {
			failures++
			o.logger.Error("profile publish failed", "company", id, "err", err)
			o.logEvent(ctx, "profile_publish_error", fmt.Sprintf("profile for %s failed", id),
				map[string]any{"company_id": id, "error": err.Error()}, actor)
			continue
		}
		generated++
		o.recordTokens("composer", content.Body)
	}
	o.recordService("publisher", map[string]any{"content_type": string(domain.ContentCompanyProfile), "posts": generated})

	data := map[string]any{
		"posts_generated": generated,
		"failures":        failures,
	}
	return o.complete(ctx, m, "profiles_generated", "company profiles published", actor, data)
}

func (o *Orchestrator) publishProfile(ctx context.Context, companyID string, content domain.GeneratedContent) error {
	existingID, found, err := o.publisher.FindByLinkedID(ctx, companyID)
	if err != nil {
		return err
	}
	if found {
		return o.publisher.Update(ctx, existingID, content)
	}
	_, err = o.publisher.Create(ctx, content)
	return err
}

// UpdateCompanyStatus applies an admin status change: status, notes and the
// update marker change together.
func (o *Orchestrator) UpdateCompanyStatus(ctx context.Context, id, status, notes, actor string) error {
	if id == "" {
		return errors.New("company id is required")
	}
	if status == "" {
		return errors.New("status is required")
	}

	patch := domain.CompanyPatch{Status: status, Notes: notes, UpdatedAt: o.nowFunc().UTC()}
	if err := o.store.UpsertCompany(ctx, id, patch); err != nil {
		return fmt.Errorf("update company %s: %w", id, err)
	}

	o.logEvent(ctx, "company_status_updated", fmt.Sprintf("company %s set to %s", id, status),
		map[string]any{"company_id": id, "status": status}, actor)
	return nil
}

// ExportReport bundles all stored state into one pretty-printed JSON document.
func (o *Orchestrator) ExportReport(ctx context.Context) ([]byte, error) {
	snap, err := o.store.Intelligence(ctx)
	if err != nil {
		return nil, fmt.Errorf("export intelligence: %w", err)
	}
	companies, err := o.store.Companies(ctx)
	if err != nil {
		return nil, fmt.Errorf("export companies: %w", err)
	}
	logs, err := o.store.RecentLogs(ctx, 100)
	if err != nil {
		return nil, fmt.Errorf("export logs: %w", err)
	}

	report := ExportReport{
		ExportDate:       o.nowFunc().UTC().Format(time.RFC3339),
		IntelligenceData: snap,
		CompanyData:      companies,
		SystemLogs:       logs,
		PluginVersion:    Version,
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return out, nil
}

// Status reports the stored counts for the status endpoint.
func (o *Orchestrator) Status(ctx context.Context) (StatusReport, error) {
	snap, err := o.store.Intelligence(ctx)
	if err != nil {
		return StatusReport{}, fmt.Errorf("read intelligence: %w", err)
	}
	companies, err := o.store.Companies(ctx)
	if err != nil {
		return StatusReport{}, fmt.Errorf("read companies: %w", err)
	}
	return StatusReport{
		LastUpdated:  snap.LastUpdated,
		ArticleCount: len(snap.Dataset.Articles),
		CompanyCount: len(companies),
		Version:      Version,
	}, nil
}

// RecentLogs returns the latest event-log entries, newest first.
func (o *Orchestrator) RecentLogs(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	logs, err := o.store.RecentLogs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	return logs, nil
}

// CompanyList returns the tracked companies sorted by id.
func (o *Orchestrator) CompanyList(ctx context.Context) ([]domain.Company, error) {
	companies, err := o.store.Companies(ctx)
	if err != nil {
		return nil, fmt.Errorf("read companies: %w", err)
	}
	ids := make([]string, 0, len(companies))
	for id := range companies {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]domain.Company, 0, len(ids))
	for _, id := range ids {
		out = append(out, companies[id])
	}
	return out, nil
}

// SeedCompanies merges the configured seed companies into the dataset at
// startup. Existing entries are never overwritten.
func (o *Orchestrator) SeedCompanies(ctx context.Context) error {
	if len(o.seeds) == 0 {
		return nil
	}

	companies, err := o.store.Companies(ctx)
	if err != nil {
		return fmt.Errorf("read companies for seeding: %w", err)
	}
	if companies == nil {
		companies = domain.CompanyDataset{}
	}

	added := 0
	now := o.nowFunc().UTC().Format("2006-01-02 15:04:05")
	for _, seed := range o.seeds {
		if seed.Name == "" {
			continue
		}
		id := domain.Slug(seed.Name)
		if _, exists := companies[id]; exists {
			continue
		}
		status := seed.Status
		if status == "" {
			status = domain.StatusUnknown
		}
		companies[id] = domain.Company{
			ID:          id,
			Name:        seed.Name,
			Industry:    seed.Industry,
			Status:      status,
			Source:      "seed",
			LastUpdated: now,
		}
		added++
	}

	if added == 0 {
		return nil
	}
	if err := o.store.SetCompanies(ctx, companies); err != nil {
		return fmt.Errorf("persist seeded companies: %w", err)
	}

	o.logger.Info("companies seeded", "added", added)
	o.logEvent(ctx, "companies_seeded", "seed companies merged", map[string]any{"added": added}, "system")
	return nil
}

func (o *Orchestrator) companyNames(ctx context.Context) []string {
	companies, err := o.store.Companies(ctx)
	if err != nil {
		o.logger.Warn("cannot load companies for mention tagging", "err", err)
		return nil
	}
	names := make([]string, 0, len(companies))
	for _, c := range companies {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)
	return names
}

func (o *Orchestrator) notifyRefresh(ctx context.Context, articles int, dataSource string, at time.Time) {
	if o.notifier == nil || o.notifyEmail == "" {
		return
	}

	subject := "Intelligence Refresh Complete"
	body := fmt.Sprintf("The intelligence dataset was refreshed at %s.\n\nArticles: %d\nSource: %s\n",
		at.Format(time.RFC1123), articles, dataSource)
	if err := o.notifier.Send(ctx, o.notifyEmail, subject, body); err != nil {
		// Notification failure never fails the refresh.
		o.logger.Warn("refresh notification failed", "err", err)
	}
}

func (o *Orchestrator) complete(ctx context.Context, m *Machine, eventType, message, actor string, data map[string]any) Outcome {
	o.advance(m, StateLogging)
	o.logEvent(ctx, eventType, message, data, actor)
	o.advance(m, StateDone)
	o.logger.Info(message, "event", eventType, "actor", actor)
	return succeeded(data)
}

// fail logs the failure and moves the machine to Failed. Failure event types
// contain "error"; skip events use "_skipped". Log viewers classify entries
// on the "error" substring.
func (o *Orchestrator) fail(ctx context.Context, m *Machine, eventType, message, actor, reason string, err error) Outcome {
	data := map[string]any{"error_reason": reason}
	if err != nil {
		data["error"] = err.Error()
		o.logger.Error(message, "reason", reason, "err", err)
	} else {
		o.logger.Info(message, "reason", reason)
	}
	o.logEvent(ctx, eventType, message, data, actor)
	o.advance(m, StateFailed)
	return failed(reason)
}

// advance moves the machine; an invalid transition is logged, never panicked.
func (o *Orchestrator) advance(m *Machine, next State) {
	if err := m.To(next); err != nil {
		o.logger.Warn("operation state machine", "err", err)
	}
}

func (o *Orchestrator) logEvent(ctx context.Context, eventType, message string, data map[string]any, actor string) {
	entry := domain.LogEntry{
		Timestamp: o.nowFunc().UTC(),
		EventType: eventType,
		Message:   message,
		Data:      data,
		UserID:    actor,
	}
	if err := o.store.AppendLog(ctx, entry); err != nil {
		o.logger.Warn("cannot append event log", "event", eventType, "err", err)
	}
}

func (o *Orchestrator) recordService(service string, details map[string]any) {
	if o.usage != nil {
		o.usage.RecordService(service, details)
	}
}

// recordTokens books an estimated token spend for locally composed content,
// at four bytes per token and zero cost.
func (o *Orchestrator) recordTokens(service, body string) {
	if o.usage == nil || body == "" {
		return
	}
	tokens := len(body) / 4
	if tokens == 0 {
		tokens = 1
	}
	o.usage.RecordTokens(service, tokens, 0)
}

// reasonFor maps a source error onto the failure taxonomy.
func reasonFor(err error) string {
	var classified interface{ FailureReason() string }
	if errors.As(err, &classified) {
		return classified.FailureReason()
	}
	return ReasonTransport
}
