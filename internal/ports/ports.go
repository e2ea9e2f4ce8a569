package ports

import (
	"context"
	"time"

	"intelpipeline/internal/domain"
)

// IntelligenceSource pulls fresh articles and company records from upstream.
type IntelligenceSource interface {
	FetchIntelligence(ctx context.Context) (domain.IntelligenceDataset, error)
	FetchCompanies(ctx context.Context) (map[string]domain.Company, error)
}

// RecordStore is the key-value persistence boundary for the three logical
// collections plus generated content. Implementations guard every
// read-modify-write sequence so concurrent callers never tear a write.
type RecordStore interface {
	Intelligence(ctx context.Context) (domain.IntelligenceSnapshot, error)
	SetIntelligence(ctx context.Context, snap domain.IntelligenceSnapshot) error

	Companies(ctx context.Context) (domain.CompanyDataset, error)
	SetCompanies(ctx context.Context, ds domain.CompanyDataset) error
	UpsertCompany(ctx context.Context, id string, patch domain.CompanyPatch) error

	AppendLog(ctx context.Context, entry domain.LogEntry) error
	RecentLogs(ctx context.Context, limit int) ([]domain.LogEntry, error)

	SaveContent(ctx context.Context, content domain.GeneratedContent) error
	ContentByID(ctx context.Context, id string) (domain.GeneratedContent, bool, error)
	ContentByLinkedID(ctx context.Context, linkedID string) (domain.GeneratedContent, bool, error)
}

// ContentPublisher creates or updates content records in the host CMS.
type ContentPublisher interface {
	Create(ctx context.Context, content domain.GeneratedContent) (string, error)
	Update(ctx context.Context, id string, content domain.GeneratedContent) error
	FindByLinkedID(ctx context.Context, linkedID string) (string, bool, error)
}

// Notifier delivers a message to a configured address after notable events.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Scheduler drives periodic operation runs. Invocation is at-least-once and
// may overlap; callers provide their own exclusion.
type Scheduler interface {
	Register(spec string, job func(time.Time)) error
	Start()
	Stop(ctx context.Context) error
}

// UsageRecorder accumulates run-scoped usage counters.
type UsageRecorder interface {
	RecordAPICall(service, endpoint string, statusCode int, elapsed time.Duration)
	RecordTokens(service string, tokens int, costPer1K float64)
	RecordService(service string, details map[string]any)
}
