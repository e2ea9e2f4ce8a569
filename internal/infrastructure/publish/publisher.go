// Package publish implements the content publisher against the record store.
// Published items are content rows; the create-versus-update decision belongs
// to the orchestrator, which resolves linked content before publishing.
package publish

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"intelpipeline/internal/domain"
	"intelpipeline/internal/ports"
)

// StorePublisher writes generated content into the record store.
type StorePublisher struct {
	store  ports.RecordStore
	logger *slog.Logger
}

var _ ports.ContentPublisher = (*StorePublisher)(nil)

// NewStorePublisher wires the publisher. logger may be nil.
func NewStorePublisher(store ports.RecordStore, logger *slog.Logger) *StorePublisher {
	return &StorePublisher{store: store, logger: logger}
}

// Create assigns a fresh id and persists the content.
func (p *StorePublisher) Create(ctx context.Context, content domain.GeneratedContent) (string, error) {
	content.ID = uuid.New().String()
	if err := p.store.SaveContent(ctx, content); err != nil {
		return "", fmt.Errorf("create content: %w", err)
	}
	if p.logger != nil {
		p.logger.Info("content created", "id", content.ID, "type", content.ContentType, "title", content.Title)
	}
	return content.ID, nil
}

// Update overwrites the content stored under id. The id must come from a
// previous Create or FindByLinkedID.
func (p *StorePublisher) Update(ctx context.Context, id string, content domain.GeneratedContent) error {
	_, ok, err := p.store.ContentByID(ctx, id)
	if err != nil {
		return fmt.Errorf("update content %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("update content %s: not found", id)
	}

	content.ID = id
	if err := p.store.SaveContent(ctx, content); err != nil {
		return fmt.Errorf("update content %s: %w", id, err)
	}
	if p.logger != nil {
		p.logger.Info("content updated", "id", id, "type", content.ContentType, "title", content.Title)
	}
	return nil
}

// FindByLinkedID resolves the content id linked to an external record.
func (p *StorePublisher) FindByLinkedID(ctx context.Context, linkedID string) (string, bool, error) {
	content, ok, err := p.store.ContentByLinkedID(ctx, linkedID)
	if err != nil {
		return "", false, fmt.Errorf("find content by link %s: %w", linkedID, err)
	}
	if !ok {
		return "", false, nil
	}
	return content.ID, true, nil
}
