package publish

import (
	"context"
	"testing"

	"intelpipeline/internal/domain"
	"intelpipeline/internal/infrastructure/storage"
)

func TestCreateAssignsID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore(0, 0)
	p := NewStorePublisher(store, nil)

	id, err := p.Create(ctx, domain.GeneratedContent{Title: "Insight", ContentType: domain.ContentInsight})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatal("empty id")
	}

	got, ok, err := store.ContentByID(ctx, id)
	if err != nil || !ok {
		t.Fatalf("content not stored: ok=%v err=%v", ok, err)
	}
	if got.Title != "Insight" {
		t.Fatalf("unexpected content %+v", got)
	}
}

func TestUpdateRequiresExisting(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := NewStorePublisher(storage.NewMemoryStore(0, 0), nil)

	if err := p.Update(ctx, "missing", domain.GeneratedContent{Title: "x"}); err == nil {
		t.Fatal("update of unknown id must fail")
	}
}

func TestUpdateKeepsID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore(0, 0)
	p := NewStorePublisher(store, nil)

	id, err := p.Create(ctx, domain.GeneratedContent{Title: "v1", LinkedID: "acme"})
	if err != nil {
		t.Fatal(err)
	}

	if err := p.Update(ctx, id, domain.GeneratedContent{Title: "v2", LinkedID: "acme"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, ok, _ := store.ContentByID(ctx, id)
	if !ok || got.Title != "v2" {
		t.Fatalf("update not applied: %+v", got)
	}

	foundID, ok, err := p.FindByLinkedID(ctx, "acme")
	if err != nil || !ok || foundID != id {
		t.Fatalf("FindByLinkedID = %q ok=%v err=%v, want %q", foundID, ok, err, id)
	}
}
