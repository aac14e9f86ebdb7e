package testsupport

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"muse/internal/config"
	"muse/internal/idea"
)

// MustOpenStore opens an idea.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *idea.Store {
	t.Helper()

	store, err := idea.Open(cfg)
	if err != nil {
		t.Fatalf("idea.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewIdea creates an idea for tests using the provided store.
func NewIdea(t testing.TB, store *idea.Store, creator uuid.UUID, title string) *idea.Idea {
	t.Helper()

	item := &idea.Idea{
		Title:       title,
		Description: "test idea",
		Status:      idea.StageDraft,
		CreatorID:   creator,
	}
	if err := store.Create(context.Background(), item); err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return item
}
