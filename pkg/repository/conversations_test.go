package repository

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akozyrev/gemini-studio-bot/pkg/database"
	"github.com/akozyrev/gemini-studio-bot/pkg/domain"
)

func newTestRepository(t *testing.T, key string) *conversationsRepository {
	t.Helper()

	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewConversationsRepository(db, key)
}

func TestSaveUpsertsOnSameID(t *testing.T) {
	repo := newTestRepository(t, ChatStoreKey)
	ctx := context.Background()

	msgsA := []domain.ChatMessage{{Role: domain.ChatMessageRoleUser, Text: "first"}}
	msgsB := []domain.ChatMessage{
		{Role: domain.ChatMessageRoleUser, Text: "first"},
		{Role: domain.ChatMessageRoleModel, Text: "reply"},
	}

	if err := repo.Save(ctx, "c1", msgsA); err != nil {
		t.Fatalf("first save: %v", err)
	}

	loaded, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	firstTimestamp := loaded[0].Timestamp

	if err := repo.Save(ctx, "c1", msgsB); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err = repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(loaded) != 1 {
		t.Fatalf("expected exactly one conversation, got %d", len(loaded))
	}
	if len(loaded[0].Messages) != 2 || loaded[0].Messages[1].Text != "reply" {
		t.Errorf("expected messages replaced by second save, got %+v", loaded[0].Messages)
	}
	if loaded[0].Timestamp.Before(firstTimestamp) {
		t.Errorf("expected timestamp refreshed, got %v before %v", loaded[0].Timestamp, firstTimestamp)
	}
}

func TestTitleDerivation(t *testing.T) {
	tests := []struct {
		name          string
		firstMessage  string
		expectedTitle string
	}{
		{"short verbatim", "hello there", "hello there"},
		{"exactly forty", strings.Repeat("a", 40), strings.Repeat("a", 40)},
		{"truncated", strings.Repeat("b", 41), strings.Repeat("b", 40) + "…"},
		{"multibyte runes", strings.Repeat("ы", 50), strings.Repeat("ы", 40) + "…"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			repo := newTestRepository(t, ChatStoreKey)
			ctx := context.Background()

			msgs := []domain.ChatMessage{{Role: domain.ChatMessageRoleUser, Text: test.firstMessage}}
			if err := repo.Save(ctx, "c1", msgs); err != nil {
				t.Fatalf("save: %v", err)
			}

			loaded, err := repo.Load(ctx)
			if err != nil {
				t.Fatalf("load: %v", err)
			}

			if loaded[0].Title != test.expectedTitle {
				t.Errorf("expected title %q, got %q", test.expectedTitle, loaded[0].Title)
			}
		})
	}
}

func TestMessageOrderPreserved(t *testing.T) {
	repo := newTestRepository(t, ChatStoreKey)
	ctx := context.Background()

	msgs := []domain.ChatMessage{
		{Role: domain.ChatMessageRoleUser, Text: "m1"},
		{Role: domain.ChatMessageRoleModel, Text: "m2"},
		{Role: domain.ChatMessageRoleUser, Text: "m3"},
	}

	if err := repo.Save(ctx, "c1", msgs); err != nil {
		t.Fatalf("save: %v", err)
	}

	msgs = append(msgs, domain.ChatMessage{Role: domain.ChatMessageRoleModel, Text: "m4"})
	if err := repo.Save(ctx, "c1", msgs); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	for i, want := range []string{"m1", "m2", "m3", "m4"} {
		if loaded[0].Messages[i].Text != want {
			t.Errorf("message %d: expected %q, got %q", i, want, loaded[0].Messages[i].Text)
		}
	}
}

func TestLoadOrdersMostRecentFirst(t *testing.T) {
	repo := newTestRepository(t, ChatStoreKey)
	ctx := context.Background()

	for _, id := range []string{"c1", "c2", "c3"} {
		if err := repo.Save(ctx, id, []domain.ChatMessage{{Role: domain.ChatMessageRoleUser, Text: id}}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	// Touching c1 again should move it to the front.
	if err := repo.Save(ctx, "c1", []domain.ChatMessage{
		{Role: domain.ChatMessageRoleUser, Text: "c1"},
		{Role: domain.ChatMessageRoleModel, Text: "reply"},
	}); err != nil {
		t.Fatalf("re-save c1: %v", err)
	}

	loaded, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(loaded) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(loaded))
	}
	if loaded[0].ID != "c1" {
		t.Errorf("expected c1 first after update, got %s", loaded[0].ID)
	}
	for i := 0; i < len(loaded)-1; i++ {
		if loaded[i].Timestamp.Before(loaded[i+1].Timestamp) {
			t.Errorf("conversations not in most-recent-first order at %d", i)
		}
	}
}

func TestDelete(t *testing.T) {
	repo := newTestRepository(t, ChatStoreKey)
	ctx := context.Background()

	for _, id := range []string{"c1", "c2"} {
		if err := repo.Save(ctx, id, []domain.ChatMessage{{Role: domain.ChatMessageRoleUser, Text: id}}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	if err := repo.Delete(ctx, "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	loaded, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(loaded) != 1 || loaded[0].ID != "c2" {
		t.Errorf("expected only c2 to remain, got %+v", loaded)
	}
}

func TestSurfaceKeysDoNotMix(t *testing.T) {
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	chatRepo := NewConversationsRepository(db, ChatStoreKey)
	reasoningRepo := NewConversationsRepository(db, ReasoningStoreKey)
	ctx := context.Background()

	if err := chatRepo.Save(ctx, "c1", []domain.ChatMessage{{Role: domain.ChatMessageRoleUser, Text: "chat"}}); err != nil {
		t.Fatalf("save chat: %v", err)
	}

	loaded, err := reasoningRepo.Load(ctx)
	if err != nil {
		t.Fatalf("load reasoning: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected reasoning surface empty, got %d conversations", len(loaded))
	}
}
