package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/akozyrev/gemini-studio-bot/pkg/domain"
)

type fakeTextGenerator struct {
	answer    string
	histories [][]domain.ChatMessage
	reasoning []bool
}

func (f *fakeTextGenerator) GenerateText(_ context.Context, _ string, history []domain.ChatMessage, reasoning bool) (string, error) {
	snapshot := make([]domain.ChatMessage, len(history))
	copy(snapshot, history)
	f.histories = append(f.histories, snapshot)
	f.reasoning = append(f.reasoning, reasoning)
	return f.answer, nil
}

type fakeConversationsRepo struct {
	saved    map[string][]domain.ChatMessage
	saveIDs  []string
	deleted  []string
	loadBack []domain.Conversation
}

func newFakeConversationsRepo() *fakeConversationsRepo {
	return &fakeConversationsRepo{saved: make(map[string][]domain.ChatMessage)}
}

func (f *fakeConversationsRepo) Load(context.Context) ([]domain.Conversation, error) {
	return f.loadBack, nil
}

func (f *fakeConversationsRepo) Save(_ context.Context, id string, messages []domain.ChatMessage) error {
	snapshot := make([]domain.ChatMessage, len(messages))
	copy(snapshot, messages)
	f.saved[id] = snapshot
	f.saveIDs = append(f.saveIDs, id)
	return nil
}

func (f *fakeConversationsRepo) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestConverseAppendsTurnsInOrder(t *testing.T) {
	gen := &fakeTextGenerator{answer: "answer"}
	chatRepo := newFakeConversationsRepo()
	reasoningRepo := newFakeConversationsRepo()
	responseCh := make(chan domain.Response, 16)

	s := NewChatService(gen, chatRepo, reasoningRepo, responseCh)
	ctx := context.Background()

	s.Converse(ctx, 42, "first question", false)
	s.Converse(ctx, 42, "second question", false)

	if len(gen.histories) != 2 {
		t.Fatalf("expected 2 generator calls, got %d", len(gen.histories))
	}
	if len(gen.histories[0]) != 0 {
		t.Errorf("first turn must see empty history, saw %d messages", len(gen.histories[0]))
	}
	if len(gen.histories[1]) != 2 {
		t.Fatalf("second turn must see 2 prior messages, saw %d", len(gen.histories[1]))
	}
	if gen.histories[1][0].Text != "first question" || gen.histories[1][0].Role != domain.ChatMessageRoleUser {
		t.Errorf("unexpected first history entry: %+v", gen.histories[1][0])
	}
	if gen.histories[1][1].Text != "answer" || gen.histories[1][1].Role != domain.ChatMessageRoleModel {
		t.Errorf("unexpected second history entry: %+v", gen.histories[1][1])
	}

	if len(chatRepo.saveIDs) != 2 {
		t.Fatalf("expected 2 persists, got %d", len(chatRepo.saveIDs))
	}
	if chatRepo.saveIDs[0] != chatRepo.saveIDs[1] {
		t.Errorf("both turns must persist the same conversation id, got %v", chatRepo.saveIDs)
	}

	saved := chatRepo.saved[chatRepo.saveIDs[0]]
	want := []string{"first question", "answer", "second question", "answer"}
	if len(saved) != len(want) {
		t.Fatalf("expected %d persisted messages, got %d", len(want), len(saved))
	}
	for i, text := range want {
		if saved[i].Text != text {
			t.Errorf("persisted message %d: expected %q, got %q", i, text, saved[i].Text)
		}
	}
}

func TestConverseSerializesConcurrentTurns(t *testing.T) {
	gen := &fakeTextGenerator{answer: "answer"}
	chatRepo := newFakeConversationsRepo()

	s := NewChatService(gen, chatRepo, newFakeConversationsRepo(), make(chan domain.Response, 64))

	const turns = 8
	var wg sync.WaitGroup
	wg.Add(turns)
	for i := 0; i < turns; i++ {
		go func(i int) {
			defer wg.Done()
			s.Converse(context.Background(), 42, fmt.Sprintf("question %d", i), false)
		}(i)
	}
	wg.Wait()

	if len(chatRepo.saveIDs) != turns {
		t.Fatalf("expected %d persists, got %d", turns, len(chatRepo.saveIDs))
	}

	saved := chatRepo.saved[chatRepo.saveIDs[0]]
	if len(saved) != 2*turns {
		t.Fatalf("expected %d persisted messages, got %d", 2*turns, len(saved))
	}
	for i, msg := range saved {
		wantRole := domain.ChatMessageRoleUser
		if i%2 == 1 {
			wantRole = domain.ChatMessageRoleModel
		}
		if msg.Role != wantRole {
			t.Errorf("message %d: expected role %s, got %s", i, wantRole, msg.Role)
		}
	}

	// Every turn must have seen a complete history snapshot; no two turns
	// may have observed the same one.
	lengths := make([]int, 0, len(gen.histories))
	for _, h := range gen.histories {
		lengths = append(lengths, len(h))
	}
	sort.Ints(lengths)
	for i, l := range lengths {
		if l != 2*i {
			t.Fatalf("expected history lengths 0,2,4,..., got %v", lengths)
		}
	}
}

func TestConverseKeepsSurfacesSeparate(t *testing.T) {
	gen := &fakeTextGenerator{answer: "answer"}
	chatRepo := newFakeConversationsRepo()
	reasoningRepo := newFakeConversationsRepo()

	s := NewChatService(gen, chatRepo, reasoningRepo, make(chan domain.Response, 16))
	ctx := context.Background()

	s.Converse(ctx, 42, "plain", false)
	s.Converse(ctx, 42, "deep", true)

	if len(chatRepo.saved) != 1 || len(reasoningRepo.saved) != 1 {
		t.Fatalf("expected one conversation per surface, got chat=%d reasoning=%d",
			len(chatRepo.saved), len(reasoningRepo.saved))
	}
	if !gen.reasoning[1] || gen.reasoning[0] {
		t.Errorf("reasoning flags not forwarded: %v", gen.reasoning)
	}
	if len(gen.histories[1]) != 0 {
		t.Errorf("reasoning surface must not see chat surface history, saw %d messages", len(gen.histories[1]))
	}
}

func TestStartNewConversationRotatesID(t *testing.T) {
	gen := &fakeTextGenerator{answer: "answer"}
	chatRepo := newFakeConversationsRepo()

	s := NewChatService(gen, chatRepo, newFakeConversationsRepo(), make(chan domain.Response, 16))
	ctx := context.Background()

	s.Converse(ctx, 42, "one", false)
	s.StartNewConversation(ctx, 42)
	s.Converse(ctx, 42, "two", false)

	if len(chatRepo.saved) != 2 {
		t.Fatalf("expected two distinct stored conversations, got %d", len(chatRepo.saved))
	}
}

func TestSendHistoryMergesSurfacesMostRecentFirst(t *testing.T) {
	now := time.Now()

	chatRepo := newFakeConversationsRepo()
	chatRepo.loadBack = []domain.Conversation{
		{ID: "c1", Title: "chat newer", Timestamp: now.Add(-1 * time.Minute)},
		{ID: "c2", Title: "chat older", Timestamp: now.Add(-4 * time.Minute)},
	}
	reasoningRepo := newFakeConversationsRepo()
	reasoningRepo.loadBack = []domain.Conversation{
		{ID: "r1", Title: "reasoning newest", Timestamp: now},
		{ID: "r2", Title: "reasoning oldest", Timestamp: now.Add(-6 * time.Minute)},
	}

	responseCh := make(chan domain.Response, 1)
	s := NewChatService(&fakeTextGenerator{}, chatRepo, reasoningRepo, responseCh)

	s.SendHistory(context.Background(), 42)

	resp := <-responseCh
	if resp.Keyboard == nil {
		t.Fatalf("expected a keyboard response, got %+v", resp)
	}

	wantOrder := []string{"r1", "c1", "c2", "r2"}
	if len(resp.Keyboard.Buttons) != len(wantOrder) {
		t.Fatalf("expected %d buttons, got %d", len(wantOrder), len(resp.Keyboard.Buttons))
	}
	for i, want := range wantOrder {
		if got := resp.Keyboard.Buttons[i].Data; got != domain.DelChatCallbackPrefix+want {
			t.Errorf("button %d: expected %s, got %s", i, want, got)
		}
	}
}

func TestDeleteConversationByCallback(t *testing.T) {
	gen := &fakeTextGenerator{answer: "answer"}
	chatRepo := newFakeConversationsRepo()
	reasoningRepo := newFakeConversationsRepo()

	s := NewChatService(gen, chatRepo, reasoningRepo, make(chan domain.Response, 16))

	s.DeleteConversation(context.Background(), 42, domain.DelChatCallbackPrefix+"abc")

	if len(chatRepo.deleted) != 1 || chatRepo.deleted[0] != "abc" {
		t.Errorf("expected abc deleted from chat surface, got %v", chatRepo.deleted)
	}
	if len(reasoningRepo.deleted) != 1 || reasoningRepo.deleted[0] != "abc" {
		t.Errorf("expected abc deleted from reasoning surface, got %v", reasoningRepo.deleted)
	}
}
