package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/akozyrev/gemini-studio-bot/pkg/domain"
	"github.com/akozyrev/gemini-studio-bot/pkg/logger"
)

type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, history []domain.ChatMessage, reasoning bool) (string, error)
}

type ConversationsRepository interface {
	Load(ctx context.Context) ([]domain.Conversation, error)
	Save(ctx context.Context, id string, messages []domain.ChatMessage) error
	Delete(ctx context.Context, id string) error
}

const historyLimit = 10

type surfaceKey struct {
	chatID    int64
	reasoning bool
}

type activeConversation struct {
	// mu serializes turns: the history the generator sees must not change
	// before the new turn is appended and persisted.
	mu       sync.Mutex
	id       string
	messages []domain.ChatMessage
}

type chatService struct {
	textGenerator TextGenerator
	chatRepo      ConversationsRepository
	reasoningRepo ConversationsRepository
	responseCh    chan<- domain.Response

	mu     sync.Mutex
	active map[surfaceKey]*activeConversation
}

func NewChatService(
	textGenerator TextGenerator,
	chatRepo ConversationsRepository,
	reasoningRepo ConversationsRepository,
	responseCh chan<- domain.Response,
) *chatService {
	return &chatService{
		textGenerator: textGenerator,
		chatRepo:      chatRepo,
		reasoningRepo: reasoningRepo,
		responseCh:    responseCh,
		active:        make(map[surfaceKey]*activeConversation),
	}
}

// Converse runs one chat turn against the active conversation for this chat
// and surface, creating one on first use. User and model turns are appended
// in order and the conversation is persisted after every turn.
func (s *chatService) Converse(ctx context.Context, chatID int64, prompt string, reasoning bool) {
	slog.InfoContext(ctx, "Starting chat turn", "chatID", chatID, "reasoning", reasoning)

	conv := s.activeFor(chatID, reasoning)

	conv.mu.Lock()

	answer, err := s.textGenerator.GenerateText(ctx, prompt, conv.messages, reasoning)
	if err != nil {
		conv.mu.Unlock()
		s.responseCh <- domain.Response{ChatID: chatID, Err: err}
		return
	}

	conv.messages = append(conv.messages,
		domain.ChatMessage{Role: domain.ChatMessageRoleUser, Text: prompt},
		domain.ChatMessage{Role: domain.ChatMessageRoleModel, Text: answer},
	)

	if err := s.repoFor(reasoning).Save(ctx, conv.id, conv.messages); err != nil {
		slog.ErrorContext(ctx, "Persisting conversation failed", "conversationID", conv.id, logger.Err(err))
	}

	conv.mu.Unlock()

	s.responseCh <- domain.Response{ChatID: chatID, Text: answer}
}

// StartNewConversation drops the active conversations for both surfaces; the
// next turn starts a fresh one. Stored history is untouched.
func (s *chatService) StartNewConversation(ctx context.Context, chatID int64) {
	s.mu.Lock()
	delete(s.active, surfaceKey{chatID: chatID, reasoning: false})
	delete(s.active, surfaceKey{chatID: chatID, reasoning: true})
	s.mu.Unlock()

	s.responseCh <- domain.Response{
		ChatID: chatID,
		Text:   "🆕 New chat started. Previous conversations stay in /history.",
	}
}

// SendHistory lists stored conversations, most recent first, with delete
// buttons.
func (s *chatService) SendHistory(ctx context.Context, chatID int64) {
	var all []domain.Conversation
	for _, repo := range []ConversationsRepository{s.chatRepo, s.reasoningRepo} {
		conversations, err := repo.Load(ctx)
		if err != nil {
			s.responseCh <- domain.Response{ChatID: chatID, Err: err}
			return
		}
		all = append(all, conversations...)
	}

	if len(all) == 0 {
		s.responseCh <- domain.Response{ChatID: chatID, Text: "🗃 No stored conversations yet."}
		return
	}

	// Each repository is already ordered, but the two surfaces have to be
	// merged by timestamp before the list is cut off.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	all = lo.Subset(all, 0, historyLimit)

	buttons := lo.Map(all, func(c domain.Conversation, _ int) domain.KeyboardButton {
		return domain.KeyboardButton{
			Label: fmt.Sprintf("🗑 %s", c.Title),
			Data:  domain.DelChatCallbackPrefix + c.ID,
		}
	})

	s.responseCh <- domain.Response{
		ChatID: chatID,
		Keyboard: &domain.Keyboard{
			Title:         "🗃 Stored conversations (tap to delete):",
			Buttons:       buttons,
			ButtonsPerRow: 1,
		},
	}
}

// DeleteConversation removes one stored conversation by callback data.
func (s *chatService) DeleteConversation(ctx context.Context, chatID int64, callbackData string) {
	id := strings.TrimPrefix(callbackData, domain.DelChatCallbackPrefix)
	if id == "" {
		s.responseCh <- domain.Response{ChatID: chatID, Err: fmt.Errorf("empty conversation id")}
		return
	}

	// The id is unique across surfaces, so deleting from both is a no-op on
	// the one that never held it.
	for _, repo := range []ConversationsRepository{s.chatRepo, s.reasoningRepo} {
		if err := repo.Delete(ctx, id); err != nil {
			s.responseCh <- domain.Response{ChatID: chatID, Err: err}
			return
		}
	}

	s.mu.Lock()
	for key, conv := range s.active {
		if conv.id == id {
			delete(s.active, key)
		}
	}
	s.mu.Unlock()

	s.responseCh <- domain.Response{ChatID: chatID, Text: "🗑 Conversation deleted."}
}

func (s *chatService) activeFor(chatID int64, reasoning bool) *activeConversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := surfaceKey{chatID: chatID, reasoning: reasoning}
	if conv, ok := s.active[key]; ok {
		return conv
	}

	conv := &activeConversation{id: uuid.NewString()}
	s.active[key] = conv
	return conv
}

func (s *chatService) repoFor(reasoning bool) ConversationsRepository {
	if reasoning {
		return s.reasoningRepo
	}
	return s.chatRepo
}
