package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/akozyrev/gemini-studio-bot/pkg/domain"
)

const titleMaxRunes = 40

// Store keys for the two chat surfaces. Histories must not mix, so each
// surface serializes its whole collection under its own key.
const (
	ChatStoreKey      = "conversations:chat"
	ReasoningStoreKey = "conversations:reasoning"
)

type conversationsRepository struct {
	db  *sql.DB
	key string
}

func NewConversationsRepository(db *sql.DB, key string) *conversationsRepository {
	return &conversationsRepository{db: db, key: key}
}

// Load returns all stored conversations, most recently updated first.
func (r *conversationsRepository) Load(ctx context.Context) ([]domain.Conversation, error) {
	const query = `SELECT value FROM kv WHERE key = ?`

	var raw string
	err := r.db.QueryRowContext(ctx, query, r.key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching conversations: %w", err)
	}

	var conversations []domain.Conversation
	if err := json.Unmarshal([]byte(raw), &conversations); err != nil {
		return nil, fmt.Errorf("decoding conversations: %w", err)
	}

	return conversations, nil
}

// Save upserts one conversation: an existing id gets its message list
// replaced and its timestamp refreshed, a new id gets a title derived from
// the first message. The whole collection is re-sorted and re-serialized.
func (r *conversationsRepository) Save(ctx context.Context, id string, messages []domain.ChatMessage) error {
	conversations, err := r.Load(ctx)
	if err != nil {
		return err
	}

	now := time.Now()

	updated := false
	for i := range conversations {
		if conversations[i].ID == id {
			conversations[i].Messages = messages
			conversations[i].Timestamp = now
			updated = true
			break
		}
	}
	if !updated {
		conversations = append(conversations, domain.Conversation{
			ID:        id,
			Title:     deriveTitle(messages),
			Messages:  messages,
			Timestamp: now,
		})
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].Timestamp.After(conversations[j].Timestamp)
	})

	return r.store(ctx, conversations)
}

// Delete removes one conversation and re-serializes the rest.
func (r *conversationsRepository) Delete(ctx context.Context, id string) error {
	conversations, err := r.Load(ctx)
	if err != nil {
		return err
	}

	remaining := lo.Reject(conversations, func(c domain.Conversation, _ int) bool {
		return c.ID == id
	})

	return r.store(ctx, remaining)
}

func (r *conversationsRepository) store(ctx context.Context, conversations []domain.Conversation) error {
	raw, err := json.Marshal(conversations)
	if err != nil {
		return fmt.Errorf("encoding conversations: %w", err)
	}

	const query = `
		INSERT INTO kv (key, value)
		VALUES (?, ?)
		ON CONFLICT (key)
		DO UPDATE SET value = excluded.value
	`

	if _, err := r.db.ExecContext(ctx, query, r.key, string(raw)); err != nil {
		return fmt.Errorf("saving conversations: %w", err)
	}

	return nil
}

func deriveTitle(messages []domain.ChatMessage) string {
	if len(messages) == 0 {
		return "New chat"
	}

	text := messages[0].Text
	if utf8.RuneCountInString(text) <= titleMaxRunes {
		return text
	}

	return string([]rune(text)[:titleMaxRunes]) + "…"
}
