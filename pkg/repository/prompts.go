package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akozyrev/gemini-studio-bot/pkg/domain"
)

type promptsRepository struct {
	db *sql.DB
}

func NewPromptsRepository(db *sql.DB) *promptsRepository {
	return &promptsRepository{db: db}
}

func (p *promptsRepository) Save(ctx context.Context, prompt *domain.Prompt) (int64, error) {
	const query = `
		INSERT INTO prompts (chat_id, prompt, from_user)
		VALUES (?, ?, ?)
	`

	res, err := p.db.ExecContext(ctx, query, prompt.ChatID, prompt.Text, prompt.FromUser)
	if err != nil {
		return 0, fmt.Errorf("saving prompt: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("fetching prompt id: %w", err)
	}

	return id, nil
}

func (p *promptsRepository) GetByID(ctx context.Context, id int64) (string, error) {
	const query = `
		SELECT prompt
		FROM prompts
		WHERE id = ?
	`

	var prompt string
	err := p.db.QueryRowContext(ctx, query, id).Scan(&prompt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("fetching prompt by id: %w", err)
	}

	return prompt, nil
}
