package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/akozyrev/gemini-studio-bot/pkg/domain"
)

const emptyResponsePlaceholder = "🤷 The model returned an empty response. Try rephrasing."

// GenerateText runs one chat turn. The stored history is replayed as
// conversation context ahead of the new prompt. With reasoning enabled the
// request goes to the slower model with a thinking budget; otherwise the fast
// model answers with thinking disabled.
func (c *client) GenerateText(ctx context.Context, prompt string, history []domain.ChatMessage, reasoning bool) (string, error) {
	contents := make([]content, 0, len(history)+1)
	for _, msg := range history {
		contents = append(contents, content{
			Role:  msg.Role,
			Parts: []part{{Text: msg.Text}},
		})
	}
	contents = append(contents, content{
		Role:  domain.ChatMessageRoleUser,
		Parts: []part{{Text: prompt}},
	})

	model := textModel
	budget := 0
	if reasoning {
		model = reasoningModel
		budget = reasoningBudget
	}

	req := &generateContentRequest{
		Contents: contents,
		GenerationConfig: &generationConfig{
			ThinkingConfig: &thinkingConfig{ThinkingBudget: budget},
		},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)

	var resp generateContentResponse
	if err := c.postJSON(ctx, url, req, &resp); err != nil {
		return "", fmt.Errorf("generating text: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		break
	}

	if sb.Len() == 0 {
		return emptyResponsePlaceholder, nil
	}

	return sb.String(), nil
}
