package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/akozyrev/gemini-studio-bot/pkg/domain"
)

type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, aspect domain.AspectRatio) (*domain.ImageArtifact, error)
	EditImage(ctx context.Context, image []byte, mimeType, prompt string) (*domain.ImageArtifact, error)
}

type PromptsRepository interface {
	Save(ctx context.Context, prompt *domain.Prompt) (int64, error)
	GetByID(ctx context.Context, id int64) (string, error)
}

const noImageProducedMessage = "🖼 The model produced no image for this prompt. Try rewording it."

type imageService struct {
	imageGenerator ImageGenerator
	promptsRepo    PromptsRepository
	responseCh     chan<- domain.Response
}

func NewImageService(
	imageGenerator ImageGenerator,
	promptsRepo PromptsRepository,
	responseCh chan<- domain.Response,
) *imageService {
	return &imageService{
		imageGenerator: imageGenerator,
		promptsRepo:    promptsRepo,
		responseCh:     responseCh,
	}
}

func (s *imageService) GenerateImage(ctx context.Context, chatID int64, prompt, fromUser string, aspect domain.AspectRatio) {
	slog.InfoContext(ctx, "Starting image generation", "prompt", prompt, "aspect", aspect)

	promptID, err := s.promptsRepo.Save(ctx, &domain.Prompt{
		ChatID:   chatID,
		Text:     prompt,
		FromUser: fromUser,
	})
	if err != nil {
		s.responseCh <- domain.Response{ChatID: chatID, Err: err}
		return
	}

	artifact, err := s.imageGenerator.GenerateImage(ctx, prompt, aspect)
	if err != nil {
		s.responseCh <- domain.Response{ChatID: chatID, Err: err}
		return
	}

	// A response without an image part is a valid empty result.
	if artifact == nil {
		s.responseCh <- domain.Response{ChatID: chatID, Text: noImageProducedMessage}
		return
	}

	slog.InfoContext(ctx, "Image generated", "size", len(artifact.Data))

	s.responseCh <- domain.Response{
		ChatID: chatID,
		Image: &domain.Image{
			PromptID: promptID,
			Data:     artifact.Data,
		},
	}
}

// RegenerateImage re-runs generation for a stored prompt, addressed by the
// callback payload of the retry button.
func (s *imageService) RegenerateImage(ctx context.Context, chatID int64, callbackData string) {
	promptID, err := s.parsePromptID(callbackData)
	if err != nil {
		s.responseCh <- domain.Response{ChatID: chatID, Err: fmt.Errorf("parsing prompt id: %w", err)}
		return
	}

	prompt, err := s.promptsRepo.GetByID(ctx, promptID)
	if err != nil {
		s.responseCh <- domain.Response{ChatID: chatID, Err: fmt.Errorf("fetching prompt: %w", err)}
		return
	}

	artifact, err := s.imageGenerator.GenerateImage(ctx, prompt, domain.AspectRatioSquare)
	if err != nil {
		s.responseCh <- domain.Response{ChatID: chatID, Err: err}
		return
	}

	if artifact == nil {
		s.responseCh <- domain.Response{ChatID: chatID, Text: noImageProducedMessage}
		return
	}

	s.responseCh <- domain.Response{
		ChatID: chatID,
		Image: &domain.Image{
			PromptID: promptID,
			Data:     artifact.Data,
		},
	}
}

// EditImage applies a text instruction to a source image and returns the
// modified image.
func (s *imageService) EditImage(ctx context.Context, chatID int64, image []byte, mimeType, prompt string) {
	slog.InfoContext(ctx, "Starting image edit", "prompt", prompt, "sourceSize", len(image))

	artifact, err := s.imageGenerator.EditImage(ctx, image, mimeType, prompt)
	if err != nil {
		s.responseCh <- domain.Response{ChatID: chatID, Err: err}
		return
	}

	if artifact == nil {
		s.responseCh <- domain.Response{ChatID: chatID, Text: noImageProducedMessage}
		return
	}

	s.responseCh <- domain.Response{
		ChatID: chatID,
		Image:  &domain.Image{Data: artifact.Data},
	}
}

func (s *imageService) parsePromptID(callbackData string) (int64, error) {
	idStr := strings.TrimPrefix(callbackData, domain.GenImageCallbackPrefix)

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid prompt id: %s", callbackData)
	}

	return id, nil
}
