package services

import (
	"context"
	"log/slog"

	"github.com/akozyrev/gemini-studio-bot/pkg/domain"
	"github.com/akozyrev/gemini-studio-bot/pkg/logger"
)

type VideoGenerator interface {
	GenerateVideo(ctx context.Context, prompt string, sourceImage *domain.ImageArtifact, aspect domain.AspectRatio, onProgress func(string)) (*domain.MediaArtifact, error)
}

type StillImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, aspect domain.AspectRatio) (*domain.ImageArtifact, error)
}

const stillFallbackCaption = "⚠️ Video synthesis is unavailable for the current key, so here is a still frame of the scene instead."

type videoService struct {
	videoGenerator VideoGenerator
	stillGenerator StillImageGenerator
	responseCh     chan<- domain.Response
}

func NewVideoService(
	videoGenerator VideoGenerator,
	stillGenerator StillImageGenerator,
	responseCh chan<- domain.Response,
) *videoService {
	return &videoService{
		videoGenerator: videoGenerator,
		stillGenerator: stillGenerator,
		responseCh:     responseCh,
	}
}

// GenerateVideo runs the long-running workflow and delivers either a video, a
// fallback still frame, or a classified error.
func (s *videoService) GenerateVideo(ctx context.Context, chatID int64, prompt string, sourceImage *domain.ImageArtifact, aspect domain.AspectRatio) {
	slog.InfoContext(ctx, "Starting video generation", "prompt", prompt, "aspect", aspect)

	onProgress := func(message string) {
		s.responseCh <- domain.Response{ChatID: chatID, Text: message}
	}

	artifact, err := s.generate(ctx, prompt, sourceImage, aspect, onProgress)
	if err != nil {
		s.responseCh <- domain.Response{ChatID: chatID, Err: err}
		return
	}

	switch artifact.Kind {
	case domain.MediaKindStill:
		s.responseCh <- domain.Response{
			ChatID: chatID,
			Image:  &domain.Image{Data: artifact.Data, Caption: stillFallbackCaption},
		}
	default:
		s.responseCh <- domain.Response{
			ChatID: chatID,
			Video:  &domain.Video{Data: artifact.Data, MimeType: artifact.MimeType},
		}
	}
}

// generate applies the fallback policy: any submission or polling failure is
// answered with exactly one still-image synthesis of the same scene. Only a
// failure of the fallback itself propagates, and it propagates classified.
func (s *videoService) generate(ctx context.Context, prompt string, sourceImage *domain.ImageArtifact, aspect domain.AspectRatio, onProgress func(string)) (*domain.MediaArtifact, error) {
	artifact, err := s.videoGenerator.GenerateVideo(ctx, prompt, sourceImage, aspect, onProgress)
	if err == nil {
		return artifact, nil
	}

	// User cancellation is not a service restriction; no substitute result.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	slog.Warn("Video generation failed, falling back to a still frame",
		"kind", domain.ErrorKindOf(err), logger.Err(err))

	still, imgErr := s.stillGenerator.GenerateImage(ctx, domain.StillFramePrompt(prompt), aspect)
	if imgErr != nil {
		return nil, imgErr
	}
	if still == nil {
		// The fallback produced nothing; surface the original failure.
		return nil, err
	}

	return &domain.MediaArtifact{
		Kind:     domain.MediaKindStill,
		Data:     still.Data,
		MimeType: still.MimeType,
	}, nil
}
