package gemini

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/akozyrev/gemini-studio-bot/pkg/domain"
)

// GenerateImage synthesizes one image from a text prompt. A successful
// response without an image part is a valid empty result, not an error; the
// caller gets (nil, nil).
func (c *client) GenerateImage(ctx context.Context, prompt string, aspect domain.AspectRatio) (*domain.ImageArtifact, error) {
	req := &generateContentRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: prompt}},
		}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
			ImageConfig:        &imageConfig{AspectRatio: string(aspect)},
		},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, imageModel)

	var resp generateContentResponse
	if err := c.postJSON(ctx, url, req, &resp); err != nil {
		return nil, fmt.Errorf("generating image: %w", err)
	}

	return firstImagePart(&resp)
}

// EditImage sends the source image and the instruction as two parts of one
// user message; the model returns a modified image.
func (c *client) EditImage(ctx context.Context, image []byte, mimeType, prompt string) (*domain.ImageArtifact, error) {
	req := &generateContentRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
				{Text: prompt},
			},
		}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, imageModel)

	var resp generateContentResponse
	if err := c.postJSON(ctx, url, req, &resp); err != nil {
		return nil, fmt.Errorf("editing image: %w", err)
	}

	return firstImagePart(&resp)
}

func firstImagePart(resp *generateContentResponse) (*domain.ImageArtifact, error) {
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil {
				continue
			}

			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decoding image payload: %w", err)
			}

			return &domain.ImageArtifact{
				Data:     data,
				MimeType: p.InlineData.MimeType,
			}, nil
		}
	}

	return nil, nil
}
