package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/akozyrev/gemini-studio-bot/pkg/domain"
)

// GenerateVideo drives the long-running synthesis job: submit the request,
// poll the returned operation handle on a fixed interval until the service
// reports completion, then fetch the produced video. onProgress receives a
// human-readable line before every poll. The loop is bounded by the
// configured poll timeout and by ctx.
func (c *client) GenerateVideo(
	ctx context.Context,
	prompt string,
	sourceImage *domain.ImageArtifact,
	aspect domain.AspectRatio,
	onProgress func(string),
) (*domain.MediaArtifact, error) {
	if onProgress == nil {
		onProgress = func(string) {}
	}

	op, err := c.submitVideo(ctx, prompt, sourceImage, aspect)
	if err != nil {
		return nil, fmt.Errorf("submitting video generation: %w", err)
	}

	op, err = c.pollOperation(ctx, op, onProgress)
	if err != nil {
		return nil, err
	}

	uri, err := extractVideoURI(op)
	if err != nil {
		return nil, err
	}

	onProgress("🎬 Rendering done, downloading video…")

	data, err := c.fetchVideo(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("downloading video: %w", err)
	}

	return &domain.MediaArtifact{
		Kind:     domain.MediaKindVideo,
		Data:     data,
		MimeType: "video/mp4",
	}, nil
}

func (c *client) submitVideo(ctx context.Context, prompt string, sourceImage *domain.ImageArtifact, aspect domain.AspectRatio) (*operation, error) {
	instance := videoInstance{Prompt: prompt}
	if sourceImage != nil {
		instance.Image = &videoImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(sourceImage.Data),
			MimeType:           sourceImage.MimeType,
		}
	}

	req := &predictLongRunningRequest{
		Instances:  []videoInstance{instance},
		Parameters: &videoParameters{AspectRatio: string(aspect)},
	}

	submitURL := fmt.Sprintf("%s/models/%s:predictLongRunning", c.baseURL, videoModel)

	var op operation
	if err := c.postJSON(ctx, submitURL, req, &op); err != nil {
		return nil, err
	}
	if op.Name == "" {
		return nil, fmt.Errorf("service returned no operation handle")
	}

	return &op, nil
}

func (c *client) pollOperation(ctx context.Context, op *operation, onProgress func(string)) (*operation, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	statusURL := fmt.Sprintf("%s/%s", c.baseURL, op.Name)

	for attempt := 1; !op.Done; attempt++ {
		onProgress(fmt.Sprintf("🎬 Rendering video… status check %d", attempt))

		var polled operation
		if err := c.getJSON(pollCtx, statusURL, &polled); err != nil {
			if pollCtx.Err() != nil && ctx.Err() == nil {
				return nil, fmt.Errorf("video generation did not finish within %s", c.pollTimeout)
			}
			return nil, fmt.Errorf("checking operation status: %w", err)
		}
		op = &polled

		if op.Done {
			break
		}

		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("video generation did not finish within %s", c.pollTimeout)
		case <-ticker.C:
		}
	}

	if op.Error != nil {
		return nil, classify(op.Error.Code, op.Error.Status, op.Error.Message)
	}

	return op, nil
}

func extractVideoURI(op *operation) (string, error) {
	if op.Response == nil || op.Response.GenerateVideoResponse == nil {
		return "", fmt.Errorf("completed operation carries no video response")
	}

	samples := op.Response.GenerateVideoResponse.GeneratedSamples
	if len(samples) == 0 || samples[0].Video == nil || samples[0].Video.URI == "" {
		return "", fmt.Errorf("completed operation carries no video samples")
	}

	return samples[0].Video.URI, nil
}

// fetchVideo downloads the produced binary. The file endpoint authenticates
// via a key query parameter rather than the request header.
func (c *client) fetchVideo(ctx context.Context, rawURI string) ([]byte, error) {
	key, err := c.resolveKey()
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(rawURI)
	if err != nil {
		return nil, fmt.Errorf("parsing video URI: %w", err)
	}
	q := u.Query()
	q.Set("key", key)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, classifyResponse(resp.StatusCode, bodyBytes)
	}

	return io.ReadAll(resp.Body)
}
