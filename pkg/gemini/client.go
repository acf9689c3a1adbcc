package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/akozyrev/gemini-studio-bot/pkg/domain"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const (
	textModel      = "gemini-2.5-flash"
	reasoningModel = "gemini-2.5-pro"
	imageModel     = "gemini-2.5-flash-image"
	videoModel     = "veo-3.0-generate-001"

	// reasoningBudget is the thinking-token budget for the reasoning model;
	// the fast path runs with thinking disabled.
	reasoningBudget = 32768
)

// KeyResolver yields the API key to use for the next request. Resolution
// happens per request, so a rotated key takes effect immediately.
type KeyResolver interface {
	Resolve() (string, bool)
}

type Config struct {
	Keys         KeyResolver
	BaseURL      string
	HTTPClient   *http.Client
	PollInterval time.Duration
	PollTimeout  time.Duration
}

type client struct {
	baseURL      string
	keys         KeyResolver
	hc           *http.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewClient(cfg Config) (*client, error) {
	if cfg.Keys == nil {
		return nil, fmt.Errorf("key resolver is required")
	}

	c := &client{
		baseURL:      cfg.BaseURL,
		keys:         cfg.Keys,
		hc:           cfg.HTTPClient,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.hc == nil {
		c.hc = &http.Client{}
	}
	if c.pollInterval <= 0 {
		c.pollInterval = 9 * time.Second
	}
	if c.pollTimeout <= 0 {
		c.pollTimeout = 10 * time.Minute
	}

	return c, nil
}

func (c *client) resolveKey() (string, error) {
	key, ok := c.keys.Resolve()
	if !ok {
		return "", &domain.APIError{
			Kind:    domain.ErrorKindMissingKey,
			Message: "no usable API key configured",
		}
	}
	return key, nil
}

func (c *client) postJSON(ctx context.Context, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}

	return c.do(req, out)
}

func (c *client) do(req *http.Request, out any) error {
	key, err := c.resolveKey()
	if err != nil {
		return err
	}
	req.Header.Set("x-goog-api-key", key)

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("executing HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return classifyResponse(resp.StatusCode, bodyBytes)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}

	return nil
}
