// Package analysis turns one captured frame into a structured record by way
// of an OpenAI-compatible chat/completions endpoint. It owns the wire shape,
// the fence-tolerant reply parsing, and the classification of failures into
// the pipeline's error taxonomy.
package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/glancelog/glance/internal/errors"
)

// Client calls the interpretation service. Endpoint and credential travel
// with each call; the client only owns the transport.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a client whose calls are bounded by timeout
// (DefaultTimeout when zero).
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// Analyze sends one multimodal message (instruction text plus the frame as
// an embedded PNG data URI) and parses the structured reply. An empty prompt
// falls back to DefaultPrompt.
func (c *Client) Analyze(ctx context.Context, ep Endpoint, prompt string, image []byte) (*Result, error) {
	if prompt == "" {
		prompt = DefaultPrompt
	}

	msg := chatMessage{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &imageURL{
				URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(image),
			}},
		},
	}

	content, err := c.chat(ctx, ep, []chatMessage{msg}, AnalysisMaxTokens)
	if err != nil {
		// An endpoint that rejects the image_url content part is a
		// configuration problem, not a generic HTTP failure.
		var se *apperrors.ServiceError
		if errors.As(err, &se) && strings.Contains(se.Body, modalityMarkerField) && strings.Contains(se.Body, modalityMarkerVariant) {
			return nil, &apperrors.UnsupportedModalityError{Model: ep.Model, Status: se.Status}
		}
		return nil, err
	}

	unwrapped := stripFence(content)
	var res Result
	if err := json.Unmarshal([]byte(unwrapped), &res); err != nil {
		return nil, &apperrors.MalformedResponseError{Raw: unwrapped, Cause: err}
	}
	return &res, nil
}

// Complete sends a single text-only message and returns the raw reply.
// Used for daily summaries, where the reply is markdown, not JSON.
func (c *Client) Complete(ctx context.Context, ep Endpoint, prompt string, maxTokens int) (string, error) {
	msg := chatMessage{Role: "user", Content: prompt}
	return c.chat(ctx, ep, []chatMessage{msg}, maxTokens)
}

// chat performs one chat/completions round trip and extracts the reply text.
func (c *Client) chat(ctx context.Context, ep Endpoint, msgs []chatMessage, maxTokens int) (string, error) {
	payload, err := json.Marshal(chatRequest{Model: ep.Model, Messages: msgs, MaxTokens: maxTokens})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimSuffix(ep.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ep.APIKey)

	slog.Debug("interpretation request",
		"endpoint", endpoint,
		"model", ep.Model,
		"max_tokens", maxTokens,
		"api_key", MaskKey(ep.APIKey))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &apperrors.TransportError{Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &apperrors.TransportError{Cause: err}
	}

	slog.Debug("interpretation reply",
		"status", resp.StatusCode,
		"elapsed_ms", time.Since(start).Milliseconds(),
		"bytes", len(body))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &apperrors.ServiceError{Status: resp.StatusCode, Body: string(body)}
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", &apperrors.MalformedResponseError{Raw: string(body), Cause: err}
	}
	if len(cr.Choices) == 0 {
		return "", &apperrors.MalformedResponseError{Raw: string(body), Cause: errors.New("no choices in reply")}
	}
	content := cr.Choices[0].Message.Content
	if content == nil {
		return "", &apperrors.MalformedResponseError{Raw: string(body), Cause: errors.New("no content in reply")}
	}
	return *content, nil
}

// MaskKey renders a credential safe for logging: only the last four
// characters survive.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
