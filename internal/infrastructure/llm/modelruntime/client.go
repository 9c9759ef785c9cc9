// Package modelruntime talks to the hosted model runtime. The same client
// backs the primary prompt-generation capability and the direct model
// invocation used as the synthesis fallback.
package modelruntime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/kb-orchestrator/internal/core/domain"
	"github.com/kirillkom/kb-orchestrator/internal/infrastructure/resilience"
)

const (
	anthropicFamilyPrefix = "anthropic."
	anthropicVersion      = "bedrock-2023-05-31"

	invokeMaxTokens   = 1024
	invokeTemperature = 0.2
)

type Client struct {
	baseURL    string
	modelID    string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout  time.Duration
	Executor *resilience.Executor
}

func New(baseURL, modelID string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		modelID:    modelID,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.Executor,
	}
}

// GenerateFromPrompt runs the runtime's managed generation endpoint over a
// fully built prompt and returns the trimmed completion.
func (c *Client) GenerateFromPrompt(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"input": map[string]any{"text": prompt},
	}

	var envelope struct {
		Output struct {
			Text string `json:"text"`
		} `json:"output"`
	}
	path := fmt.Sprintf("/models/%s/generate", c.modelID)
	if err := c.call(ctx, "model.generate", path, reqBody, &envelope); err != nil {
		return "", domain.WrapError(domain.ErrBackend, "model generate", err)
	}

	answer := strings.TrimSpace(envelope.Output.Text)
	if answer == "" {
		return "", domain.WrapError(domain.ErrBackend, "model generate", errors.New("empty generation"))
	}
	return answer, nil
}

// InvokeModel calls the model directly with a single user message. Only the
// anthropic model family speaks this message format, so any other configured
// model is rejected before the request leaves the process.
func (c *Client) InvokeModel(ctx context.Context, prompt string) (string, error) {
	if !strings.HasPrefix(c.modelID, anthropicFamilyPrefix) {
		return "", domain.WrapError(domain.ErrUnsupportedModel, "invoke model",
			fmt.Errorf("model %q cannot be invoked directly", c.modelID))
	}

	reqBody := map[string]any{
		"anthropic_version": anthropicVersion,
		"max_tokens":        invokeMaxTokens,
		"temperature":       invokeTemperature,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": prompt},
				},
			},
		},
	}

	var envelope struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	path := fmt.Sprintf("/models/%s/invoke", c.modelID)
	if err := c.call(ctx, "model.invoke", path, reqBody, &envelope); err != nil {
		return "", domain.WrapError(domain.ErrBackend, "model invoke", err)
	}

	var sb strings.Builder
	for _, block := range envelope.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	answer := strings.TrimSpace(sb.String())
	if answer == "" {
		return "", domain.WrapError(domain.ErrBackend, "model invoke", errors.New("empty model response"))
	}
	return answer, nil
}

func (c *Client) call(ctx context.Context, operation, path string, payload, out any) error {
	do := func(ctx context.Context) error {
		return c.postJSON(ctx, path, payload, out)
	}
	if c.executor == nil {
		return do(ctx)
	}
	return c.executor.Execute(ctx, operation, do, classifyModelError)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model runtime request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return newStatusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("malformed model envelope: %w", err)
	}
	return nil
}
