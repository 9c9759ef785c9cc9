// Package kbruntime talks to the managed knowledge-base runtime: lean
// passage retrieval and the backend's own retrieve-and-generate capability.
package kbruntime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/kb-orchestrator/internal/core/domain"
	"github.com/kirillkom/kb-orchestrator/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout  time.Duration
	Executor *resilience.Executor
}

func New(baseURL string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.Executor,
	}
}

type rawRecord struct {
	Content struct {
		Text string `json:"text"`
	} `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Score    *float64       `json:"score"`
	Location map[string]any `json:"location"`
}

// Retrieve asks the backend for at most topK scored records and flattens
// them into passages. An empty result list is success; only transport
// failures and malformed envelopes become errors.
func (c *Client) Retrieve(ctx context.Context, knowledgeBaseID, query string, topK int) ([]domain.Passage, error) {
	reqBody := map[string]any{
		"retrievalQuery": map[string]any{"text": query},
		"retrievalConfiguration": map[string]any{
			"vectorSearchConfiguration": map[string]any{
				"numberOfResults": topK,
			},
		},
	}

	var envelope struct {
		RetrievalResults []rawRecord `json:"retrievalResults"`
	}
	path := fmt.Sprintf("/knowledgebases/%s/retrieve", knowledgeBaseID)
	if err := c.call(ctx, "kb.retrieve", path, reqBody, &envelope); err != nil {
		return nil, domain.WrapError(domain.ErrBackend, "kb retrieve", err)
	}

	passages := make([]domain.Passage, 0, len(envelope.RetrievalResults))
	for _, record := range envelope.RetrievalResults {
		passages = append(passages, flattenRecord(record))
	}
	return passages, nil
}

// RetrieveAndGenerate is the generative fallback tier: the backend answers
// from its own knowledge base and returns the supporting references.
func (c *Client) RetrieveAndGenerate(ctx context.Context, knowledgeBaseID, query string) (string, []domain.Passage, error) {
	reqBody := map[string]any{
		"input": map[string]any{"text": query},
		"retrieveAndGenerateConfiguration": map[string]any{
			"type": "KNOWLEDGE_BASE",
			"knowledgeBaseConfiguration": map[string]any{
				"knowledgeBaseId": knowledgeBaseID,
			},
		},
	}

	var envelope struct {
		Output struct {
			Text string `json:"text"`
		} `json:"output"`
		Citations []struct {
			RetrievedReferences []rawRecord `json:"retrievedReferences"`
		} `json:"citations"`
	}
	path := fmt.Sprintf("/knowledgebases/%s/retrieveandgenerate", knowledgeBaseID)
	if err := c.call(ctx, "kb.retrieve_and_generate", path, reqBody, &envelope); err != nil {
		return "", nil, domain.WrapError(domain.ErrBackend, "kb retrieve and generate", err)
	}

	references := make([]domain.Passage, 0)
	for _, citation := range envelope.Citations {
		for _, record := range citation.RetrievedReferences {
			references = append(references, flattenRecord(record))
		}
	}
	return strings.TrimSpace(envelope.Output.Text), references, nil
}

func (c *Client) call(ctx context.Context, operation, path string, payload, out any) error {
	do := func(ctx context.Context) error {
		return c.postJSON(ctx, path, payload, out)
	}
	if c.executor == nil {
		return do(ctx)
	}
	return c.executor.Execute(ctx, operation, do, classifyKBError)
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
		return fmt.Errorf("kb runtime request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return newStatusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("malformed kb envelope: %w", err)
	}
	return nil
}

// flattenRecord normalizes a raw backend record into a Passage. Title falls
// back title -> file -> source; URL falls back url -> source.
func flattenRecord(record rawRecord) domain.Passage {
	metadata := stringifyMetadata(record.Metadata)

	title := metadata["title"]
	if title == "" {
		title = metadata["file"]
	}
	if title == "" {
		title = metadata["source"]
	}

	url := metadata["url"]
	if url == "" {
		url = metadata["source"]
	}

	source := ""
	if len(record.Location) > 0 {
		if raw, err := json.Marshal(record.Location); err == nil {
			source = string(raw)
		}
	}

	return domain.Passage{
		Text:     record.Content.Text,
		Score:    record.Score,
		Title:    title,
		URL:      url,
		Source:   source,
		Metadata: metadata,
	}
}

func stringifyMetadata(metadata map[string]any) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for key, value := range metadata {
		switch v := value.(type) {
		case string:
			out[key] = v
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprintf("%v", v)
		}
	}
	return out
}
