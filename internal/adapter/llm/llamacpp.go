// Package llm talks to a llama.cpp server for cluster summaries.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"newscluster/internal/adapter/httpclient"
)

// Options configures a LlamaCppClient.
type Options struct {
	BaseURL           string
	APIKey            string
	Model             string
	NPredict          int
	Temperature       float64
	MaxRetries        int
	RequestsPerSecond float64
	Timeout           time.Duration
	Backoff           time.Duration
	// JSONSchema constrains the output grammar when set.
	JSONSchema map[string]any
}

// SummarySchema asks for {"title": ..., "summary": ...}.
var SummarySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"title":   map[string]any{"type": "string"},
		"summary": map[string]any{"type": "string"},
	},
	"required": []string{"title", "summary"},
}

// LlamaCppClient calls the llama.cpp /completion endpoint.
type LlamaCppClient struct {
	opts   Options
	client *httpclient.Client

	mu    sync.Mutex
	stats Stats
}

// Stats tracks usage across calls.
type Stats struct {
	TotalCalls       int
	TotalInputChars  int
	TotalOutputChars int
}

type completionRequest struct {
	Prompt        string         `json:"prompt"`
	NPredict      int            `json:"n_predict"`
	Temperature   float64        `json:"temperature"`
	TopK          int            `json:"top_k"`
	TopP          float64        `json:"top_p"`
	RepeatPenalty float64        `json:"repeat_penalty"`
	Seed          int            `json:"seed"`
	Stop          []string       `json:"stop"`
	CachePrompt   bool           `json:"cache_prompt"`
	JSONSchema    map[string]any `json:"json_schema,omitempty"`
}

type completionResponse struct {
	Content string `json:"content"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewLlamaCppClient(opts Options) *LlamaCppClient {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.NPredict <= 0 {
		opts.NPredict = 768
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 300 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}
	return &LlamaCppClient{
		opts: opts,
		client: httpclient.New(httpclient.Options{
			Timeout:           opts.Timeout,
			RequestsPerSecond: opts.RequestsPerSecond,
			MaxRetries:        opts.MaxRetries,
			Backoff:           opts.Backoff,
		}),
	}
}

// ChatML wraps a system and user message in the chat template the Qwen
// instruct models expect, leaving the assistant turn open.
func ChatML(systemPrompt, userPrompt string) string {
	var b strings.Builder
	if systemPrompt != "" {
		b.WriteString("<|im_start|>system\n")
		b.WriteString(systemPrompt)
		b.WriteString("<|im_end|>\n")
	}
	b.WriteString("<|im_start|>user\n")
	b.WriteString(userPrompt)
	b.WriteString("<|im_end|>\n<|im_start|>assistant\n")
	return b.String()
}

// Generate completes an already templated prompt.
func (c *LlamaCppClient) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := completionRequest{
		Prompt:        prompt,
		NPredict:      c.opts.NPredict,
		Temperature:   c.opts.Temperature,
		TopK:          40,
		TopP:          0.9,
		RepeatPenalty: 1.05,
		Seed:          42,
		Stop:          []string{"<|im_end|>", "<|im_start|>"},
		JSONSchema:    c.opts.JSONSchema,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/completion", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion returned status %d: %s", resp.StatusCode, string(body))
	}

	var out completionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("API error: %s", out.Error.Message)
	}

	c.mu.Lock()
	c.stats.TotalCalls++
	c.stats.TotalInputChars += len(prompt)
	c.stats.TotalOutputChars += len(out.Content)
	c.mu.Unlock()

	return strings.TrimSpace(out.Content), nil
}

// GenerateWithSystem applies the ChatML template before generating.
func (c *LlamaCppClient) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.Generate(ctx, ChatML(systemPrompt, userPrompt))
}

// Ping checks that the server is up and its model is loaded.
func (c *LlamaCppClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("llama.cpp server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("llama.cpp server not ready (status %d): %s", resp.StatusCode, body)
	}
	return nil
}

func (c *LlamaCppClient) ModelName() string {
	return c.opts.Model
}

func (c *LlamaCppClient) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *LlamaCppClient) authorize(req *http.Request) {
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}
}
