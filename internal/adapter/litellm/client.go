// Package litellm provides an HTTP client for the LiteLLM Proxy: the
// OpenAI-compatible chat and image endpoints plus the admin health API.
package litellm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Strob0t/Boardroom/internal/resilience"
)

// Model represents a configured model in LiteLLM.
type Model struct {
	ModelName string            `json:"model_name"`
	Provider  string            `json:"litellm_provider,omitempty"`
	ModelID   string            `json:"model_id,omitempty"`
	ModelInfo map[string]any    `json:"model_info,omitempty"`
	Params    map[string]string `json:"litellm_params,omitempty"`
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat asks the provider for a constrained output shape.
type ResponseFormat struct {
	Type string `json:"type"` // "json_object"
}

// ChatRequest is the body of POST /v1/chat/completions.
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// Client talks to the LiteLLM Proxy. Completion and image calls go through
// the optional pool; every call goes through the optional breaker.
type Client struct {
	base    string
	key     string
	hc      *http.Client
	breaker *resilience.Breaker
	pool    *resilience.Pool
}

// NewClient targets the proxy at baseURL. Deadlines come from the caller's
// context; the transport timeout only catches a hung connection.
func NewClient(baseURL, masterKey string) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		key:  masterKey,
		hc:   &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *Client) SetBreaker(b *resilience.Breaker) { c.breaker = b }

// SetPool bounds concurrent model calls across all panel agents.
func (c *Client) SetPool(p *resilience.Pool) { c.pool = p }

// ChatCompletion returns the content of the first choice.
func (c *Client) ChatCompletion(ctx context.Context, req ChatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}
	raw, err := c.generate(ctx, "/v1/chat/completions", body)
	if err != nil {
		return "", fmt.Errorf("chat completion %s: %w", req.Model, err)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("unmarshal chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat completion %s: no choices returned", req.Model)
	}
	return out.Choices[0].Message.Content, nil
}

// ListModels reads the proxy's model table.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	var out struct {
		Data []Model `json:"data"`
	}
	if err := c.getJSON(ctx, "/model/info", &out); err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return out.Data, nil
}

// Health reports whether the proxy answers /health with a 2xx.
func (c *Client) Health(ctx context.Context) (bool, error) {
	_, err := c.fetch(ctx, http.MethodGet, "/health", nil)
	return err == nil, err
}

func (c *Client) generate(ctx context.Context, path string, body []byte) (raw []byte, err error) {
	err = c.pool.Run(ctx, func() error {
		raw, err = c.fetch(ctx, http.MethodPost, path, body)
		return err
	})
	return raw, err
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	raw, err := c.fetch(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// fetch performs one request, guarded by the breaker when one is set.
func (c *Client) fetch(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var raw []byte
	attempt := func() (err error) {
		raw, err = c.roundTrip(ctx, method, path, body)
		return err
	}
	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(attempt)
	} else {
		err = attempt()
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return raw, nil
}

// APIError is a 4xx or 5xx answer from the proxy.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("litellm API error %d: %s", e.Status, e.Body)
}
