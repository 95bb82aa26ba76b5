package litellm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Strob0t/Boardroom/internal/domain/agent"
	"github.com/Strob0t/Boardroom/internal/port/agentcap"
)

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
}

// ImageGenerator implements agentcap.AssetGenerator with the image
// generation endpoint. An empty model disables generation.
type ImageGenerator struct {
	client *Client
	model  string
}

var _ agentcap.AssetGenerator = (*ImageGenerator)(nil)

// NewImageGenerator creates a generator for model.
func NewImageGenerator(client *Client, model string) *ImageGenerator {
	return &ImageGenerator{client: client, model: model}
}

// GenerateImage returns the image bytes, or nil when generation is disabled
// or the provider produced nothing.
func (g *ImageGenerator) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if g.model == "" || prompt == "" {
		return nil, nil
	}
	body, err := json.Marshal(imageRequest{Model: g.model, Prompt: prompt, N: 1, ResponseFormat: "b64_json"})
	if err != nil {
		return nil, fmt.Errorf("marshal image request: %w", err)
	}
	resp, err := g.client.generate(ctx, "/v1/images/generations", body)
	if err != nil {
		return nil, &agent.CallError{Op: "image", Err: err}
	}

	var result imageResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, &agent.ParseError{Op: "image", Raw: string(resp), Err: err}
	}
	if len(result.Data) == 0 {
		return nil, nil
	}
	img := result.Data[0]
	switch {
	case img.B64JSON != "":
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return nil, &agent.ParseError{Op: "image", Err: fmt.Errorf("decode b64_json: %w", err)}
		}
		return data, nil
	case img.URL != "":
		return g.download(ctx, img.URL)
	default:
		return nil, nil
	}
}

func (g *ImageGenerator) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create image download: %w", err)
	}
	resp, err := g.client.hc.Do(req)
	if err != nil {
		return nil, &agent.CallError{Op: "image download", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return nil, &agent.CallError{Op: "image download", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}
