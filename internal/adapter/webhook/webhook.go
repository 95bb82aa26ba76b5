// Package webhook posts JSON payloads to chat incoming-webhook URLs.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	sendTimeout  = 10 * time.Second
	maxErrorBody = 512
)

// Poster sends JSON to one webhook URL.
type Poster struct {
	url    string
	client *http.Client
}

// New returns a Poster for url. An empty url yields a Poster that reports
// itself unconfigured.
func New(url string) *Poster {
	return &Poster{url: url, client: &http.Client{Timeout: sendTimeout}}
}

// Configured reports whether the Poster has a URL.
func (p *Poster) Configured() bool { return p.url != "" }

// Post marshals payload and posts it. Any non-2xx answer is an error carrying
// the start of the response body.
func (p *Poster) Post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req) //nolint:gosec // webhook URL from trusted config
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("webhook %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
