package litellm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// EndpointHealth is one entry of the /health report.
type EndpointHealth struct {
	Model   string `json:"model"`
	APIBase string `json:"api_base,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthReport is the decoded /health body.
type HealthReport struct {
	HealthyEndpoints   []EndpointHealth `json:"healthy_endpoints"`
	UnhealthyEndpoints []EndpointHealth `json:"unhealthy_endpoints"`
	HealthyCount       int              `json:"healthy_count"`
	UnhealthyCount     int              `json:"unhealthy_count"`
}

// HealthDetailed returns the per-endpoint health report.
func (c *Client) HealthDetailed(ctx context.Context) (*HealthReport, error) {
	resp, err := c.fetch(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}
	var report HealthReport
	if err := json.Unmarshal(resp, &report); err != nil {
		return nil, fmt.Errorf("unmarshal health: %w", err)
	}
	if report.HealthyCount == 0 {
		report.HealthyCount = len(report.HealthyEndpoints)
	}
	if report.UnhealthyCount == 0 {
		report.UnhealthyCount = len(report.UnhealthyEndpoints)
	}
	return &report, nil
}

// DiscoveredModel is a configured model annotated with its reachability.
type DiscoveredModel struct {
	ModelName   string `json:"model_name"`
	ModelID     string `json:"model_id,omitempty"`
	Provider    string `json:"provider,omitempty"`
	MaxTokens   int    `json:"max_tokens,omitempty"`
	Status      string `json:"status"` // reachable or unreachable
	ErrorDetail string `json:"error_detail,omitempty"`
}

// DiscoverModels lists the configured models and marks each reachable or
// unreachable from the health report. When /health itself fails every model
// is reported reachable.
func (c *Client) DiscoverModels(ctx context.Context) ([]DiscoveredModel, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	unhealthy := map[string]string{}
	report, err := c.HealthDetailed(ctx)
	if err != nil {
		slog.WarnContext(ctx, "litellm health unavailable, assuming models reachable", "error", err)
	} else {
		for _, e := range report.UnhealthyEndpoints {
			detail := e.Error
			if detail == "" {
				detail = "unhealthy"
			}
			unhealthy[e.Model] = detail
		}
	}

	out := make([]DiscoveredModel, 0, len(models))
	for i := range models {
		m := &models[i]
		d := DiscoveredModel{
			ModelName: m.ModelName,
			ModelID:   m.ModelID,
			Provider:  providerOf(m),
			Status:    "reachable",
		}
		if v, ok := m.ModelInfo["max_tokens"].(float64); ok {
			d.MaxTokens = int(v)
		}
		if detail, ok := unhealthy[m.ModelName]; ok {
			d.Status = "unreachable"
			d.ErrorDetail = detail
		}
		out = append(out, d)
	}
	return out, nil
}

// Unreachable returns the names in want that are not served by a reachable model.
func Unreachable(models []DiscoveredModel, want []string) []string {
	ok := map[string]bool{}
	for _, m := range models {
		if m.Status == "reachable" {
			ok[m.ModelName] = true
		}
	}
	var missing []string
	for _, w := range want {
		if !ok[w] {
			missing = append(missing, w)
		}
	}
	return missing
}

func providerOf(m *Model) string {
	if m.Provider != "" {
		return m.Provider
	}
	if before, _, found := strings.Cut(m.Params["model"], "/"); found {
		return before
	}
	return ""
}
