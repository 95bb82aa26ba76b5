// Package execution defines the Execution domain entity: the creative output
// of an accepted pitch and the real-world metrics reported against it.
package execution

import (
	"fmt"
	"time"

	"github.com/Strob0t/Boardroom/internal/domain"
)

// Brief is the structured creative brief for one accepted pitch.
type Brief struct {
	Prompts     map[string]string `json:"prompts"` // per channel
	Copy        map[string]string `json:"copy"`    // per channel
	Notes       string            `json:"notes"`
	ImagePrompt string            `json:"image_prompt,omitempty"`
}

// Metrics is the opaque bag supplied by the external metrics process
// (spend, impressions, clicks, roas, ...).
type Metrics map[string]float64

// Execution is created once, right after acceptance.
type Execution struct {
	ID         string     `json:"id"`
	PostID     string     `json:"post_id"`
	Platform   string     `json:"platform"`
	Brief      Brief      `json:"brief"`
	AssetKey   string     `json:"asset_key,omitempty"`
	Metrics    Metrics    `json:"metrics,omitempty"`
	ExecutedAt time.Time  `json:"executed_at"`
	MetricsAt  *time.Time `json:"metrics_at,omitempty"`
}

// HasMetrics reports whether metrics have been reported.
func (e *Execution) HasMetrics() bool {
	return len(e.Metrics) > 0
}

// WantsAsset reports whether an asset should be generated.
func (e *Execution) WantsAsset() bool {
	return e.Brief.ImagePrompt != "" && e.AssetKey == ""
}

// ValidateMetrics rejects an empty bag.
func ValidateMetrics(m Metrics) error {
	if len(m) == 0 {
		return fmt.Errorf("%w: metrics are empty", domain.ErrValidation)
	}
	for k := range m {
		if k == "" {
			return fmt.Errorf("%w: metric name is empty", domain.ErrValidation)
		}
	}
	return nil
}
