package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Strob0t/Boardroom/internal/config"
)

// ConfigLoader reads the secrets from the current config, which already
// carries YAML and environment overrides.
func ConfigLoader(h *config.Holder) Loader {
	return func() (map[string]string, error) {
		cfg := h.Get()
		vals := make(map[string]string, 2)
		if cfg.Server.MetricsSecret != "" {
			vals[KeyMetricsSecret] = cfg.Server.MetricsSecret
		}
		if cfg.MCP.APIKey != "" {
			vals[KeyMCPAPIKey] = cfg.MCP.APIKey
		}
		return vals, nil
	}
}

// FileLoader reads one file per key from dir, as mounted by Docker or
// Kubernetes secrets. Missing files are skipped and an empty dir disables it.
func FileLoader(dir string, keys ...string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(keys))
		if dir == "" {
			return vals, nil
		}
		for _, k := range keys {
			b, err := os.ReadFile(filepath.Join(dir, k))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("read secret %s: %w", k, err)
			}
			if v := strings.TrimSpace(string(b)); v != "" {
				vals[k] = v
			}
		}
		return vals, nil
	}
}

// Merge runs loaders in order; later loaders win on conflicting keys.
func Merge(loaders ...Loader) Loader {
	return func() (map[string]string, error) {
		out := make(map[string]string)
		for _, l := range loaders {
			vals, err := l()
			if err != nil {
				return nil, err
			}
			for k, v := range vals {
				out[k] = v
			}
		}
		return out, nil
	}
}
