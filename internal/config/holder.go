package config

import (
	"fmt"
	"sync"
)

// Holder guards a Config that can be reloaded from its YAML file at runtime.
type Holder struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewHolder wraps an already-loaded config and the path it came from.
func NewHolder(cfg *Config, path string) *Holder {
	return &Holder{cfg: cfg, path: path}
}

// Get returns a copy of the current config.
func (h *Holder) Get() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return *h.cfg
}

// Reload re-reads defaults < YAML < ENV. On error the previous config stays.
func (h *Holder) Reload() error {
	cfg, err := LoadFrom(h.path)
	if err != nil {
		return fmt.Errorf("reload %s: %w", h.path, err)
	}
	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()
	return nil
}

// Brand returns the current brand section.
func (h *Holder) Brand() Brand {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg.Brand
}
