// Package secrets holds the signing keys that can rotate while the process
// runs. A Vault is filled by a Loader and swapped atomically on Reload.
package secrets

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Keys held by the vault.
const (
	KeyMetricsSecret = "metrics_secret"
	KeyMCPAPIKey     = "mcp_api_key"
)

// Loader returns the current secret values.
type Loader func() (map[string]string, error)

// Vault holds secret values in memory.
type Vault struct {
	mu     sync.RWMutex
	values map[string]string
	loader Loader
}

// NewVault calls loader once to populate the initial values.
func NewVault(loader Loader) (*Vault, error) {
	vals, err := loader()
	if err != nil {
		return nil, fmt.Errorf("initial secret load: %w", err)
	}
	return &Vault{values: vals, loader: loader}, nil
}

// Get returns the secret for key, or "" if unset.
func (v *Vault) Get(key string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[key]
}

// Getter binds key so middleware always reads the current value.
func (v *Vault) Getter(key string) func() string {
	return func() string { return v.Get(key) }
}

// Reload swaps in fresh values. On error the old values stay.
func (v *Vault) Reload() error {
	vals, err := v.loader()
	if err != nil {
		return fmt.Errorf("reload secrets: %w", err)
	}
	v.mu.Lock()
	v.values = vals
	v.mu.Unlock()
	return nil
}

// Keys returns the set keys in sorted order.
func (v *Vault) Keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	keys := make([]string, 0, len(v.values))
	for k := range v.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Redacted returns a loggable form of key's value: the first two characters
// followed by "****", or "****" for values of four characters or fewer.
func (v *Vault) Redacted(key string) string {
	return redact(v.Get(key))
}

// RedactString masks every known secret value in s.
func (v *Vault) RedactString(s string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, val := range v.values {
		if len(val) < 4 {
			continue
		}
		s = strings.ReplaceAll(s, val, redact(val))
	}
	return s
}

func redact(val string) string {
	switch {
	case val == "":
		return ""
	case len(val) <= 4:
		return "****"
	default:
		return val[:2] + "****"
	}
}
