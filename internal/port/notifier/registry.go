package notifier

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a provider's notifier for a webhook URL.
type Factory func(webhookURL string) Notifier

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a provider available to Build. Adapters call it from init.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("notifier: %q registered twice", name))
	}
	factories[name] = f
}

// Providers returns the registered provider names in sorted order.
func Providers() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build returns a notifier for every registered provider with a non-empty
// URL in urls, ordered by provider name. Unknown names in urls are ignored.
func Build(urls map[string]string) []Notifier {
	var out []Notifier
	for _, name := range Providers() {
		url := urls[name]
		if url == "" {
			continue
		}
		mu.RLock()
		f := factories[name]
		mu.RUnlock()
		out = append(out, f(url))
	}
	return out
}
