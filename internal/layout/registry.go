package layout

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]Layout)
	registryMu sync.RWMutex
)

// Register adds a layout to the registry after applying defaults.
// Panics if the layout is invalid or its name is already taken.
func Register(l Layout) {
	l = l.WithDefaults()
	if err := l.Validate(); err != nil {
		panic(fmt.Sprintf("layout %q: %v", l.Name, err))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[l.Name]; exists {
		panic(fmt.Sprintf("layout already registered: %s", l.Name))
	}
	registry[l.Name] = l
}

// Get returns a layout by name.
// Returns false if not found.
func Get(name string) (Layout, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	l, ok := registry[name]
	return l, ok
}

// Names returns the registered layout names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes all registered layouts.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Layout)
}
