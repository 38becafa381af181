package pipeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/oceanbright/trawl/internal/config"
	trawlerrors "github.com/oceanbright/trawl/pkg/errors"
)

// Factory constructs a pipeline implementation for one on-disk repository.
type Factory func(repoDir string, cfg config.Map, dryRun bool) Pipeline

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a pipeline factory under the given implementation name.
// Pipeline descriptors refer to factories by this name.
func Register(name string, f Factory) error {
	if f == nil {
		return trawlerrors.NewLoadError(name, "factory is nil", nil)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		return trawlerrors.NewLoadError(name, "implementation already registered", fmt.Errorf("duplicate registration of %q", name))
	}

	registry[name] = f
	return nil
}

// Lookup retrieves a registered factory by implementation name.
func Lookup(name string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	f, ok := registry[name]
	if !ok {
		return nil, trawlerrors.NewLoadError(name, "no such implementation registered", nil)
	}

	return f, nil
}

// Registered returns the sorted names of all registered implementations.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears all registrations (for tests).
func Reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Factory)
}
