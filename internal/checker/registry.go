package checker

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
)

// registry holds the checkers registered at startup. Concrete sources
// (dark-pool levels, gamma, squeeze, sentiment, macro calendar) live in
// their own packages and register themselves before the orchestrator
// starts, the same way database/sql drivers do.
var (
	registryMu sync.Mutex
	registry   = make(map[string]contracts.Checker)
)

// Register adds a checker under its Name. Duplicate names are a wiring
// bug and fail loudly.
func Register(c contracts.Checker) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := c.Name()
	if name == "" {
		return fmt.Errorf("checker has empty name")
	}
	if _, exists := registry[name]; exists {
		return fmt.Errorf("checker %s already registered", name)
	}

	registry[name] = c
	return nil
}

// All returns the registered checkers in stable name order.
func All() []contracts.Checker {
	registryMu.Lock()
	defer registryMu.Unlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	checkers := make([]contracts.Checker, 0, len(names))
	for _, name := range names {
		checkers = append(checkers, registry[name])
	}
	return checkers
}

// Reset clears the registry. Test helper.
func Reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]contracts.Checker)
}
