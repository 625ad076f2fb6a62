package experiment

import "sync"

// Flags is a simple name→boolean feature flag map, defaulting to
// false for any flag never explicitly set (spec.md §4.3).
type Flags struct {
	mu    sync.RWMutex
	flags map[string]bool
}

// NewFlags returns an empty flag set.
func NewFlags() *Flags {
	return &Flags{flags: make(map[string]bool)}
}

// Set records a flag's value.
func (f *Flags) Set(name string, value bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[name] = value
}

// Enabled reports a flag's value, defaulting to false.
func (f *Flags) Enabled(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.flags[name]
}

// Well-known feature flag names spec.md references directly.
const (
	FlagPreferCostOptimization  = "prefer_cost_optimization"
	FlagCredentialValidation    = "credential_validation_enabled"
	FlagSagasEnabled            = "sagas_enabled"
)
