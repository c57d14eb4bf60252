// Package processors routes a branch table to the post-processing strategy
// registered for a class label.
package processors

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"glyph-skeleton/internal/results"
)

var (
	ErrUnknownProcessorClass = errors.New("no processor registered for class")
	ErrRegistrySealed        = errors.New("processor registry is sealed")
)

// Result is whatever a strategy produces; the registry never inspects it.
type Result interface{}

type noResult struct{}

func (noResult) String() string { return "no result" }

// NoResult marks a pipeline run that did not classify.
var NoResult Result = noResult{}

// Strategy consumes the branch table of one image and produces a result.
type Strategy interface {
	Process(table results.Table) (Result, error)
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(table results.Table) (Result, error)

func (f StrategyFunc) Process(table results.Table) (Result, error) {
	return f(table)
}

// Registry maps class labels to strategies. It is filled at startup, sealed,
// and only read afterwards.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	sealed     bool
}

func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

func (r *Registry) Register(label string, strategy Strategy) error {
	if label == "" {
		return fmt.Errorf("class label cannot be empty")
	}
	if strategy == nil {
		return fmt.Errorf("strategy for class %q cannot be nil", label)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%w: cannot register class %q", ErrRegistrySealed, label)
	}
	if _, exists := r.strategies[label]; exists {
		return fmt.Errorf("class %q already registered", label)
	}
	r.strategies[label] = strategy
	return nil
}

// Seal forbids further registration.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

func (r *Registry) Has(label string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.strategies[label]
	return ok
}

// Labels returns the registered class labels in sorted order.
func (r *Registry) Labels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	labels := make([]string, 0, len(r.strategies))
	for label := range r.strategies {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Dispatch runs the strategy registered for label and returns its result
// verbatim. Unknown labels fail with ErrUnknownProcessorClass.
func (r *Registry) Dispatch(label string, table results.Table) (Result, error) {
	r.mu.RLock()
	strategy, ok := r.strategies[label]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProcessorClass, label)
	}

	result, err := strategy.Process(table)
	if err != nil {
		return nil, fmt.Errorf("processor for class %q: %w", label, err)
	}
	return result, nil
}
