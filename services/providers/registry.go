package providers

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderNotFound is returned when a provider is not registered
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderAlreadyRegistered is returned when trying to register a duplicate provider
	ErrProviderAlreadyRegistered = errors.New("provider already registered")

	// ErrUnknownProvider is returned when the priority list names a provider with no factory
	ErrUnknownProvider = errors.New("unknown provider")
)

// Registry holds the configured adapters in fixed priority order.
// It is immutable once built and safe for concurrent readers.
type Registry struct {
	adapters []Adapter
	index    map[string]int
}

// NewRegistry creates a registry from adapters in priority order
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{
		adapters: make([]Adapter, 0, len(adapters)),
		index:    make(map[string]int, len(adapters)),
	}

	for _, adapter := range adapters {
		if adapter == nil {
			return nil, errors.New("provider cannot be nil")
		}
		name := adapter.Name()
		if name == "" {
			return nil, errors.New("provider name cannot be empty")
		}
		if _, exists := r.index[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrProviderAlreadyRegistered, name)
		}
		r.index[name] = len(r.adapters)
		r.adapters = append(r.adapters, adapter)
	}

	return r, nil
}

// Adapters returns the adapters in priority order
func (r *Registry) Adapters() []Adapter {
	out := make([]Adapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}

// Names returns the provider names in priority order
func (r *Registry) Names() []string {
	names := make([]string, len(r.adapters))
	for i, adapter := range r.adapters {
		names[i] = adapter.Name()
	}
	return names
}

// Len returns the number of registered providers
func (r *Registry) Len() int {
	return len(r.adapters)
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Adapter, error) {
	i, ok := r.index[name]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return r.adapters[i], nil
}

// Has reports whether a provider was configured
func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// AdapterFactory is a function that creates a provider instance.
// Returning an error excludes the provider from the registry.
type AdapterFactory func() (Adapter, error)

// BuildError records a provider that failed to configure
type BuildError struct {
	Provider string
	Err      error
}

// Error implements the error interface
func (e BuildError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

// Unwrap implements error unwrapping
func (e BuildError) Unwrap() error {
	return e.Err
}

// RegistryBuilder helps build a registry with multiple providers
type RegistryBuilder struct {
	factories map[string]AdapterFactory
}

// NewRegistryBuilder creates a new registry builder
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{
		factories: make(map[string]AdapterFactory),
	}
}

// WithFactory registers a provider factory under name
func (rb *RegistryBuilder) WithFactory(name string, factory AdapterFactory) *RegistryBuilder {
	rb.factories[name] = factory
	return rb
}

// Build constructs providers in priority order. Providers whose factory fails
// are left out and reported; the registry itself may end up empty.
func (rb *RegistryBuilder) Build(priority []string) (*Registry, []BuildError) {
	var (
		adapters []Adapter
		skipped  []BuildError
		seen     = make(map[string]bool, len(priority))
	)

	for _, name := range priority {
		if seen[name] {
			skipped = append(skipped, BuildError{Provider: name, Err: ErrProviderAlreadyRegistered})
			continue
		}
		seen[name] = true

		factory, ok := rb.factories[name]
		if !ok {
			skipped = append(skipped, BuildError{Provider: name, Err: ErrUnknownProvider})
			continue
		}

		adapter, err := factory()
		if err != nil {
			skipped = append(skipped, BuildError{Provider: name, Err: err})
			continue
		}
		if adapter.Name() != name {
			skipped = append(skipped, BuildError{
				Provider: name,
				Err:      fmt.Errorf("factory returned provider %q", adapter.Name()),
			})
			continue
		}
		adapters = append(adapters, adapter)
	}

	// names are unique by construction, so NewRegistry cannot fail here
	registry, err := NewRegistry(adapters...)
	if err != nil {
		registry = &Registry{index: map[string]int{}}
		skipped = append(skipped, BuildError{Provider: "*", Err: err})
	}
	return registry, skipped
}
