package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Registry holds registered providers and dispatches to them uniformly.
// It is the in-process surface a host uses once plugins have been resolved;
// discovery and orchestration live in the host itself.
type Registry struct {
	mu          sync.RWMutex
	coreVersion string
	providers   map[string]Provider
	active      map[string]bool
	logger      zerolog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger. Default is a no-op logger.
func WithLogger(logger zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithCoreVersion makes Register enforce each provider's RequiresCore
// constraint against the given host core version.
func WithCoreVersion(version string) RegistryOption {
	return func(r *Registry) {
		r.coreVersion = version
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		active:    make(map[string]bool),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds providers to the registry. All providers are checked before
// any is added, so a failed call leaves the registry unchanged.
func (r *Registry) Register(providers ...Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(providers))
	for i, provider := range providers {
		if provider == nil {
			return fmt.Errorf("provider at index %d is nil", i)
		}
		meta := provider.Metadata()
		if meta.Name == "" {
			return fmt.Errorf("provider at index %d has empty name", i)
		}
		if _, ok := r.providers[meta.Name]; ok {
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, meta.Name)
		}
		if _, ok := seen[meta.Name]; ok {
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, meta.Name)
		}
		if r.coreVersion != "" {
			if err := meta.CompatibleWith(r.coreVersion); err != nil {
				return fmt.Errorf("register %s: %w", meta.Name, err)
			}
		}
		seen[meta.Name] = struct{}{}
	}
	for _, provider := range providers {
		meta := provider.Metadata()
		r.providers[meta.Name] = provider
		r.logger.Debug().Str("provider", meta.Name).Str("version", meta.Version).Msg("provider registered")
	}
	return nil
}

// Get returns a provider by metadata name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return provider, nil
}

// ByCapability returns providers declaring a capability tag, in stable
// name order.
func (r *Registry) ByCapability(tag string) []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name, provider := range r.providers {
		if provider.Metadata().ProvidesCapability(tag) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]Provider, 0, len(names))
	for _, name := range names {
		out = append(out, r.providers[name])
	}
	return out
}

// List returns registered provider metadata in stable name order.
func (r *Registry) List() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metas := make([]Metadata, 0, len(r.providers))
	for _, provider := range r.providers {
		metas = append(metas, provider.Metadata())
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].Name < metas[j].Name
	})
	return metas
}

// ActivateAll activates registered providers in name order, stopping at the
// first failure.
func (r *Registry) ActivateAll(ctx context.Context, hostCtx map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.sortedNames() {
		if r.active[name] {
			continue
		}
		if err := r.providers[name].Activate(ctx, hostCtx); err != nil {
			r.logger.Error().Err(err).Str("provider", name).Msg("provider activation failed")
			return fmt.Errorf("activate %s: %w", name, err)
		}
		r.active[name] = true
		r.logger.Info().Str("provider", name).Msg("provider activated")
	}
	return nil
}

// DeactivateAll deactivates active providers in reverse name order. All
// providers are attempted; the first error is returned.
func (r *Registry) DeactivateAll(ctx context.Context, hostCtx map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := r.sortedNames()
	var firstErr error
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		if !r.active[name] {
			continue
		}
		if err := r.providers[name].Deactivate(ctx, hostCtx); err != nil {
			r.logger.Error().Err(err).Str("provider", name).Msg("provider deactivation failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("deactivate %s: %w", name, err)
			}
			continue
		}
		r.active[name] = false
		r.logger.Info().Str("provider", name).Msg("provider deactivated")
	}
	return firstErr
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
