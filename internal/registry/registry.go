// Package registry is the plugin directory mapping platform identifiers
// to crawler implementations. Registrations are append-only for the
// process lifetime; instances are built lazily and cached as singletons.
//
// Supplying overrides to Get is not a one-shot parameterisation: the
// freshly built instance replaces the cached singleton, and later
// no-override calls reuse it.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/qws941/resume-sub005/internal/crawler"
)

// Wiring bugs, not runtime conditions — these are the hard failures.
var (
	ErrDuplicatePlatform = errors.New("platform already registered")
	ErrUnknownPlatform   = errors.New("platform not registered")
)

// instanceState is the explicit uninitialized-or-cached variant for a
// registration's singleton.
type instanceState struct {
	instance crawler.Crawler
	cached   bool
}

type registration struct {
	factory  crawler.Factory
	defaults crawler.Options
	state    instanceState
}

// Registry is a constructible crawler directory. Each Registry is
// isolated: tests build their own instead of sharing ambient state.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registration
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*registration)}
}

// Register adds a platform factory with its default options. Registering
// the same platform twice is a wiring bug and fails hard.
func (r *Registry) Register(platform string, factory crawler.Factory, defaults crawler.Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[platform]; exists {
		return fmt.Errorf("register %q: %w", platform, ErrDuplicatePlatform)
	}
	r.entries[platform] = &registration{factory: factory, defaults: defaults}
	return nil
}

// Get returns the platform's crawler, constructing it on first use. A
// non-empty overrides map builds a replacement instance (defaults merged
// under overrides) that becomes the new cached singleton.
func (r *Registry) Get(platform string, overrides crawler.Options) (crawler.Crawler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, exists := r.entries[platform]
	if !exists {
		return nil, fmt.Errorf("get %q: %w", platform, ErrUnknownPlatform)
	}

	if reg.state.cached && len(overrides) == 0 {
		return reg.state.instance, nil
	}

	instance, err := reg.factory(crawler.Merge(reg.defaults, overrides))
	if err != nil {
		return nil, fmt.Errorf("construct %q: %w", platform, err)
	}
	reg.state = instanceState{instance: instance, cached: true}
	return instance, nil
}

// Has reports whether platform is registered.
func (r *Registry) Has(platform string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.entries[platform]
	return exists
}

// List returns the registered platforms, sorted.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	platforms := make([]string, 0, len(r.entries))
	for p := range r.entries {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	return platforms
}

// Unregister removes a platform and its cached instance, if any.
func (r *Registry) Unregister(platform string) {
	r.mu.Lock()
	delete(r.entries, platform)
	r.mu.Unlock()
}

// Stats is the registry's operational snapshot.
type Stats struct {
	Registered   int      `json:"registered"`
	Instantiated []string `json:"instantiated"`
}

// Stats reports how many platforms are registered and which of them have
// been instantiated.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{Registered: len(r.entries), Instantiated: []string{}}
	for p, reg := range r.entries {
		if reg.state.cached {
			s.Instantiated = append(s.Instantiated, p)
		}
	}
	sort.Strings(s.Instantiated)
	return s
}
