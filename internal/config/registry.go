package config

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/MrWong99/vvpreset/pkg/provider/tts"
)

// ErrEngineNotRegistered is returned by [Registry.CreateCatalogue] when no
// factory has been registered under the requested engine name.
var ErrEngineNotRegistered = errors.New("config: engine not registered")

// CatalogueFactory builds a speaker catalogue from the engine settings. hc is
// the HTTP client to use and may be nil.
type CatalogueFactory func(cfg EngineConfig, hc *http.Client) (tts.Catalogue, error)

// Registry maps engine names to their catalogue constructors. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]CatalogueFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]CatalogueFactory)}
}

// RegisterCatalogue registers a catalogue factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterCatalogue(name string, factory CatalogueFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[name] = factory
}

// Names returns the registered engine names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for n := range r.engines {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// CreateCatalogue instantiates the catalogue registered under cfg.Name.
// Returns [ErrEngineNotRegistered] if no factory has been registered for
// that name.
func (r *Registry) CreateCatalogue(cfg EngineConfig, hc *http.Client) (tts.Catalogue, error) {
	r.mu.RLock()
	factory, ok := r.engines[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrEngineNotRegistered, cfg.Name, r.Names())
	}
	return factory(cfg, hc)
}
