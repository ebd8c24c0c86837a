// Package registry owns the per-retailer client handles. It replaces the
// process-wide singleton client state the system grew out of: the registry is
// created by the orchestrator's caller, passed by handle, guarded by an
// explicit mutex, and closed explicitly.
package registry

import (
	"fmt"
	"sync"

	"storewatch/pkg/config"
)

// Factory builds a client for a retailer. The default factory ignores the
// retailer name and produces identically configured HTTP clients; callers
// with per-retailer session needs supply their own.
type Factory func(retailer string) (Client, error)

// Registry is a keyed set of retailer client handles. It is the only state
// shared across workers and is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	clients map[string]Client
	factory Factory
	closed  bool
}

// New creates a registry whose clients come from the given factory.
func New(factory Factory) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		factory: factory,
	}
}

// NewWithConfig creates a registry producing default HTTP clients.
func NewWithConfig(cfg config.HTTPConfig) *Registry {
	return New(func(string) (Client, error) {
		return NewHTTPClient(cfg), nil
	})
}

// Get returns the retailer's client, creating it on first use.
func (r *Registry) Get(retailer string) (Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("client registry is closed")
	}
	if client, ok := r.clients[retailer]; ok {
		return client, nil
	}

	client, err := r.factory(retailer)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", retailer, err)
	}
	r.clients[retailer] = client
	return client, nil
}

// Close closes every handle and marks the registry unusable. The first close
// error is returned; remaining handles are still closed.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	for retailer, client := range r.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close client for %s: %w", retailer, err)
		}
	}
	r.clients = nil
	return firstErr
}
