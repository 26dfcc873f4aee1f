/**
 * @description
 * Session-scoped resource registry. Every client-side state container
 * (search, activity, wallet, onboarding, recovery, notifications,
 * pending updates, history, connected apps, push channel) registers a
 * clear capability at startup; logout iterates the registry instead of
 * naming each store. Clearing is idempotent, so a repeated logout is
 * harmless.
 */

package session

import (
	"log"
	"sync"
)

// Clearable is the capability a session-scoped store registers so logout
// can invalidate it without knowing what it holds.
type Clearable interface {
	Clear()
}

// ClearFunc adapts a plain function to the Clearable interface.
type ClearFunc func()

func (f ClearFunc) Clear() { f() }

// Registry holds the session-scoped stores in registration order.
type Registry struct {
	mu     sync.Mutex
	names  []string
	stores map[string]Clearable
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]Clearable)}
}

// Register adds a store under a stable name. Registering the same name
// twice replaces the store but keeps its original position, so the clear
// order stays deterministic across re-registration.
func (r *Registry) Register(name string, store Clearable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stores[name]; !exists {
		r.names = append(r.names, name)
	}
	r.stores[name] = store
}

// Clear invalidates every registered store in registration order. Safe
// to call repeatedly; stores must tolerate being cleared when already
// empty.
func (r *Registry) Clear() {
	r.mu.Lock()
	names := make([]string, len(r.names))
	copy(names, r.names)
	stores := make(map[string]Clearable, len(r.stores))
	for k, v := range r.stores {
		stores[k] = v
	}
	r.mu.Unlock()

	for _, name := range names {
		stores[name].Clear()
	}
	log.Printf("level=info component=session msg=\"stores cleared\" count=%d", len(names))
}

// Names returns the registered store names in clear order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
