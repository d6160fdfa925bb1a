package registry

import (
	"fmt"
	"sort"
	"sync"

	"chsched/internal/config"
	"chsched/internal/dest"
	"chsched/internal/sched"
)

// Registry is the mutable destination table for one logical service.
// Mutations are expected from a serialized control path; the registry
// still locks internally so misuse cannot corrupt it.
type Registry struct {
	mu       sync.Mutex
	dests    map[string]*dest.Destination
	bindings []*sched.ServiceBinding
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		dests: make(map[string]*dest.Destination),
	}
}

// NewFromSpecs creates a registry pre-populated from parsed destination
// entries.
func NewFromSpecs(specs []config.DestSpec) *Registry {
	r := New()
	for _, s := range specs {
		r.dests[fmt.Sprintf("%s:%d", s.Addr, s.Port)] = dest.New(s.Addr, s.Port, s.Weight)
	}
	return r
}

// snapshotLocked returns the current destinations in deterministic order.
func (r *Registry) snapshotLocked() []*dest.Destination {
	keys := make([]string, 0, len(r.dests))
	for k := range r.dests {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*dest.Destination, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.dests[k])
	}
	return out
}

// notifyLocked rebuilds every attached binding from the current table.
// The first rebuild error is returned; remaining bindings are still
// updated so they do not keep stale shares.
func (r *Registry) notifyLocked() error {
	snap := r.snapshotLocked()
	var firstErr error
	for _, b := range r.bindings {
		if err := b.Update(snap); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Attach initializes a binding from the current destination set and
// subscribes it to future changes.
func (r *Registry) Attach(b *sched.ServiceBinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := b.Init(r.snapshotLocked()); err != nil {
		return fmt.Errorf("init binding: %w", err)
	}
	r.bindings = append(r.bindings, b)
	return nil
}

// Detach tears a binding down and unsubscribes it.
func (r *Registry) Detach(b *sched.ServiceBinding) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, attached := range r.bindings {
		if attached == b {
			r.bindings = append(r.bindings[:i], r.bindings[i+1:]...)
			break
		}
	}
	b.Done()
}

// Add registers a destination and rebuilds attached bindings. Adding an
// identity that already exists updates its weight instead.
func (r *Registry) Add(addr string, port uint16, weight int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s:%d", addr, port)
	if existing, ok := r.dests[key]; ok {
		existing.SetWeight(weight)
	} else {
		r.dests[key] = dest.New(addr, port, weight)
	}
	return r.notifyLocked()
}

// Remove drops a destination, rebuilds attached bindings, then releases
// the registry's ownership share. Removing an unknown key is a no-op.
func (r *Registry) Remove(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.dests[key]
	if !ok {
		return nil
	}
	delete(r.dests, key)

	// Bindings rebuild before the registry drops its share, so no
	// binding ever holds a reference the registry already released.
	err := r.notifyLocked()
	d.Release()
	return err
}

// SetWeight changes a destination's weight and rebuilds attached bindings
// so the replica count tracks the new weight.
func (r *Registry) SetWeight(key string, weight int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.dests[key]
	if !ok {
		return fmt.Errorf("unknown destination %s", key)
	}
	d.SetWeight(weight)
	return r.notifyLocked()
}

// SetAvailable flips the availability flag. No rebuild: the scheduler
// filters on flags per lookup.
func (r *Registry) SetAvailable(key string, available bool) error {
	return r.setFlag(key, dest.FlagAvailable, available)
}

// SetOverloaded flips the overload flag. No rebuild.
func (r *Registry) SetOverloaded(key string, overloaded bool) error {
	return r.setFlag(key, dest.FlagOverloaded, overloaded)
}

func (r *Registry) setFlag(key string, f dest.Flags, on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.dests[key]
	if !ok {
		return fmt.Errorf("unknown destination %s", key)
	}
	if on {
		d.SetFlag(f)
	} else {
		d.ClearFlag(f)
	}
	return nil
}

// Get returns the destination with the given key.
func (r *Registry) Get(key string) (*dest.Destination, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.dests[key]
	return d, ok
}

// Len returns the number of registered destinations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dests)
}
