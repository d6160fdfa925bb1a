package sched

import (
	"errors"
	"fmt"
	"sync"

	"chsched/internal/config"
	"chsched/internal/dest"
	"chsched/internal/hashkit"
	"chsched/internal/ring"
)

var (
	// ErrRingExhausted reports that a rebuild would exceed the configured
	// virtual-node budget. The binding is left without a complete ring
	// until the next successful update.
	ErrRingExhausted = errors.New("ring node budget exhausted")

	// ErrBindingDone reports use of a binding after Done.
	ErrBindingDone = errors.New("binding already torn down")
)

// ServiceBinding ties one logical service to its consistent-hash ring.
// It owns the ring and its virtual nodes exclusively and holds one shared
// reference to each destination currently placed on the ring.
type ServiceBinding struct {
	mu     sync.RWMutex
	cfg    config.Config
	hasher hashkit.Hasher
	ring   *ring.Ring
	held   map[string]*dest.Destination // destination key -> held share
	count  int                          // virtual nodes on the ring
	done   bool

	noDest throttledLog
}

// New allocates an empty binding. Populate it with Init before scheduling.
func New(cfg config.Config) (*ServiceBinding, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	hasher, err := hashkit.New(cfg.Hasher)
	if err != nil {
		return nil, err
	}

	return &ServiceBinding{
		cfg:    cfg,
		hasher: hasher,
		ring:   ring.New(hasher),
		held:   make(map[string]*dest.Destination),
	}, nil
}

// Init populates the ring from the service's current destination set.
func (b *ServiceBinding) Init(dests []*dest.Destination) error {
	return b.rebuild(dests)
}

// Update flushes the ring and repopulates it from the current destination
// set. Safe to call repeatedly; an empty set yields an empty ring and
// Schedule then always reports no destination.
func (b *ServiceBinding) Update(dests []*dest.Destination) error {
	return b.rebuild(dests)
}

func (b *ServiceBinding) rebuild(dests []*dest.Destination) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return ErrBindingDone
	}

	b.flushLocked()

	for _, d := range dests {
		w := d.Weight()
		if w <= 0 {
			continue
		}
		if _, dup := b.held[d.Key()]; dup {
			continue
		}

		n := int(w) * b.cfg.ReplicaBase
		if b.count+n > b.cfg.MaxRingNodes {
			// Partial ring stays behind; the next flush clears it.
			return fmt.Errorf("adding %d nodes for %s: %w", n, d.Key(), ErrRingExhausted)
		}

		d.Hold()
		b.held[d.Key()] = d
		b.ring.InsertReplicas(d, n)
		b.count += n
	}

	return nil
}

// flushLocked releases every held destination share and empties the ring.
// Caller holds the write lock.
func (b *ServiceBinding) flushLocked() {
	for _, d := range b.held {
		d.Release()
	}
	b.held = make(map[string]*dest.Destination)
	b.ring = ring.New(b.hasher)
	b.count = 0
}

// Done flushes the binding and marks it unusable. Terminal.
func (b *ServiceBinding) Done() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return
	}
	b.flushLocked()
	b.ring = nil
	b.done = true
}

// Count returns the number of virtual nodes currently on the ring.
func (b *ServiceBinding) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Destinations returns the number of distinct destinations on the ring.
func (b *ServiceBinding) Destinations() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.held)
}
