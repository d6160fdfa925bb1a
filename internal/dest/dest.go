package dest

import (
	"fmt"
	"sync/atomic"
)

// Flags is the destination health bitset.
type Flags uint32

const (
	// FlagAvailable marks a destination as eligible for new flows.
	FlagAvailable Flags = 1 << iota
	// FlagOverloaded marks a destination that should shed new flows.
	FlagOverloaded
)

// Destination is one backend server. Its identity is (Addr, Port); weight
// and flags are mutable after creation.
type Destination struct {
	Addr string
	Port uint16

	weight atomic.Int32
	flags  atomic.Uint32
	refcnt atomic.Int64
}

// New creates a destination with the given weight, marked available, and
// one ownership reference held by the caller.
func New(addr string, port uint16, weight int32) *Destination {
	d := &Destination{Addr: addr, Port: port}
	d.weight.Store(weight)
	d.flags.Store(uint32(FlagAvailable))
	d.refcnt.Store(1)
	return d
}

// Key returns the unique identity string, "addr:port". Virtual-node
// identities are derived from it, so two destinations never collide on
// identity strings.
func (d *Destination) Key() string {
	return fmt.Sprintf("%s:%d", d.Addr, d.Port)
}

// Weight returns the current weight.
func (d *Destination) Weight() int32 {
	return d.weight.Load()
}

// SetWeight updates the weight. The ring is not rebuilt here; callers
// must trigger a binding update for the change to take effect.
func (d *Destination) SetWeight(w int32) {
	d.weight.Store(w)
}

// HasFlag reports whether all bits in f are set.
func (d *Destination) HasFlag(f Flags) bool {
	return Flags(d.flags.Load())&f == f
}

// SetFlag sets the bits in f.
func (d *Destination) SetFlag(f Flags) {
	for {
		old := d.flags.Load()
		if d.flags.CompareAndSwap(old, old|uint32(f)) {
			return
		}
	}
}

// ClearFlag clears the bits in f.
func (d *Destination) ClearFlag(f Flags) {
	for {
		old := d.flags.Load()
		if d.flags.CompareAndSwap(old, old&^uint32(f)) {
			return
		}
	}
}

// Usable reports whether the scheduler may hand new flows to this
// destination: available, not overloaded, positive weight.
func (d *Destination) Usable() bool {
	f := Flags(d.flags.Load())
	return f&FlagAvailable != 0 && f&FlagOverloaded == 0 && d.weight.Load() > 0
}

// Hold takes an additional shared-ownership reference.
func (d *Destination) Hold() {
	d.refcnt.Add(1)
}

// Release drops one shared-ownership reference. Releasing a reference
// that was never held is a bug in the caller, not a runtime condition.
func (d *Destination) Release() {
	if d.refcnt.Add(-1) < 0 {
		panic("dest: reference count underflow for " + d.Key())
	}
}

// RefCount returns the current reference count.
func (d *Destination) RefCount() int64 {
	return d.refcnt.Load()
}

// String returns the identity plus current weight, for diagnostics.
func (d *Destination) String() string {
	return fmt.Sprintf("%s (weight=%d)", d.Key(), d.Weight())
}
