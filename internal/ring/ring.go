package ring

import (
	"fmt"
	"sort"

	"chsched/internal/dest"
	"chsched/internal/hashkit"
)

// VirtualNode is one hash-space placement of a destination.
type VirtualNode struct {
	hash  uint64
	ident string
	dest  *dest.Destination
}

// Destination returns the destination this virtual node belongs to.
func (v *VirtualNode) Destination() *dest.Destination {
	return v.dest
}

// Ident returns the virtual node's identity string.
func (v *VirtualNode) Ident() string {
	return v.ident
}

// Ring is an ordered collection of virtual nodes keyed by hash value,
// conceptually circular: lookups past the last entry wrap to the first.
// Hash ties are broken by identity string so the order is always total.
type Ring struct {
	hasher hashkit.Hasher
	vnodes []VirtualNode
}

// New creates an empty ring using the given hasher.
func New(hasher hashkit.Hasher) *Ring {
	return &Ring{
		hasher: hasher,
		vnodes: make([]VirtualNode, 0),
	}
}

// Len returns the number of virtual nodes on the ring.
func (r *Ring) Len() int {
	return len(r.vnodes)
}

// atOrAfter reports whether vnode i sorts at or after position (hash, ident).
func (r *Ring) atOrAfter(i int, hash uint64, ident string) bool {
	if r.vnodes[i].hash != hash {
		return r.vnodes[i].hash >= hash
	}
	return r.vnodes[i].ident >= ident
}

// Insert places a virtual node for d at the position hashed from ident,
// keeping the ring sorted.
func (r *Ring) Insert(ident string, d *dest.Destination) {
	hash := r.hasher.Sum64String(ident)
	idx := sort.Search(len(r.vnodes), func(i int) bool {
		return r.atOrAfter(i, hash, ident)
	})

	v := VirtualNode{hash: hash, ident: ident, dest: d}
	r.vnodes = append(r.vnodes, VirtualNode{})
	copy(r.vnodes[idx+1:], r.vnodes[idx:])
	r.vnodes[idx] = v
}

// Remove deletes the virtual node with the given identity. Removing an
// identity that is not on the ring is a no-op.
func (r *Ring) Remove(ident string) {
	hash := r.hasher.Sum64String(ident)
	idx := sort.Search(len(r.vnodes), func(i int) bool {
		return r.atOrAfter(i, hash, ident)
	})
	if idx >= len(r.vnodes) || r.vnodes[idx].ident != ident {
		return
	}
	r.vnodes = append(r.vnodes[:idx], r.vnodes[idx+1:]...)
}

// RemoveDestination deletes every virtual node owned by the destination
// with the given key. Returns the number of nodes removed.
func (r *Ring) RemoveDestination(destKey string) int {
	kept := r.vnodes[:0]
	removed := 0
	for _, v := range r.vnodes {
		if v.dest.Key() == destKey {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	r.vnodes = kept
	return removed
}

// Successor returns the first virtual node with hash >= h, wrapping to
// the smallest entry when h is past the last one. The second return is
// false only when the ring is empty.
func (r *Ring) Successor(h uint64) (*VirtualNode, bool) {
	if len(r.vnodes) == 0 {
		return nil, false
	}

	idx := sort.Search(len(r.vnodes), func(i int) bool {
		return r.vnodes[i].hash >= h
	})
	if idx >= len(r.vnodes) {
		idx = 0
	}
	return &r.vnodes[idx], true
}

// Lookup hashes key and returns the destination of its successor node.
func (r *Ring) Lookup(key string) (*dest.Destination, bool) {
	v, ok := r.Successor(r.hasher.Sum64String(key))
	if !ok {
		return nil, false
	}
	return v.dest, true
}

// ReplicaIdent returns the identity string of replica i of a destination.
// The string is a pure function of (destination key, index), so rebuilds
// place every replica at the same ring position.
func ReplicaIdent(destKey string, i int) string {
	return fmt.Sprintf("%s-replica-%d", destKey, i)
}

// InsertReplicas places n virtual nodes for d, with replica indices
// 0..n-1.
func (r *Ring) InsertReplicas(d *dest.Destination, n int) {
	key := d.Key()
	for i := 0; i < n; i++ {
		r.Insert(ReplicaIdent(key, i), d)
	}
}
