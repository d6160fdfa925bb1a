// Package ring implements the consistent hashing ring of weighted virtual
// nodes. Each destination is placed at weight x ReplicaBase positions in
// the hash space; lookups walk to the nearest successor position, wrapping
// at the top of the space. Membership changes therefore remap only the
// keys that hashed near the changed destination.
//
// A Ring is not safe for concurrent use; the owning service binding
// serializes readers and the rebuild path.
package ring
