// Package dest defines the backend destination model: network identity,
// mutable weight, health flags, and the shared-ownership reference count
// co-held with the backend registry. Weight, flags, and the reference
// count are atomics because a destination can be scheduled and reweighted
// or removed concurrently from unrelated control flow.
package dest
