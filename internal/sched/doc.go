// Package sched implements the consistent-hash flow scheduler: the
// per-service binding that owns a ring of weighted virtual nodes, the
// rebuild protocol that repopulates it when the backend set changes, and
// the lookup path that maps a flow's source address to a destination.
//
// Schedule is called once per incoming flow from many goroutines; Init,
// Update, and Done are called rarely from a serialized control path. The
// binding's RWMutex keeps readers off half-built rings.
package sched
