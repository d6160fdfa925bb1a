// Package registry tracks the live backend destinations for a service and
// drives the attached service bindings through their lifecycle: Init on
// attach, Update on every topology or weight change, Done on detach.
// Health flag flips do not rebuild the ring; the scheduler reads flags at
// lookup time.
//
// The registry co-owns destination objects with the bindings through the
// shared reference count on dest.Destination.
package registry
