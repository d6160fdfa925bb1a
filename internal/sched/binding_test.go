package sched

import (
	"errors"
	"fmt"
	"testing"

	"chsched/internal/config"
	"chsched/internal/dest"
)

func newTestBinding(t *testing.T) *ServiceBinding {
	t.Helper()
	b, err := New(config.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestBinding_InitCounts(t *testing.T) {
	b := newTestBinding(t)
	d1 := dest.New("10.0.0.1", 80, 1)
	d2 := dest.New("10.0.0.2", 80, 3)

	if err := b.Init([]*dest.Destination{d1, d2}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// weight 1 + weight 3 at 160 replicas per weight unit.
	if b.Count() != 640 {
		t.Errorf("expected 640 virtual nodes, got %d", b.Count())
	}
	if b.Destinations() != 2 {
		t.Errorf("expected 2 destinations, got %d", b.Destinations())
	}
}

func TestBinding_ZeroWeightExcluded(t *testing.T) {
	b := newTestBinding(t)
	d1 := dest.New("10.0.0.1", 80, 1)
	d2 := dest.New("10.0.0.2", 80, 0)

	if err := b.Init([]*dest.Destination{d1, d2}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if b.Count() != 160 {
		t.Errorf("expected 160 virtual nodes, got %d", b.Count())
	}
	if b.Destinations() != 1 {
		t.Errorf("zero-weight destination must not be on the ring")
	}
	if d2.RefCount() != 1 {
		t.Errorf("binding must not hold a share of an excluded destination, refcount %d", d2.RefCount())
	}
}

func TestBinding_RefCountLifecycle(t *testing.T) {
	b := newTestBinding(t)
	d := dest.New("10.0.0.1", 80, 2)

	if err := b.Init([]*dest.Destination{d}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if d.RefCount() != 2 {
		t.Errorf("expected refcount 2 while on ring, got %d", d.RefCount())
	}

	// Rebuild releases and re-holds; the count must stay balanced.
	if err := b.Update([]*dest.Destination{d}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if d.RefCount() != 2 {
		t.Errorf("expected refcount 2 after rebuild, got %d", d.RefCount())
	}

	// Removal from the set releases the binding's share.
	if err := b.Update(nil); err != nil {
		t.Fatalf("Update with empty set: %v", err)
	}
	if d.RefCount() != 1 {
		t.Errorf("expected refcount 1 after removal, got %d", d.RefCount())
	}
}

func TestBinding_EmptyUpdate(t *testing.T) {
	b := newTestBinding(t)
	d := dest.New("10.0.0.1", 80, 1)

	if err := b.Init([]*dest.Destination{d}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := b.Update(nil); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if b.Count() != 0 {
		t.Errorf("expected empty ring, got %d nodes", b.Count())
	}
	if _, ok := b.Schedule("192.168.1.1"); ok {
		t.Error("expected no destination from an empty ring")
	}
}

func TestBinding_UpdateIdempotent(t *testing.T) {
	b := newTestBinding(t)
	dests := []*dest.Destination{
		dest.New("10.0.0.1", 80, 1),
		dest.New("10.0.0.2", 80, 2),
		dest.New("10.0.0.3", 80, 3),
	}
	if err := b.Init(dests); err != nil {
		t.Fatalf("Init: %v", err)
	}

	before := make(map[string]string)
	for i := 0; i < 1000; i++ {
		src := fmt.Sprintf("172.16.%d.%d", i/256, i%256)
		d, ok := b.Schedule(src)
		if !ok {
			t.Fatalf("no destination for %s", src)
		}
		before[src] = d.Key()
	}

	// Same destination set twice in a row: routing must be unchanged.
	if err := b.Update(dests); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := b.Update(dests); err != nil {
		t.Fatalf("Update: %v", err)
	}

	for src, want := range before {
		d, ok := b.Schedule(src)
		if !ok || d.Key() != want {
			t.Fatalf("routing for %s changed after rebuild: %s -> %v", src, want, d)
		}
	}
}

func TestBinding_RingExhausted(t *testing.T) {
	cfg := config.Default()
	cfg.MaxRingNodes = 320
	b, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	dests := []*dest.Destination{
		dest.New("10.0.0.1", 80, 1),
		dest.New("10.0.0.2", 80, 1),
		dest.New("10.0.0.3", 80, 1), // third destination exceeds the budget
	}
	err = b.Init(dests)
	if !errors.Is(err, ErrRingExhausted) {
		t.Fatalf("expected ErrRingExhausted, got %v", err)
	}

	// A later update clears the partial state and can succeed.
	if err := b.Update(dests[:2]); err != nil {
		t.Fatalf("Update after failure: %v", err)
	}
	if b.Count() != 320 {
		t.Errorf("expected 320 nodes after recovery, got %d", b.Count())
	}
	for _, d := range dests {
		want := int64(1)
		if d == dests[0] || d == dests[1] {
			want = 2
		}
		if d.RefCount() != want {
			t.Errorf("refcount for %s: expected %d, got %d", d.Key(), want, d.RefCount())
		}
	}
}

func TestBinding_Done(t *testing.T) {
	b := newTestBinding(t)
	d := dest.New("10.0.0.1", 80, 1)
	if err := b.Init([]*dest.Destination{d}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	b.Done()
	if d.RefCount() != 1 {
		t.Errorf("expected share released on teardown, refcount %d", d.RefCount())
	}

	if err := b.Update([]*dest.Destination{d}); !errors.Is(err, ErrBindingDone) {
		t.Errorf("expected ErrBindingDone, got %v", err)
	}
	if _, ok := b.Schedule("192.168.1.1"); ok {
		t.Error("expected no destination from a torn-down binding")
	}

	// Done is terminal but harmless to repeat.
	b.Done()
}

func TestBinding_DuplicateDestination(t *testing.T) {
	b := newTestBinding(t)
	d := dest.New("10.0.0.1", 80, 1)

	if err := b.Init([]*dest.Destination{d, d}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if b.Count() != 160 {
		t.Errorf("duplicate destination must be placed once, got %d nodes", b.Count())
	}
	if d.RefCount() != 2 {
		t.Errorf("duplicate destination must be held once, refcount %d", d.RefCount())
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.ReplicaBase = -1
	if _, err := New(cfg); err == nil {
		t.Error("expected error for invalid config")
	}

	cfg = config.Default()
	cfg.Hasher = "md5"
	if _, err := New(cfg); err == nil {
		t.Error("expected error for unknown hasher")
	}
}
