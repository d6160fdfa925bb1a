package sched

import (
	"fmt"
	"log"
	"sync"
	"time"

	"chsched/internal/dest"
)

// Schedule selects a destination for a flow by consistent hash of its
// source address. The primary lookup key is "<srcAddr>:0"; when the
// selected destination is unavailable, overloaded, or weightless, the
// secondary index is incremented and the lookup retried, probing an
// alternate ring position for the same client. Attempts are bounded by
// the current virtual-node count, so a ring with no acceptable
// destination exhausts quickly instead of looping.
//
// The second return is false when no acceptable destination exists; the
// caller must treat that as "drop or reject this flow".
func (b *ServiceBinding) Schedule(srcAddr string) (*dest.Destination, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.done || b.count == 0 {
		return nil, false
	}

	for i := 0; i < b.count; i++ {
		d, ok := b.ring.Lookup(fmt.Sprintf("%s:%d", srcAddr, i))
		if !ok {
			break
		}
		if d.Usable() {
			return d, true
		}
	}

	b.noDest.printf("sched: no destination available for %s", srcAddr)
	return nil, false
}

// throttledLog emits at most one line per interval. Scheduling failures
// are a normal negative result; the log line exists for operators, and
// unthrottled it would fire once per packet during an outage.
type throttledLog struct {
	mu   sync.Mutex
	last time.Time
}

const throttleInterval = time.Second

func (l *throttledLog) printf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.last) < throttleInterval {
		return
	}
	l.last = now
	log.Printf(format, args...)
}
