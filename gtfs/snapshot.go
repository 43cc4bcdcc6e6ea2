package gtfs

import "sync/atomic"

// Snapshot pairs a schedule with the operating set of one service
// date. Consumers read a consistent pair even while a refresh swaps
// in a new one.
type Snapshot struct {
	Schedule  *Schedule
	Operating *OperatingSet
}

// SnapshotHolder publishes the current snapshot to readers.
type SnapshotHolder struct {
	p atomic.Pointer[Snapshot]
}

// Store swaps in a new snapshot.
func (h *SnapshotHolder) Store(s *Snapshot) { h.p.Store(s) }

// Load returns the current snapshot, nil before the first store.
func (h *SnapshotHolder) Load() *Snapshot { return h.p.Load() }
