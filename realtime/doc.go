// Package realtime keeps the current derived feed entities in
// memory: trip updates keyed by trip id and vehicle positions keyed
// by vehicle id. Entries are immutable once inserted and evicted by
// a periodic staleness sweep.
package realtime
