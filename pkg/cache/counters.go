package cache

import "sync/atomic"

// Counters tracks ingestion-boundary outcomes. Decode failures drop the
// offending update; stale skips mean a simulation was abandoned because the
// aggregates lagged the pool header.
type Counters struct {
	DecodeErrors    atomic.Uint64
	StaleSkips      atomic.Uint64
	InvariantAborts atomic.Uint64
	DroppedUpdates  atomic.Uint64
}
