package view

import "time"

// State is everything one refresh cycle produced. The refresher publishes a
// new State atomically; the web layer only ever reads whole published
// states, so a failed fetch can never tear a page in half.
type State struct {
	FetchedAt    time.Time         `json:"fetchedAt"`
	Tail         int               `json:"tail"`
	StatusFilter string            `json:"statusFilter,omitempty"`
	Snapshot     PortfolioSnapshot `json:"snapshot"`
	Allocations  []AllocationSlice `json:"allocations"`
	Orders       OrderBatch        `json:"orders"`
	Performance  PerformanceStats  `json:"performance"`
}
