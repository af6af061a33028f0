// Package batch defines the batch ingestion lifecycle. A Record tracks one
// uploaded file from registration through asynchronous processing; its state
// only ever moves forward, which is what makes replayed or reordered bus
// events safe to apply.
package batch

import (
	"time"

	"github.com/google/uuid"
)

// State is a batch lifecycle state.
type State string

const (
	StateRegistered State = "REGISTERED"
	StateDispatched State = "DISPATCHED"
	StateProcessing State = "PROCESSING"
	StateCompleted  State = "COMPLETED"
	StateFailed     State = "FAILED"
)

// stateRanks totally orders the lifecycle. COMPLETED and FAILED share the top
// rank: both are terminal and neither may replace the other.
var stateRanks = map[State]int{
	StateRegistered: 0,
	StateDispatched: 1,
	StateProcessing: 2,
	StateCompleted:  3,
	StateFailed:     3,
}

// Rank returns the lifecycle position of s. Unknown states rank -1.
func (s State) Rank() int {
	if r, ok := stateRanks[s]; ok {
		return r
	}
	return -1
}

// Valid reports whether s is a known lifecycle state.
func (s State) Valid() bool {
	_, ok := stateRanks[s]
	return ok
}

// Terminal reports whether s accepts no further transitions.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CanAdvanceTo reports whether moving from s to target is forward-monotonic.
// Re-applying the current state, moving backward, or replacing one terminal
// state with the other are all rejected; callers treat those rejections as
// duplicate or reordered event delivery, not failures.
func (s State) CanAdvanceTo(target State) bool {
	if !s.Valid() || !target.Valid() {
		return false
	}
	return target.Rank() > s.Rank()
}

// Record is the ledger entry for one ingested batch. It is owned exclusively
// by the ledger; callers mutate it only through ledger transitions.
type Record struct {
	ID            uuid.UUID
	SourceFileRef string
	State         State

	RecordsProcessed int
	RecordsFailed    int
	// TotalRecords is 0 until the downstream processor declares the batch
	// size in a progress event.
	TotalRecords int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Counters carries progress numbers from a processing-status event.
type Counters struct {
	Processed int
	Failed    int
	// Total declares the batch size when known; 0 leaves the recorded total
	// unchanged.
	Total int
}

// ValidAgainst reports whether the counters respect the declared batch total.
// Processed plus failed may never exceed the total once a total is known.
func (c Counters) ValidAgainst(recordedTotal int) bool {
	if c.Processed < 0 || c.Failed < 0 || c.Total < 0 {
		return false
	}
	total := recordedTotal
	if c.Total > 0 {
		total = c.Total
	}
	if total > 0 && c.Processed+c.Failed > total {
		return false
	}
	return true
}
