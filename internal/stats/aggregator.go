// Package stats keeps running totals of eligibility verdicts. Counters only
// ever grow; a restart resets them, which is acceptable for an operational
// dashboard view. Durable analytics live in the warehouse, not here.
package stats

import (
	"sync"
	"time"

	"claimcheck/internal/stats/metrics"
)

// Aggregator accumulates verdict counts in process and mirrors every increment
// to Prometheus. Safe for concurrent use.
type Aggregator struct {
	mu          sync.RWMutex
	total       uint64
	eligible    uint64
	ineligible  uint64
	byReason    map[string]uint64
	lastUpdated time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{byReason: make(map[string]uint64)}
}

// Record counts one finalized verdict.
func (a *Aggregator) Record(eligible bool, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	if eligible {
		a.eligible++
	} else {
		a.ineligible++
	}
	if reason != "" {
		a.byReason[reason]++
	}
	a.lastUpdated = time.Now()

	metrics.RecordVerdict(eligible, reason)
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	TotalSearches    uint64
	EligibleClaims   uint64
	IneligibleClaims uint64
	ApprovalRate     float64
	ByReason         map[string]uint64
	LastUpdated      time.Time
}

// Snapshot returns a consistent copy of the current totals. ApprovalRate is
// 0.0 when nothing has been recorded yet, never NaN.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	byReason := make(map[string]uint64, len(a.byReason))
	for reason, n := range a.byReason {
		byReason[reason] = n
	}

	snap := Snapshot{
		TotalSearches:    a.total,
		EligibleClaims:   a.eligible,
		IneligibleClaims: a.ineligible,
		ByReason:         byReason,
		LastUpdated:      a.lastUpdated,
	}
	if a.total > 0 {
		snap.ApprovalRate = float64(a.eligible) / float64(a.total)
	}
	return snap
}
