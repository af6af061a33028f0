package cache

import (
	"context"
	"sync"

	"claimcheck/internal/flightstatus"
)

// InMemoryCache is the single-instance live cache. Read-mostly: resolver reads
// never block behind the background subscriber's writes for long, and a write
// replaces the per-flight entry rather than mutating it in place.
type InMemoryCache struct {
	mu       sync.RWMutex
	byFlight map[string]flightstatus.Event
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{byFlight: make(map[string]flightstatus.Event)}
}

// Upsert installs the event unless a newer observation is already cached.
func (c *InMemoryCache) Upsert(_ context.Context, ev flightstatus.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.byFlight[ev.FlightID]; ok && !ev.Supersedes(&prev) {
		return nil
	}
	c.byFlight[ev.FlightID] = ev
	return nil
}

// Get returns the latest observation for a flight, or nil when none is cached.
func (c *InMemoryCache) Get(_ context.Context, flightID string) (*flightstatus.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ev, ok := c.byFlight[flightID]
	if !ok {
		return nil, nil
	}
	return &ev, nil
}
