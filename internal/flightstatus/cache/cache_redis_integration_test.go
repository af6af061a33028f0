//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimcheck/internal/flightstatus"
	"claimcheck/pkg/testutil/containers"
)

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	c := NewRedisCache(rc.Client)

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	t.Run("miss returns nil without error", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		ev, err := c.Get(ctx, "XY900")
		require.NoError(t, err)
		assert.Nil(t, ev)
	})

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		want := flightstatus.Event{
			FlightID:     "XY900",
			Status:       flightstatus.StatusDelayed,
			DelayMinutes: 150,
			ObservedAt:   base,
		}
		require.NoError(t, c.Upsert(ctx, want))

		got, err := c.Get(ctx, "XY900")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.DelayMinutes, got.DelayMinutes)
		assert.True(t, got.ObservedAt.Equal(base))
	})

	t.Run("newer observation wins", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		require.NoError(t, c.Upsert(ctx, flightstatus.Event{
			FlightID: "XY900", Status: flightstatus.StatusDelayed, DelayMinutes: 30, ObservedAt: base,
		}))
		require.NoError(t, c.Upsert(ctx, flightstatus.Event{
			FlightID: "XY900", Status: flightstatus.StatusCancelled, ObservedAt: base.Add(time.Minute),
		}))

		got, err := c.Get(ctx, "XY900")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, flightstatus.StatusCancelled, got.Status)
	})

	t.Run("older observation is a no-op", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		require.NoError(t, c.Upsert(ctx, flightstatus.Event{
			FlightID: "XY900", Status: flightstatus.StatusCancelled, ObservedAt: base.Add(time.Hour),
		}))
		require.NoError(t, c.Upsert(ctx, flightstatus.Event{
			FlightID: "XY900", Status: flightstatus.StatusOnTime, ObservedAt: base,
		}))

		got, err := c.Get(ctx, "XY900")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, flightstatus.StatusCancelled, got.Status, "stale write must not clobber the newer view")
	})

	t.Run("tie is a no-op", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		require.NoError(t, c.Upsert(ctx, flightstatus.Event{
			FlightID: "XY900", Status: flightstatus.StatusCancelled, ObservedAt: base,
		}))
		require.NoError(t, c.Upsert(ctx, flightstatus.Event{
			FlightID: "XY900", Status: flightstatus.StatusOnTime, ObservedAt: base,
		}))

		got, err := c.Get(ctx, "XY900")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, flightstatus.StatusCancelled, got.Status)
	})

	t.Run("flights are independent", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		require.NoError(t, c.Upsert(ctx, flightstatus.Event{
			FlightID: "XY900", Status: flightstatus.StatusCancelled, ObservedAt: base,
		}))
		require.NoError(t, c.Upsert(ctx, flightstatus.Event{
			FlightID: "ZZ100", Status: flightstatus.StatusOnTime, ObservedAt: base,
		}))

		a, err := c.Get(ctx, "XY900")
		require.NoError(t, err)
		b, err := c.Get(ctx, "ZZ100")
		require.NoError(t, err)
		assert.Equal(t, flightstatus.StatusCancelled, a.Status)
		assert.Equal(t, flightstatus.StatusOnTime, b.Status)
	})
}
