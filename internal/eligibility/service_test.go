package eligibility

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"claimcheck/internal/flightstatus"
	"claimcheck/internal/flightstatus/cache"
	"claimcheck/internal/warehouse"
	dErrors "claimcheck/pkg/domain-errors"
	"claimcheck/pkg/requestcontext"
)

type recordingStats struct {
	mu    sync.Mutex
	calls []statCall
}

type statCall struct {
	eligible bool
	reason   string
}

func (r *recordingStats) Record(eligible bool, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, statCall{eligible: eligible, reason: reason})
}

func (r *recordingStats) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type failingWarehouse struct{}

func (failingWarehouse) QueryPassengers(context.Context, warehouse.Criteria) ([]warehouse.PassengerRecord, error) {
	return nil, errors.New("connection refused")
}

type ResolverSuite struct {
	suite.Suite
	warehouse *warehouse.InMemoryStore
	cache     *cache.InMemoryCache
	stats     *recordingStats
	resolver  *Resolver
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.warehouse = warehouse.NewInMemoryStore()
	s.cache = cache.NewInMemoryCache()
	s.stats = &recordingStats{}

	var err error
	s.resolver, err = New(s.warehouse, s.cache, s.stats, DefaultPolicy(), WithQueryAttempts(1))
	s.Require().NoError(err)
}

func (s *ResolverSuite) TestNew() {
	s.Run("nil warehouse returns error", func() {
		_, err := New(nil, s.cache, s.stats, DefaultPolicy())
		s.Error(err)
	})
	s.Run("nil cache returns error", func() {
		_, err := New(s.warehouse, nil, s.stats, DefaultPolicy())
		s.Error(err)
	})
	s.Run("nil recorder returns error", func() {
		_, err := New(s.warehouse, s.cache, nil, DefaultPolicy())
		s.Error(err)
	})
}

func (s *ResolverSuite) TestEmptyCriteria() {
	_, err := s.resolver.Resolve(context.Background(), warehouse.Criteria{Name: "   "})
	s.Require().Error(err)
	s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
	s.Equal("At least one search parameter is required", dErrors.MessageOf(err))
	s.Zero(s.stats.len(), "rejected searches must not touch statistics")
}

func (s *ResolverSuite) TestWarehouseOnly() {
	s.warehouse.Add(
		warehouse.PassengerRecord{
			PassengerID: "P-100", Name: "Ada Castillo",
			FlightID: "fl-1", FlightNumber: "AC101",
			Status: "DELAYED", DelayMinutes: 150,
		},
		warehouse.PassengerRecord{
			PassengerID: "P-101", Name: "Benoit Castillon",
			FlightID: "fl-2", FlightNumber: "AC102",
			Status: "DELAYED", DelayMinutes: 90,
		},
	)

	s.Run("delay at or beyond threshold qualifies", func() {
		out, err := s.resolver.Resolve(context.Background(), warehouse.Criteria{PassengerID: "P-100"})
		s.Require().NoError(err)
		s.True(out.IsEligible)
		s.Equal(ReasonFlightDelayed, out.Reason)
		s.Equal(SourceWarehouseOnly, out.Source)
		s.InDelta(0.6, out.ConfidenceScore, 1e-9)
		s.Len(out.Matches, 1)
	})

	s.Run("delay below threshold does not", func() {
		out, err := s.resolver.Resolve(context.Background(), warehouse.Criteria{PassengerID: "P-101"})
		s.Require().NoError(err)
		s.False(out.IsEligible)
		s.Equal(ReasonDelayBelowThreshold, out.Reason)
	})

	s.Run("partial name match is case-insensitive", func() {
		out, err := s.resolver.Resolve(context.Background(), warehouse.Criteria{Name: "castill"})
		s.Require().NoError(err)
		s.Len(out.Matches, 2)
	})
}

func (s *ResolverSuite) TestStreamMerge() {
	s.warehouse.Add(warehouse.PassengerRecord{
		PassengerID: "P-200", Name: "Clara Obi",
		FlightID: "fl-9", FlightNumber: "XY900",
		Status: "ON_TIME",
	})

	s.Run("live cancellation overrides stale warehouse row", func() {
		err := s.cache.Upsert(context.Background(), flightstatus.Event{
			FlightID:   "XY900",
			Status:     flightstatus.StatusCancelled,
			ObservedAt: time.Now(),
		})
		s.Require().NoError(err)

		out, err := s.resolver.Resolve(context.Background(), warehouse.Criteria{PassengerID: "P-200"})
		s.Require().NoError(err)
		s.True(out.IsEligible)
		s.Equal(ReasonFlightCancelled, out.Reason)
		s.Equal(SourceStreamMerged, out.Source)
		s.InDelta(0.95, out.ConfidenceScore, 1e-9)
		s.Equal(flightstatus.StatusCancelled, out.Matches[0].Status)
	})

	s.Run("falls back to flight id key", func() {
		err := s.cache.Upsert(context.Background(), flightstatus.Event{
			FlightID:     "fl-9",
			Status:       flightstatus.StatusDelayed,
			DelayMinutes: 180,
			ObservedAt:   time.Now(),
		})
		s.Require().NoError(err)

		other, err := New(s.warehouse, cacheWithOnly(s.T(), "fl-9", flightstatus.Event{
			FlightID:     "fl-9",
			Status:       flightstatus.StatusDelayed,
			DelayMinutes: 180,
			ObservedAt:   time.Now(),
		}), s.stats, DefaultPolicy())
		s.Require().NoError(err)

		out, err := other.Resolve(context.Background(), warehouse.Criteria{PassengerID: "P-200"})
		s.Require().NoError(err)
		s.Equal(SourceStreamMerged, out.Source)
		s.Equal(ReasonFlightDelayed, out.Reason)
	})
}

func cacheWithOnly(t *testing.T, flightID string, ev flightstatus.Event) *cache.InMemoryCache {
	t.Helper()
	c := cache.NewInMemoryCache()
	ev.FlightID = flightID
	if err := c.Upsert(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	return c
}

func (s *ResolverSuite) TestNoMatchingRecords() {
	out, err := s.resolver.Resolve(context.Background(), warehouse.Criteria{Name: "nobody"})
	s.Require().NoError(err)
	s.False(out.IsEligible)
	s.Equal(ReasonNoMatchingRecords, out.Reason)
	s.Empty(out.Matches)

	s.Require().Equal(1, s.stats.len())
	s.Equal(statCall{eligible: false, reason: "no_matching_records"}, s.stats.calls[0])
}

func (s *ResolverSuite) TestConflictPenalty() {
	s.warehouse.Add(
		warehouse.PassengerRecord{
			PassengerID: "P-300", Name: "Dmitri Vale",
			FlightID: "fl-3", FlightNumber: "ZZ300",
			Status: "DELAYED", DelayMinutes: 200,
		},
		warehouse.PassengerRecord{
			PassengerID: "P-301", Name: "Dmitra Vale",
			FlightID: "fl-4", FlightNumber: "ZZ301",
			Status: "ON_TIME",
		},
	)

	out, err := s.resolver.Resolve(context.Background(), warehouse.Criteria{Name: "Vale"})
	s.Require().NoError(err)
	s.True(out.IsEligible, "any eligible match makes the outcome eligible")
	s.Len(out.Matches, 2)
	s.InDelta(0.6*0.8, out.ConfidenceScore, 1e-9, "disagreeing rows take the conflict penalty")
}

func (s *ResolverSuite) TestWarehouseDown() {
	resolver, err := New(failingWarehouse{}, s.cache, s.stats, DefaultPolicy(), WithQueryAttempts(1))
	s.Require().NoError(err)

	s.Run("no flight id means unavailable", func() {
		_, err := resolver.Resolve(context.Background(), warehouse.Criteria{Name: "Ada"})
		s.Require().Error(err)
		s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
		s.Zero(s.stats.len())
	})

	s.Run("flight id with live event degrades to stream-only", func() {
		s.Require().NoError(s.cache.Upsert(context.Background(), flightstatus.Event{
			FlightID:   "QQ700",
			Status:     flightstatus.StatusCancelled,
			ObservedAt: time.Now(),
		}))

		out, err := resolver.Resolve(context.Background(), warehouse.Criteria{FlightID: "QQ700"})
		s.Require().NoError(err)
		s.True(out.IsEligible)
		s.Equal(SourceStreamMerged, out.Source)
		s.InDelta(0.95*0.8, out.ConfidenceScore, 1e-9, "stream-only answers are penalized")
	})
}

func (s *ResolverSuite) TestCancelledContextRecordsNothing() {
	s.warehouse.Add(warehouse.PassengerRecord{
		PassengerID: "P-400", Name: "Elena Ruiz",
		FlightID: "fl-5", FlightNumber: "RR400",
		Status: "CANCELLED",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.resolver.Resolve(ctx, warehouse.Criteria{PassengerID: "P-400"})
	s.Require().Error(err)
	s.Zero(s.stats.len(), "cancelled resolutions must not skew statistics")
}

func (s *ResolverSuite) TestEvaluatedAtFromRequestTime() {
	s.warehouse.Add(warehouse.PassengerRecord{
		PassengerID: "P-500", Name: "Farid Noor",
		FlightID: "fl-6", FlightNumber: "NN500",
		Status: "ON_TIME",
	})

	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)

	out, err := s.resolver.Resolve(ctx, warehouse.Criteria{PassengerID: "P-500"})
	s.Require().NoError(err)
	s.Equal(at, out.EvaluatedAt)
	s.Equal(ReasonNoDisruption, out.Reason)
}

func (s *ResolverSuite) TestStatsRecordedExactlyOnce() {
	s.warehouse.Add(warehouse.PassengerRecord{
		PassengerID: "P-600", Name: "Greta Holm",
		FlightID: "fl-7", FlightNumber: "HH600",
		Status: "CANCELLED",
	})

	for i := 0; i < 3; i++ {
		_, err := s.resolver.Resolve(context.Background(), warehouse.Criteria{PassengerID: "P-600"})
		s.Require().NoError(err)
	}

	s.Require().Equal(3, s.stats.len())
	for _, call := range s.stats.calls {
		s.True(call.eligible)
		s.Equal("flight_cancelled", call.reason)
	}
}
