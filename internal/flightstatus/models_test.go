package flightstatus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
		ok   bool
	}{
		{"ON_TIME", StatusOnTime, true},
		{"on-time", StatusOnTime, true},
		{"OnTime", StatusOnTime, true},
		{"scheduled", StatusOnTime, true},
		{"DELAYED", StatusDelayed, true},
		{" delay ", StatusDelayed, true},
		{"CANCELLED", StatusCancelled, true},
		{"canceled", StatusCancelled, true},
		{"DIVERTED", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseStatus(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEventSupersedes(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	older := Event{FlightID: "AB123", Status: StatusOnTime, ObservedAt: base}
	newer := Event{FlightID: "AB123", Status: StatusCancelled, ObservedAt: base.Add(time.Minute)}

	assert.True(t, newer.Supersedes(&older))
	assert.False(t, older.Supersedes(&newer))
	assert.False(t, older.Supersedes(&older), "ties must not replace")
	assert.True(t, older.Supersedes(nil))
}
