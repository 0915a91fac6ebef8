package schemas

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSessionSummary(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	results := []HealingResult{
		{TestName: "a", Outcome: OutcomeVerified, Success: true},
		{TestName: "b", Outcome: OutcomeSkipped},
		{TestName: "c", Outcome: OutcomeRolledBack},
		{TestName: "d", Outcome: OutcomeVerified, Success: true},
	}

	s := NewSessionSummary("session-1", start, start.Add(time.Minute), results)

	assert.Equal(t, "session-1", s.SessionID)
	assert.Equal(t, 2, s.Healed())
	assert.Equal(t, 1, s.Counts[OutcomeSkipped])
	assert.Equal(t, 1, s.Counts[OutcomeRolledBack])
	assert.Zero(t, s.Counts[OutcomeValidationRejected])
	assert.Len(t, s.Results, 4)
}

func TestNewSessionSummaryEmpty(t *testing.T) {
	s := NewSessionSummary("empty", time.Time{}, time.Time{}, nil)
	assert.Zero(t, s.Healed())
	assert.NotNil(t, s.Counts)
}
