package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func mustClock(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		t.Fatalf("parse clock %q: %v", value, err)
	}
	return parsed
}

func TestNextRunLaterToday(t *testing.T) {
	s := NewScheduler(zap.NewNop(), nil, mustClock(t, "03:30"))

	now := time.Date(2024, 6, 10, 1, 0, 0, 0, time.UTC)
	next := s.nextRun(now)

	assert.Equal(t, time.Date(2024, 6, 10, 3, 30, 0, 0, time.UTC), next)
}

func TestNextRunRollsToTomorrow(t *testing.T) {
	s := NewScheduler(zap.NewNop(), nil, mustClock(t, "03:30"))

	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	next := s.nextRun(now)

	assert.Equal(t, time.Date(2024, 6, 11, 3, 30, 0, 0, time.UTC), next)
}

func TestNextRunExactBoundaryRolls(t *testing.T) {
	s := NewScheduler(zap.NewNop(), nil, mustClock(t, "03:30"))

	now := time.Date(2024, 6, 10, 3, 30, 0, 0, time.UTC)
	next := s.nextRun(now)

	// At exactly the scheduled minute the run has already fired; next is
	// tomorrow.
	assert.Equal(t, time.Date(2024, 6, 11, 3, 30, 0, 0, time.UTC), next)
}

func TestNextRunKeepsLocation(t *testing.T) {
	s := NewScheduler(zap.NewNop(), nil, mustClock(t, "23:45"))

	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2024, 6, 10, 23, 50, 0, 0, loc)
	next := s.nextRun(now)

	assert.Equal(t, loc, next.Location())
	assert.Equal(t, 11, next.Day())
}
