package seeder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProducesRequestedCount(t *testing.T) {
	gen := newGenerator(42, 5)
	events := gen.generate(100, time.Now().UTC(), time.Hour)

	require.Len(t, events, 100)
	for _, evt := range events {
		assert.NotEmpty(t, evt.EventID)
		assert.NotEmpty(t, evt.EventType)
		assert.NotEmpty(t, evt.SessionID)
		assert.NotEmpty(t, evt.PageURL)
	}
}

func TestGenerateUniqueEventIDs(t *testing.T) {
	gen := newGenerator(42, 5)
	events := gen.generate(200, time.Now().UTC(), time.Hour)

	seen := make(map[string]bool, len(events))
	for _, evt := range events {
		assert.False(t, seen[evt.EventID], "event ID %s generated twice", evt.EventID)
		seen[evt.EventID] = true
	}
}

func TestSessionsStartWithPageview(t *testing.T) {
	gen := newGenerator(7, 3)
	events := gen.generate(50, time.Now().UTC(), time.Hour)

	first := make(map[string]string)
	for _, evt := range events {
		if _, ok := first[evt.SessionID]; !ok {
			first[evt.SessionID] = evt.EventType
		}
	}

	require.NotEmpty(t, first)
	for sessionID, eventType := range first {
		assert.Equal(t, "pageview", eventType, "session %s should open with a pageview", sessionID)
	}
}

func TestTimestampsStayInsideSpread(t *testing.T) {
	now := time.Now().UTC()
	spread := 2 * time.Hour

	gen := newGenerator(1, 4)
	events := gen.generate(100, now, spread)

	floor := now.Add(-spread - time.Second)
	ceil := now.Add(time.Second)
	for _, evt := range events {
		ts, err := time.Parse(time.RFC3339, evt.OccurredAt)
		require.NoError(t, err)
		assert.True(t, ts.After(floor), "timestamp %s before window start", ts)
		assert.True(t, ts.Before(ceil), "timestamp %s after window end", ts)
	}
}

func TestDuplicateSomeReusesEventIDs(t *testing.T) {
	gen := newGenerator(9, 2)
	events := gen.generate(100, time.Now().UTC(), time.Hour)

	withDupes := gen.duplicateSome(events, 20)
	require.Len(t, withDupes, 120)

	ids := make(map[string]int)
	for _, evt := range withDupes {
		ids[evt.EventID]++
	}
	assert.Len(t, ids, 100, "duplicates should reuse existing event IDs")
}

func TestDuplicateSomeDisabled(t *testing.T) {
	gen := newGenerator(9, 2)
	events := gen.generate(10, time.Now().UTC(), time.Hour)

	assert.Len(t, gen.duplicateSome(events, 0), 10)
	assert.Len(t, gen.duplicateSome(events, -5), 10)
}

func TestDeterministicWithSeed(t *testing.T) {
	a := newGenerator(99, 3).generate(20, time.Unix(1700000000, 0).UTC(), time.Hour)
	b := newGenerator(99, 3).generate(20, time.Unix(1700000000, 0).UTC(), time.Hour)

	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].EventID, b[i].EventID)
		assert.Equal(t, a[i].EventType, b[i].EventType)
		assert.Equal(t, a[i].SessionID, b[i].SessionID)
	}
}
