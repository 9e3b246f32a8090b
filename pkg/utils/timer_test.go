package utils

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTimer() (*Timer, *MockClock) {
	clock := NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewTimer("info", WithClock(clock)), clock
}

func TestTimerPhases(t *testing.T) {
	timer, clock := newTestTimer()

	pt := timer.Start("load schema")
	clock.Advance(20 * time.Millisecond)
	assert.Equal(t, 20*time.Millisecond, pt.Stop())

	pt = timer.Start("scan")
	clock.Advance(time.Second)
	pt.Stop()

	phases := timer.Phases()
	require.Len(t, phases, 2)
	assert.Equal(t, "load schema", phases[0].Name)
	assert.Equal(t, "scan", phases[1].Name)
	assert.Equal(t, time.Second, timer.Duration("scan"))
	assert.Equal(t, 1020*time.Millisecond, timer.Total())
}

func TestTimerStopIdempotent(t *testing.T) {
	timer, clock := newTestTimer()

	pt := timer.Start("merge")
	clock.Advance(5 * time.Millisecond)
	first := pt.Stop()
	clock.Advance(5 * time.Millisecond)

	assert.Equal(t, first, pt.Stop())
}

func TestTimerRestartReplaces(t *testing.T) {
	timer, clock := newTestTimer()

	timer.Start("scan").Stop()
	pt := timer.Start("scan")
	clock.Advance(time.Millisecond)
	pt.Stop()

	require.Len(t, timer.Phases(), 1)
	assert.Equal(t, time.Millisecond, timer.Duration("scan"))
}

func TestTimerTime(t *testing.T) {
	timer, _ := newTestTimer()
	boom := errors.New("boom")

	assert.NoError(t, timer.Time("ok", func() error { return nil }))
	assert.ErrorIs(t, timer.Time("fail", func() error { return boom }), boom)
	assert.Len(t, timer.Phases(), 2)
}

func TestTimerSummaryAndMap(t *testing.T) {
	buf := &bytes.Buffer{}
	clock := NewMockClock(time.Time{})
	timer := NewTimer("grep", WithClock(clock), WithLogger(NewDefaultLogger(LevelDebug, buf)))

	pt := timer.Start("scan")
	clock.Advance(3 * time.Millisecond)
	pt.Stop()

	summary := timer.Summary()
	assert.Contains(t, summary, "=== grep timing ===")
	assert.Contains(t, summary, "1. scan: 3ms")

	timer.LogSummary()
	assert.Contains(t, buf.String(), "1. scan: 3ms")

	m := timer.ToMap()
	assert.Equal(t, "grep", m["name"])
	assert.Equal(t, int64(3), m["total_ms"])
}

func TestTimerUnknownPhase(t *testing.T) {
	timer, _ := newTestTimer()
	assert.Zero(t, timer.Duration("missing"))
}
