package application

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualClockFiresInDueOrder(t *testing.T) {
	t.Parallel()

	clock := NewManualClock(t0)
	var fired []string
	clock.AfterFunc(3*time.Second, func() { fired = append(fired, "c") })
	clock.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	clock.AfterFunc(time.Second, func() { fired = append(fired, "b") })

	clock.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, t0.Add(2*time.Second), clock.Now())

	clock.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Zero(t, clock.Pending())
}

func TestManualClockCallbackSeesDueTimeAndMaySchedule(t *testing.T) {
	t.Parallel()

	clock := NewManualClock(t0)
	var seen []time.Time
	clock.AfterFunc(time.Second, func() {
		seen = append(seen, clock.Now())
		clock.AfterFunc(time.Second, func() { seen = append(seen, clock.Now()) })
	})

	clock.Advance(5 * time.Second)
	assert.Equal(t, []time.Time{t0.Add(time.Second), t0.Add(2 * time.Second)}, seen)
}

func TestManualClockEveryAndStop(t *testing.T) {
	t.Parallel()

	clock := NewManualClock(t0)
	var ticks int
	timer := clock.Every(time.Second, func() { ticks++ })

	clock.Advance(3500 * time.Millisecond)
	assert.Equal(t, 3, ticks)

	require.True(t, timer.Stop())
	require.False(t, timer.Stop())
	clock.Advance(5 * time.Second)
	assert.Equal(t, 3, ticks)
}

func TestTimerGroupStopsEverything(t *testing.T) {
	t.Parallel()

	clock := NewManualClock(t0)
	group := NewTimerGroup(clock)
	var fired atomic.Int32
	group.AfterFunc(time.Second, func() { fired.Add(1) })
	group.AfterFunc(2*time.Second, func() { fired.Add(1) })
	group.Every(time.Second, func() { fired.Add(1) })
	assert.Equal(t, 3, group.Len())

	assert.Equal(t, 3, group.Stop())
	assert.True(t, group.Stopped())
	clock.Advance(10 * time.Second)
	assert.Zero(t, fired.Load())

	group.AfterFunc(time.Second, func() { fired.Add(1) })
	assert.Zero(t, clock.Pending())
	clock.Advance(10 * time.Second)
	assert.Zero(t, fired.Load())
}

func TestSystemSchedulerEveryStops(t *testing.T) {
	t.Parallel()

	var ticks atomic.Int32
	timer := SystemScheduler{}.Every(5*time.Millisecond, func() { ticks.Add(1) })
	require.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, time.Millisecond)

	require.True(t, timer.Stop())
	require.False(t, timer.Stop())
}
