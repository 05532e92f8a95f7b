package stability

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stillwatch/internal/domain/verify"
)

func newTestDetector(t *testing.T) (*Detector, *time.Time) {
	t.Helper()
	d := NewDetector(Config{DeltaThreshold: 0.5, StableSeconds: 5}, zerolog.Nop())
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return clock }
	return d, &clock
}

func stillSample(ts time.Time) verify.AccelerationSample {
	return verify.AccelerationSample{X: 0.1, Y: 9.8, Z: 0.1, Timestamp: ts}
}

func TestDetector_FirstSampleDoesNotTriggerInstability(t *testing.T) {
	d, clock := newTestDetector(t)

	// A large absolute reading on the very first sample has no previous
	// delta and must count as still.
	state := d.Update(verify.AccelerationSample{X: 12.0, Y: -7.5, Z: 3.0, Timestamp: *clock})
	assert.True(t, state.IsStationary)
	assert.Equal(t, 0, state.StableSeconds)
	assert.False(t, state.Ready)
}

func TestDetector_ReadyAfterFiveStableSeconds(t *testing.T) {
	d, clock := newTestDetector(t)

	d.Update(stillSample(*clock))
	readyTransitions := 0
	for i := 1; i <= 10; i++ {
		*clock = clock.Add(time.Second)
		prevReady := d.State().Ready
		state := d.Update(stillSample(*clock))
		if state.Ready && !prevReady {
			readyTransitions++
			assert.Equal(t, 5, state.StableSeconds, "readiness must fire on the 5th stable second, not earlier")
		}
	}

	assert.Equal(t, 1, readyTransitions, "readiness must latch exactly once")
	assert.True(t, d.State().Ready)
}

func TestDetector_NotReadyBeforeFifthSecond(t *testing.T) {
	d, clock := newTestDetector(t)

	d.Update(stillSample(*clock))
	for i := 1; i <= 4; i++ {
		*clock = clock.Add(time.Second)
		state := d.Update(stillSample(*clock))
		assert.False(t, state.Ready, "must not be ready after %d seconds", i)
	}
}

func TestDetector_MotionResetsCounter(t *testing.T) {
	d, clock := newTestDetector(t)

	d.Update(stillSample(*clock))
	for i := 1; i <= 4; i++ {
		*clock = clock.Add(time.Second)
		d.Update(stillSample(*clock))
	}
	require.Equal(t, 4, d.State().StableSeconds)

	// One sample at exactly the threshold delta breaks stationarity.
	moving := stillSample(*clock)
	moving.X += 0.5
	state := d.Update(moving)
	assert.False(t, state.IsStationary)
	assert.Equal(t, 0, state.StableSeconds)

	// The count restarts from zero, so readiness needs five fresh seconds.
	// Settle at the post-motion position so deltas are zero again.
	d.Update(moving)
	for i := 1; i <= 4; i++ {
		*clock = clock.Add(time.Second)
		state = d.Update(moving)
	}
	assert.False(t, state.Ready)
	*clock = clock.Add(time.Second)
	state = d.Update(moving)
	assert.True(t, state.Ready)
}

func TestDetector_SubThresholdJitterKeepsCounting(t *testing.T) {
	d, clock := newTestDetector(t)

	base := stillSample(*clock)
	d.Update(base)
	for i := 1; i <= 5; i++ {
		*clock = clock.Add(time.Second)
		jittered := base
		jittered.X += 0.4 // below the 0.5 threshold
		if i%2 == 0 {
			jittered = base
		}
		d.Update(jittered)
	}
	assert.True(t, d.State().Ready)
}

func TestDetector_ResetClearsLatch(t *testing.T) {
	d, clock := newTestDetector(t)

	d.Update(stillSample(*clock))
	for i := 1; i <= 5; i++ {
		*clock = clock.Add(time.Second)
		d.Update(stillSample(*clock))
	}
	require.True(t, d.State().Ready)

	d.Reset()
	assert.False(t, d.State().Ready)
	assert.False(t, d.State().IsStationary)

	// After reset the first sample is again treated as still.
	state := d.Update(verify.AccelerationSample{X: 50, Y: 50, Z: 50, Timestamp: *clock})
	assert.True(t, state.IsStationary)
}
