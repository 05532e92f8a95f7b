// Package stability decides whether the device is currently stationary by
// watching per-axis deltas between consecutive acceleration samples.
package stability

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"stillwatch/internal/domain/verify"
)

// Config carries the stillness policy. DeltaThreshold is in acceleration
// units; StableSeconds is how long motion must stay below it before the
// detector declares readiness.
type Config struct {
	DeltaThreshold float64
	StableSeconds  int
}

// Detector consumes a live acceleration stream and reports stationarity.
// It keeps only the previous sample; the stable-seconds counter ticks on
// wall clock while the stationary flag holds, not on sample arrival rate.
//
// Not safe for concurrent use: the workflow feeds it from a single
// goroutine.
type Detector struct {
	cfg Config
	log zerolog.Logger
	now func() time.Time

	hasPrev         bool
	prev            verify.AccelerationSample
	stationarySince time.Time
	state           verify.StabilityState
}

func NewDetector(cfg Config, log zerolog.Logger) *Detector {
	return &Detector{
		cfg: cfg,
		log: log.With().Str("component", "stability").Logger(),
		now: time.Now,
	}
}

// Update feeds one sample and returns the resulting state. The first sample
// after construction or Reset has no valid previous delta and is treated as
// still. Readiness latches on the transition and stays set until Reset.
func (d *Detector) Update(sample verify.AccelerationSample) verify.StabilityState {
	still := true
	if d.hasPrev {
		dx := math.Abs(sample.X - d.prev.X)
		dy := math.Abs(sample.Y - d.prev.Y)
		dz := math.Abs(sample.Z - d.prev.Z)
		still = dx < d.cfg.DeltaThreshold && dy < d.cfg.DeltaThreshold && dz < d.cfg.DeltaThreshold
	}
	d.prev = sample
	d.hasPrev = true

	if !still {
		if d.state.IsStationary {
			d.state.IsStationary = false
			d.state.StableSeconds = 0
			d.stationarySince = time.Time{}
			d.log.Debug().Msg("motion detected, stability counter reset")
		}
		return d.state
	}

	if !d.state.IsStationary {
		d.state.IsStationary = true
		d.state.StableSeconds = 0
		d.stationarySince = d.now()
		return d.state
	}

	d.state.StableSeconds = int(d.now().Sub(d.stationarySince) / time.Second)
	if !d.state.Ready && d.state.StableSeconds >= d.cfg.StableSeconds {
		d.state.Ready = true
		d.log.Info().
			Int("stable_seconds", d.state.StableSeconds).
			Msg("device stationary, readiness declared")
	}
	return d.state
}

// State returns the last computed state without consuming a sample.
func (d *Detector) State() verify.StabilityState {
	return d.state
}

// Reset returns the detector to its just-constructed state. Called at the
// start of every run so readiness can fire again.
func (d *Detector) Reset() {
	d.hasPrev = false
	d.prev = verify.AccelerationSample{}
	d.stationarySince = time.Time{}
	d.state = verify.StabilityState{}
}
