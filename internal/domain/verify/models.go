package verify

import (
	"time"

	"github.com/google/uuid"
)

// AccelerationSample is one reading from the motion sensor. Samples are
// transient: the stability detector keeps only the previous one to compute
// per-axis deltas.
type AccelerationSample struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Timestamp time.Time `json:"ts"`
}

// StabilityState is the detector's view of the device after a sample.
// Ready latches true once the device has been continuously stationary for
// the required number of seconds and stays true until the detector is reset.
type StabilityState struct {
	IsStationary  bool `json:"is_stationary"`
	StableSeconds int  `json:"stable_seconds"`
	Ready         bool `json:"ready"`
}

// Phase is the single source of truth for what the workflow is doing now.
type Phase int

const (
	PhaseSettleCountdown Phase = iota
	PhaseAwaitingStationary
	PhaseReady
	PhaseCapture1
	PhaseCapture2
	PhaseCaptureVideo
	PhaseResult
)

var phaseNames = map[Phase]string{
	PhaseSettleCountdown:    "settle_countdown",
	PhaseAwaitingStationary: "awaiting_stationary",
	PhaseReady:              "ready",
	PhaseCapture1:           "capture_1",
	PhaseCapture2:           "capture_2",
	PhaseCaptureVideo:       "capture_video",
	PhaseResult:             "result",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// CaptureRecord holds the result of one capture step. Immutable once the
// extraction step completes; exactly three exist per run.
type CaptureRecord struct {
	PhaseLabel string    `json:"phase_label"`
	ImageBytes []byte    `json:"-"`
	Plate      *string   `json:"plate,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// RunOutcome is the terminal value of a run, produced by the evaluator.
type RunOutcome struct {
	RunID         uuid.UUID `json:"run_id"`
	Passed        bool      `json:"passed"`
	Plate1        *string   `json:"plate_1,omitempty"`
	Plate2        *string   `json:"plate_2,omitempty"`
	Plate3        *string   `json:"plate_3,omitempty"`
	DetectedPlate *string   `json:"detected_plate,omitempty"`
	CompletedAt   time.Time `json:"completed_at"`
}

// PhaseEvent is emitted on every phase or status transition.
type PhaseEvent struct {
	RunID      uuid.UUID `json:"run_id"`
	Phase      Phase     `json:"-"`
	PhaseName  string    `json:"phase"`
	StatusText string    `json:"status"`
	At         time.Time `json:"at"`
}

// CaptureEvent is emitted after each of the three extraction attempts.
type CaptureEvent struct {
	RunID uuid.UUID `json:"run_id"`
	Index int       `json:"index"`
	Plate *string   `json:"plate,omitempty"`
	At    time.Time `json:"at"`
}
