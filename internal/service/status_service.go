package service

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stillwatch/internal/domain/verify"
)

var (
	ErrNotFound = errors.New("not found")
)

// Event is one workflow event as delivered to presentation subscribers.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// StatusService consumes sequencer events and holds the externally
// queryable view of the workflow: current phase, last outcome, run
// counters. It also fans events out to presentation subscribers (SSE).
type StatusService struct {
	log   zerolog.Logger
	reset func()

	mu          sync.RWMutex
	runID       uuid.UUID
	phase       verify.Phase
	phaseName   string
	statusText  string
	updatedAt   time.Time
	lastOutcome *verify.RunOutcome
	runsTotal   int
	runsPassed  int

	subMu sync.Mutex
	subs  map[chan Event]struct{}
}

// NewStatusService wires the service to the sequencer's reset control.
func NewStatusService(reset func(), log zerolog.Logger) *StatusService {
	return &StatusService{
		log:       log.With().Str("component", "status_service").Logger(),
		reset:     reset,
		phaseName: "idle",
		subs:      make(map[chan Event]struct{}),
	}
}

// PhaseChanged implements the sequencer listener contract.
func (s *StatusService) PhaseChanged(ev verify.PhaseEvent) {
	s.mu.Lock()
	s.runID = ev.RunID
	s.phase = ev.Phase
	s.phaseName = ev.PhaseName
	s.statusText = ev.StatusText
	s.updatedAt = ev.At
	s.mu.Unlock()

	s.broadcast(Event{Type: "phase", Payload: ev})
}

func (s *StatusService) CaptureRecorded(ev verify.CaptureEvent) {
	plate := "none"
	if ev.Plate != nil {
		plate = *ev.Plate
	}
	s.log.Info().
		Str("run_id", ev.RunID.String()).
		Int("capture_index", ev.Index).
		Str("plate", plate).
		Msg("capture recorded")

	s.broadcast(Event{Type: "capture", Payload: ev})
}

func (s *StatusService) RunComplete(outcome verify.RunOutcome) {
	s.mu.Lock()
	o := outcome
	s.lastOutcome = &o
	s.runsTotal++
	if outcome.Passed {
		s.runsPassed++
	}
	s.mu.Unlock()

	s.broadcast(Event{Type: "outcome", Payload: outcome})
}

// StatusInfo is the snapshot served to the presentation layer.
type StatusInfo struct {
	RunID      *uuid.UUID `json:"run_id,omitempty"`
	Phase      string     `json:"phase"`
	StatusText string     `json:"status_text"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	RunsTotal  int        `json:"runs_total"`
	RunsPassed int        `json:"runs_passed"`
	RunsFailed int        `json:"runs_failed"`
}

func (s *StatusService) Status() StatusInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := StatusInfo{
		Phase:      s.phaseName,
		StatusText: s.statusText,
		RunsTotal:  s.runsTotal,
		RunsPassed: s.runsPassed,
		RunsFailed: s.runsTotal - s.runsPassed,
	}
	if s.runID != uuid.Nil {
		id := s.runID
		info.RunID = &id
	}
	if !s.updatedAt.IsZero() {
		at := s.updatedAt
		info.UpdatedAt = &at
	}
	return info
}

// LastOutcome returns the most recent completed run, or ErrNotFound when no
// run has completed since startup.
func (s *StatusService) LastOutcome() (*verify.RunOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastOutcome == nil {
		return nil, ErrNotFound
	}
	o := *s.lastOutcome
	return &o, nil
}

// Reset abandons the current run and restarts from the settle countdown.
func (s *StatusService) Reset() {
	s.log.Info().Msg("run reset requested")
	s.reset()
}

// Subscribe registers a presentation event stream. The returned cancel func
// must be called when the consumer goes away.
func (s *StatusService) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

// broadcast never blocks the workflow goroutine: slow subscribers lose
// events.
func (s *StatusService) broadcast(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
