// Package sequencer drives one verification run end to end: settle
// countdown, stationarity wait, the three timed captures and the final
// verdict. It owns every timer and subscription of a run and releases them
// on every exit path.
package sequencer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stillwatch/internal/device"
	"stillwatch/internal/domain/verify"
	"stillwatch/internal/evaluator"
	"stillwatch/internal/extractor"
	"stillwatch/internal/stability"
)

// Config carries the workflow timing policy. TickInterval is one countdown
// tick, one second in production; tests shorten it.
type Config struct {
	SettleSeconds int
	ReadyDelay    time.Duration
	CaptureDwell  time.Duration
	VideoDuration time.Duration
	ResultSeconds int
	CuePause      time.Duration
	TickInterval  time.Duration
	AlarmText     string
	PassedText    string
	FailedText    string
}

// Listener observes workflow events. Calls arrive serialized on the
// workflow goroutine; implementations must not block.
type Listener interface {
	PhaseChanged(verify.PhaseEvent)
	CaptureRecorded(verify.CaptureEvent)
	RunComplete(verify.RunOutcome)
}

// Sequencer is the top-level state machine. One logical thread of control:
// it issues one long-running collaborator operation at a time and suspends
// until completion before advancing phase.
type Sequencer struct {
	cfg       Config
	camera    device.Camera
	motion    device.MotionSource
	audio     device.AudioPlayer
	extractor *extractor.Extractor
	detector  *stability.Detector
	eval      *evaluator.Evaluator
	log       zerolog.Logger

	listeners []Listener
	resetCh   chan struct{}

	runID   uuid.UUID
	records []verify.CaptureRecord
}

func New(
	cfg Config,
	camera device.Camera,
	motion device.MotionSource,
	audio device.AudioPlayer,
	ex *extractor.Extractor,
	detector *stability.Detector,
	eval *evaluator.Evaluator,
	log zerolog.Logger,
) *Sequencer {
	return &Sequencer{
		cfg:       cfg,
		camera:    camera,
		motion:    motion,
		audio:     audio,
		extractor: ex,
		detector:  detector,
		eval:      eval,
		log:       log.With().Str("component", "sequencer").Logger(),
		resetCh:   make(chan struct{}, 1),
	}
}

// AddListener registers an event consumer. Not safe to call once Run has
// started.
func (s *Sequencer) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

// RequestReset abandons the current run at the next cancellation point and
// restarts from the settle countdown. Safe to call from any goroutine.
func (s *Sequencer) RequestReset() {
	select {
	case s.resetCh <- struct{}{}:
	default:
	}
}

// Run executes verification runs back to back until ctx ends. A capture
// failure or an external reset abandons the current run and starts the next
// one from the settle countdown.
func (s *Sequencer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.runOnce(ctx)
		switch {
		case err == nil:
			// Run completed; start the next one.
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			s.log.Warn().Err(err).Str("run_id", s.runID.String()).Msg("run abandoned, restarting")
		}
	}
}

// runOnce drives a single run. All timers and the motion subscription are
// scoped to runCtx and die with it; records are cleared before the run
// starts instead of surviving a failed one.
func (s *Sequencer) runOnce(ctx context.Context) error {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	// An external reset cancels the run context; the parent staying alive is
	// what distinguishes a reset from shutdown.
	go func() {
		select {
		case <-s.resetCh:
			cancelRun()
		case <-runCtx.Done():
		}
	}()

	s.runID = uuid.New()
	s.records = s.records[:0]
	s.detector.Reset()
	s.log.Info().Str("run_id", s.runID.String()).Msg("run started")

	if err := s.settleCountdown(runCtx); err != nil {
		return err
	}
	if err := s.awaitStationary(runCtx); err != nil {
		return err
	}
	if err := s.readyDelay(runCtx); err != nil {
		return err
	}

	plate1, err := s.captureStill(runCtx, verify.PhaseCapture1, 1)
	if err != nil {
		return s.abandon(err)
	}
	if err := s.sleep(runCtx, s.cfg.CaptureDwell); err != nil {
		return err
	}
	// Alarm cue: speech first, tone second, with a fixed pause between.
	s.speak(runCtx, s.cfg.AlarmText)
	if err := s.sleep(runCtx, s.cfg.CuePause); err != nil {
		return err
	}
	s.playTone(runCtx, "alarm")

	plate2, err := s.captureStill(runCtx, verify.PhaseCapture2, 2)
	if err != nil {
		return s.abandon(err)
	}
	if err := s.sleep(runCtx, s.cfg.CaptureDwell); err != nil {
		return err
	}
	s.playTone(runCtx, "capture")

	plate3, err := s.captureVideoFrame(runCtx)
	if err != nil {
		return s.abandon(err)
	}

	return s.result(runCtx, plate1, plate2, plate3)
}

func (s *Sequencer) settleCountdown(ctx context.Context) error {
	for remaining := s.cfg.SettleSeconds; remaining > 0; remaining-- {
		s.emitPhase(verify.PhaseSettleCountdown, fmt.Sprintf("settling, %d s remaining", remaining))
		if err := s.sleep(ctx, s.cfg.TickInterval); err != nil {
			return err
		}
	}
	return nil
}

// awaitStationary feeds the stability detector from the motion stream until
// readiness latches. The subscription is released the instant readiness is
// declared or the run dies, so no stray sample touches the next run's state.
func (s *Sequencer) awaitStationary(ctx context.Context) error {
	samples, stop, err := s.motion.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe motion stream: %w", err)
	}
	defer stop()

	s.emitPhase(verify.PhaseAwaitingStationary, "waiting for vehicle to be stationary")
	lastStatus := ""
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample, ok := <-samples:
			if !ok {
				return fmt.Errorf("motion stream closed")
			}
			state := s.detector.Update(sample)
			if state.Ready {
				stop()
				return nil
			}
			status := "vehicle moving"
			if state.IsStationary {
				status = fmt.Sprintf("vehicle stationary, %d s", state.StableSeconds)
			}
			if status != lastStatus {
				lastStatus = status
				s.emitPhase(verify.PhaseAwaitingStationary, status)
			}
		}
	}
}

func (s *Sequencer) readyDelay(ctx context.Context) error {
	s.emitPhase(verify.PhaseReady, "vehicle stationary, preparing capture")
	s.playTone(ctx, "ready")
	return s.sleep(ctx, s.cfg.ReadyDelay)
}

// captureStill runs one still-capture step: capture, extract, record.
func (s *Sequencer) captureStill(ctx context.Context, phase verify.Phase, index int) (*string, error) {
	s.emitPhase(phase, fmt.Sprintf("capturing photo %d", index))

	img, err := s.camera.CaptureStill(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture %d: %w", index, err)
	}
	return s.record(ctx, phase.String(), index, img), nil
}

// captureVideoFrame records the short video, then immediately captures and
// extracts one more still frame as the third record.
func (s *Sequencer) captureVideoFrame(ctx context.Context) (*string, error) {
	s.emitPhase(verify.PhaseCaptureVideo, "recording video")

	if err := s.camera.StartVideo(ctx); err != nil {
		return nil, fmt.Errorf("start video: %w", err)
	}
	if err := s.sleep(ctx, s.cfg.VideoDuration); err != nil {
		_, _ = s.camera.StopVideo(context.WithoutCancel(ctx))
		return nil, err
	}
	video, err := s.camera.StopVideo(ctx)
	if err != nil {
		return nil, fmt.Errorf("stop video: %w", err)
	}
	s.log.Debug().Int("video_bytes", len(video)).Str("run_id", s.runID.String()).Msg("video recorded")

	img, err := s.camera.CaptureStill(ctx)
	if err != nil {
		return nil, fmt.Errorf("video frame capture: %w", err)
	}
	return s.record(ctx, verify.PhaseCaptureVideo.String(), 3, img), nil
}

// record extracts the plate from a captured image and appends the capture
// record. An absent plate is a valid outcome here, not an error.
func (s *Sequencer) record(ctx context.Context, label string, index int, img []byte) *string {
	var plate *string
	if text, ok := s.extractor.Extract(ctx, img); ok {
		plate = &text
	}
	s.records = append(s.records, verify.CaptureRecord{
		PhaseLabel: label,
		ImageBytes: img,
		Plate:      plate,
		CapturedAt: time.Now(),
	})
	s.emitCapture(index, plate)
	return plate
}

func (s *Sequencer) result(ctx context.Context, plate1, plate2, plate3 *string) error {
	outcome := s.eval.Evaluate(s.runID, plate1, plate2, plate3)

	status := s.cfg.FailedText
	if outcome.Passed {
		status = s.cfg.PassedText
	}
	s.emitPhase(verify.PhaseResult, status)
	s.speak(ctx, status)
	for _, l := range s.listeners {
		l.RunComplete(outcome)
	}

	for remaining := s.cfg.ResultSeconds; remaining > 0; remaining-- {
		s.emitPhase(verify.PhaseResult, fmt.Sprintf("%s, resetting in %d s", status, remaining))
		if err := s.sleep(ctx, s.cfg.TickInterval); err != nil {
			return err
		}
	}
	return nil
}

// abandon clears the run's records after a hard capture failure. No partial
// run state survives; the caller restarts from the settle countdown.
func (s *Sequencer) abandon(err error) error {
	s.records = s.records[:0]
	return err
}

func (s *Sequencer) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// playTone and speak swallow audio failures: cues are best-effort and must
// never block phase progression beyond their own playback time.
func (s *Sequencer) playTone(ctx context.Context, id string) {
	if err := s.audio.PlayTone(ctx, id); err != nil && ctx.Err() == nil {
		s.log.Warn().Err(err).Str("tone", id).Msg("tone playback failed")
	}
}

func (s *Sequencer) speak(ctx context.Context, text string) {
	if err := s.audio.Speak(ctx, text); err != nil && ctx.Err() == nil {
		s.log.Warn().Err(err).Msg("speech playback failed")
	}
}

func (s *Sequencer) emitPhase(phase verify.Phase, status string) {
	ev := verify.PhaseEvent{
		RunID:      s.runID,
		Phase:      phase,
		PhaseName:  phase.String(),
		StatusText: status,
		At:         time.Now(),
	}
	for _, l := range s.listeners {
		l.PhaseChanged(ev)
	}
}

func (s *Sequencer) emitCapture(index int, plate *string) {
	ev := verify.CaptureEvent{
		RunID: s.runID,
		Index: index,
		Plate: plate,
		At:    time.Now(),
	}
	for _, l := range s.listeners {
		l.CaptureRecorded(ev)
	}
}
