// Package device defines the hardware collaborator contracts the detection
// workflow consumes: camera, text recognition, audio cues and the motion
// sensor stream. Implementations live alongside; tests substitute fakes.
package device

import (
	"context"
	"errors"

	"stillwatch/internal/domain/verify"
)

var (
	// ErrCapture marks camera device or I/O failures.
	ErrCapture = errors.New("capture failure")
	// ErrRecognition marks text-recognition engine failures.
	ErrRecognition = errors.New("recognition failure")
)

// Camera captures stills and short videos. Calls block until the device
// completes; no two operations run concurrently for the same run.
type Camera interface {
	CaptureStill(ctx context.Context) ([]byte, error)
	StartVideo(ctx context.Context) error
	StopVideo(ctx context.Context) ([]byte, error)
}

// TextLine is one recognized line within a block.
type TextLine struct {
	Text string
}

// TextBlock is one recognized region of text.
type TextBlock struct {
	Text  string
	Lines []TextLine
}

// RecognitionResult is the recognize() output shape: the whole-text blob
// plus per-block and per-line breakdown.
type RecognitionResult struct {
	WholeText string
	Blocks    []TextBlock
}

// Recognizer turns image bytes into recognized text.
type Recognizer interface {
	Recognize(ctx context.Context, imageBytes []byte) (*RecognitionResult, error)
}

// AudioPlayer plays tone and speech cues. Both calls are awaited to
// completion; failures are non-fatal to the workflow.
type AudioPlayer interface {
	PlayTone(ctx context.Context, id string) error
	Speak(ctx context.Context, text string) error
}

// MotionSource is a push stream of acceleration samples. Subscribe returns
// the sample channel and an unsubscribe func; the channel is closed when the
// context ends or unsubscribe is called. No back-pressure: the source drops
// samples a slow consumer has not drained.
type MotionSource interface {
	Subscribe(ctx context.Context) (<-chan verify.AccelerationSample, func(), error)
}
