package device

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"
)

// ExecAudioConfig configures the external audio players. ToneCommand is run
// with the tone file path appended; SpeakCommand with the text appended.
type ExecAudioConfig struct {
	ToneCommand  []string
	ToneDir      string
	SpeakCommand []string
}

// ExecAudio implements AudioPlayer by shelling out to configured players
// (aplay for tones, espeak for speech). Both calls block until the player
// exits, preserving the workflow's cue ordering.
type ExecAudio struct {
	cfg ExecAudioConfig
	log zerolog.Logger
}

func NewExecAudio(cfg ExecAudioConfig, log zerolog.Logger) *ExecAudio {
	return &ExecAudio{
		cfg: cfg,
		log: log.With().Str("component", "audio").Logger(),
	}
}

func (a *ExecAudio) PlayTone(ctx context.Context, id string) error {
	if len(a.cfg.ToneCommand) == 0 {
		return fmt.Errorf("tone command not configured")
	}

	path := filepath.Join(a.cfg.ToneDir, id+".wav")
	args := append(append([]string{}, a.cfg.ToneCommand[1:]...), path)
	if err := exec.CommandContext(ctx, a.cfg.ToneCommand[0], args...).Run(); err != nil {
		return fmt.Errorf("play tone %q: %w", id, err)
	}
	return nil
}

func (a *ExecAudio) Speak(ctx context.Context, text string) error {
	if len(a.cfg.SpeakCommand) == 0 {
		return fmt.Errorf("speak command not configured")
	}

	args := append(append([]string{}, a.cfg.SpeakCommand[1:]...), text)
	if err := exec.CommandContext(ctx, a.cfg.SpeakCommand[0], args...).Run(); err != nil {
		return fmt.Errorf("speak: %w", err)
	}
	a.log.Debug().Str("text", text).Msg("speech played")
	return nil
}
