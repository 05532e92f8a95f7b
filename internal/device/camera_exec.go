package device

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"
)

// ExecCameraConfig configures the external capture commands. StillCommand
// must write a JPEG to stdout; VideoCommand must record until terminated,
// writing to VideoOutput.
type ExecCameraConfig struct {
	StillCommand []string
	VideoCommand []string
	VideoOutput  string
}

// ExecCamera implements Camera by shelling out to platform capture tools
// (rpicam-still / rpicam-vid and friends).
type ExecCamera struct {
	cfg ExecCameraConfig
	log zerolog.Logger

	mu       sync.Mutex
	videoCmd *exec.Cmd
}

func NewExecCamera(cfg ExecCameraConfig, log zerolog.Logger) *ExecCamera {
	return &ExecCamera{
		cfg: cfg,
		log: log.With().Str("component", "camera").Logger(),
	}
}

func (c *ExecCamera) CaptureStill(ctx context.Context) ([]byte, error) {
	if len(c.cfg.StillCommand) == 0 {
		return nil, fmt.Errorf("%w: still command not configured", ErrCapture)
	}

	cmd := exec.CommandContext(ctx, c.cfg.StillCommand[0], c.cfg.StillCommand[1:]...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: still command: %v", ErrCapture, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: still command produced no image data", ErrCapture)
	}

	c.log.Debug().Int("image_bytes", len(out)).Msg("still captured")
	return out, nil
}

func (c *ExecCamera) StartVideo(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cfg.VideoCommand) == 0 {
		return fmt.Errorf("%w: video command not configured", ErrCapture)
	}
	if c.videoCmd != nil {
		return fmt.Errorf("%w: video recording already in progress", ErrCapture)
	}

	cmd := exec.CommandContext(ctx, c.cfg.VideoCommand[0], c.cfg.VideoCommand[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: video command: %v", ErrCapture, err)
	}
	c.videoCmd = cmd
	c.log.Debug().Msg("video recording started")
	return nil
}

func (c *ExecCamera) StopVideo(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	cmd := c.videoCmd
	c.videoCmd = nil
	c.mu.Unlock()

	if cmd == nil {
		return nil, fmt.Errorf("%w: no video recording in progress", ErrCapture)
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}
	// Recorder exits non-zero when interrupted; only I/O on the output file
	// decides success.
	_ = cmd.Wait()

	data, err := os.ReadFile(c.cfg.VideoOutput)
	if err != nil {
		return nil, fmt.Errorf("%w: read video output: %v", ErrCapture, err)
	}

	c.log.Debug().Int("video_bytes", len(data)).Msg("video recording stopped")
	return data, nil
}
