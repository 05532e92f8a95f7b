// Package extractor turns a captured image into a normalized plate string,
// driving the text-recognition collaborator over the raw image and, when
// that fails, a contrast-enhanced variant.
package extractor

import (
	"context"

	"github.com/rs/zerolog"

	"stillwatch/internal/device"
	"stillwatch/internal/utils"
)

// Config carries the enhancement fallback policy.
type Config struct {
	// LuminanceThreshold is the hard binarization cut: gray pixels below it
	// become black, at or above it white.
	LuminanceThreshold uint8
	// Contrast scales pixel distance from mid-gray before thresholding.
	Contrast float64
	// Brightness is added to every pixel after contrast scaling.
	Brightness float64
}

type Extractor struct {
	recognizer device.Recognizer
	cfg        Config
	log        zerolog.Logger
}

func New(recognizer device.Recognizer, cfg Config, log zerolog.Logger) *Extractor {
	return &Extractor{
		recognizer: recognizer,
		cfg:        cfg,
		log:        log.With().Str("component", "extractor").Logger(),
	}
}

// Extract attempts recognition on the raw image first, then once on an
// enhanced variant. It returns ("", false) when no plate was found.
// Recognizer failures count as "no match" for that pass, never as a fatal
// error.
func (e *Extractor) Extract(ctx context.Context, imageBytes []byte) (string, bool) {
	if plate, ok := e.pass(ctx, imageBytes); ok {
		return plate, true
	}

	enhanced, err := enhance(imageBytes, e.cfg)
	if err != nil {
		e.log.Warn().Err(err).Msg("image enhancement failed, skipping second pass")
		return "", false
	}
	return e.pass(ctx, enhanced)
}

// pass runs one recognition attempt and searches the result for a plate:
// every block, then every line within each block, then the whole-text blob,
// returning the first grammar match.
func (e *Extractor) pass(ctx context.Context, imageBytes []byte) (string, bool) {
	result, err := e.recognizer.Recognize(ctx, imageBytes)
	if err != nil {
		e.log.Warn().Err(err).Msg("recognition pass failed")
		return "", false
	}
	if result == nil {
		return "", false
	}

	for _, block := range result.Blocks {
		if plate := utils.MatchPlate(block.Text); plate != "" {
			return plate, true
		}
	}
	for _, block := range result.Blocks {
		for _, line := range block.Lines {
			if plate := utils.MatchPlate(line.Text); plate != "" {
				return plate, true
			}
		}
	}
	if plate := utils.MatchPlate(result.WholeText); plate != "" {
		return plate, true
	}
	return "", false
}
