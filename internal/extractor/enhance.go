package extractor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	// Register decoders for the formats capture tools emit.
	_ "image/png"
)

// enhance produces the second-pass image variant: grayscale conversion,
// contrast/brightness adjustment, then a hard binary threshold. The output
// is re-encoded as JPEG for the recognizer.
func enhance(imageBytes []byte, cfg Config) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray := color.GrayModel.Convert(src.At(x, y)).(color.Gray).Y
			adjusted := (float64(gray)-128)*cfg.Contrast + 128 + cfg.Brightness
			var out uint8
			if clamp(adjusted) >= cfg.LuminanceThreshold {
				out = 255
			}
			dst.SetGray(x, y, color.Gray{Y: out})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, nil); err != nil {
		return nil, fmt.Errorf("encode enhanced image: %w", err)
	}
	return buf.Bytes(), nil
}

func clamp(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}
