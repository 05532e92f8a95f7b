package device

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/rs/zerolog"
)

// RekognitionRecognizer implements Recognizer on AWS Rekognition DetectText.
// Rekognition returns a flat list of LINE and WORD detections; each LINE
// maps to one block carrying a single line, and the whole-text blob is the
// lines joined in detection order.
type RekognitionRecognizer struct {
	client *rekognition.Client
	log    zerolog.Logger
}

func NewRekognitionRecognizer(client *rekognition.Client, log zerolog.Logger) *RekognitionRecognizer {
	return &RekognitionRecognizer{
		client: client,
		log:    log.With().Str("component", "rekognition").Logger(),
	}
}

func (r *RekognitionRecognizer) Recognize(ctx context.Context, imageBytes []byte) (*RecognitionResult, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrRecognition)
	}

	out, err := r.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: imageBytes},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: detect text: %v", ErrRecognition, err)
	}

	result := &RecognitionResult{}
	var lines []string
	for _, det := range out.TextDetections {
		if det.Type != types.TextTypesLine || det.DetectedText == nil {
			continue
		}
		text := *det.DetectedText
		lines = append(lines, text)
		result.Blocks = append(result.Blocks, TextBlock{
			Text:  text,
			Lines: []TextLine{{Text: text}},
		})
	}
	result.WholeText = strings.Join(lines, "\n")

	r.log.Debug().
		Int("line_count", len(lines)).
		Int("image_bytes", len(imageBytes)).
		Msg("text detection completed")
	return result, nil
}
