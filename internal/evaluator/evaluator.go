// Package evaluator computes the pass/fail verdict from the three extracted
// plate strings.
package evaluator

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stillwatch/internal/domain/verify"
	"stillwatch/internal/utils"
)

type Evaluator struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Evaluator {
	return &Evaluator{log: log.With().Str("component", "evaluator").Logger()}
}

// Evaluate produces the run outcome. Any absent plate is an immediate FAIL
// and skips normalization of the others; otherwise the verdict is PASS iff
// all three match-time-normalized strings are identical. The reported
// detected plate is the most recent successful extraction, preferring
// capture 3, then 2, then 1.
func (e *Evaluator) Evaluate(runID uuid.UUID, plate1, plate2, plate3 *string) verify.RunOutcome {
	outcome := verify.RunOutcome{
		RunID:         runID,
		Plate1:        plate1,
		Plate2:        plate2,
		Plate3:        plate3,
		DetectedPlate: firstPresent(plate3, plate2, plate1),
		CompletedAt:   time.Now(),
	}

	if plate1 == nil || plate2 == nil || plate3 == nil {
		e.log.Info().
			Str("run_id", runID.String()).
			Bool("plate_1_present", plate1 != nil).
			Bool("plate_2_present", plate2 != nil).
			Bool("plate_3_present", plate3 != nil).
			Msg("run failed, capture without plate")
		return outcome
	}

	n1 := utils.NormalizePlateForMatch(*plate1)
	n2 := utils.NormalizePlateForMatch(*plate2)
	n3 := utils.NormalizePlateForMatch(*plate3)
	outcome.Passed = n1 == n2 && n2 == n3

	e.log.Info().
		Str("run_id", runID.String()).
		Str("plate_1", n1).
		Str("plate_2", n2).
		Str("plate_3", n3).
		Bool("passed", outcome.Passed).
		Msg("run evaluated")
	return outcome
}

func firstPresent(plates ...*string) *string {
	for _, p := range plates {
		if p != nil {
			return p
		}
	}
	return nil
}
