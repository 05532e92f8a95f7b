package evaluator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestEvaluate_PassWhenAllThreeAgree(t *testing.T) {
	e := New(zerolog.Nop())
	outcome := e.Evaluate(uuid.New(),
		strPtr("DL10AB1234"), strPtr("DL10AB1234"), strPtr("DL10AB1234"))
	assert.True(t, outcome.Passed)
	require.NotNil(t, outcome.DetectedPlate)
	assert.Equal(t, "DL10AB1234", *outcome.DetectedPlate)
}

func TestEvaluate_MatchNormalizationAbsorbsDrift(t *testing.T) {
	// One capture read "8" where the others read "B".
	e := New(zerolog.Nop())
	outcome := e.Evaluate(uuid.New(),
		strPtr("DL8CAB1234"), strPtr("DLBCAB1234"), strPtr("DLBCAB1234"))
	assert.True(t, outcome.Passed)
}

func TestEvaluate_FailOnDisagreement(t *testing.T) {
	e := New(zerolog.Nop())
	outcome := e.Evaluate(uuid.New(),
		strPtr("DL10AB1234"), strPtr("DL10AB1234"), strPtr("KA05NB7890"))
	assert.False(t, outcome.Passed)
}

func TestEvaluate_FailOnAnyAbsentPlate(t *testing.T) {
	e := New(zerolog.Nop())
	tests := []struct {
		name       string
		p1, p2, p3 *string
	}{
		{"first absent", nil, strPtr("DL10AB1234"), strPtr("DL10AB1234")},
		{"second absent", strPtr("DL10AB1234"), nil, strPtr("DL10AB1234")},
		{"third absent", strPtr("DL10AB1234"), strPtr("DL10AB1234"), nil},
		{"all absent", nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := e.Evaluate(uuid.New(), tt.p1, tt.p2, tt.p3)
			assert.False(t, outcome.Passed)
		})
	}
}

func TestEvaluate_DetectedPlatePrefersLaterCaptures(t *testing.T) {
	e := New(zerolog.Nop())

	outcome := e.Evaluate(uuid.New(), strPtr("AAA"), strPtr("BBB"), strPtr("CCC"))
	require.NotNil(t, outcome.DetectedPlate)
	assert.Equal(t, "CCC", *outcome.DetectedPlate)

	outcome = e.Evaluate(uuid.New(), strPtr("AAA"), strPtr("BBB"), nil)
	require.NotNil(t, outcome.DetectedPlate)
	assert.Equal(t, "BBB", *outcome.DetectedPlate)

	outcome = e.Evaluate(uuid.New(), strPtr("AAA"), nil, nil)
	require.NotNil(t, outcome.DetectedPlate)
	assert.Equal(t, "AAA", *outcome.DetectedPlate)

	outcome = e.Evaluate(uuid.New(), nil, nil, nil)
	assert.Nil(t, outcome.DetectedPlate)
}
