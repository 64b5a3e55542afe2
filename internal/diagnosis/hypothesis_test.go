package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomed-agent/backend/internal/knowledge"
)

func fault(id string, hyps ...knowledge.FaultHypothesis) knowledge.FaultDefinition {
	return knowledge.FaultDefinition{
		FaultID:    id,
		Name:       id,
		Hypotheses: hyps,
	}
}

func TestGenerateHypothesisNoMatches(t *testing.T) {
	h := GenerateHypothesis(nil, nil, nil)

	assert.Equal(t, UnknownCause, h.Cause)
	assert.Equal(t, 0.0, h.Confidence)
	assert.Empty(t, h.FaultID)
	assert.NotNil(t, h.SupportingEvidence)
	assert.NotNil(t, h.ContradictingEvidence)
}

func TestGenerateHypothesisLowestRankWins(t *testing.T) {
	matched := []knowledge.FaultDefinition{
		fault("F1",
			knowledge.FaultHypothesis{Rank: 2, Cause: "secondary", Confidence: 0.95},
			knowledge.FaultHypothesis{Rank: 1, Cause: "primary", Confidence: 0.6},
		),
	}

	h := GenerateHypothesis(matched, nil, nil)

	// Rank beats confidence.
	assert.Equal(t, "primary", h.Cause)
	assert.Equal(t, 0.6, h.Confidence)
}

func TestGenerateHypothesisConfidenceBreaksRankTie(t *testing.T) {
	matched := []knowledge.FaultDefinition{
		fault("F1", knowledge.FaultHypothesis{Rank: 1, Cause: "weaker", Confidence: 0.5}),
		fault("F2", knowledge.FaultHypothesis{Rank: 1, Cause: "stronger", Confidence: 0.8}),
	}

	h := GenerateHypothesis(matched, nil, nil)

	assert.Equal(t, "stronger", h.Cause)
	assert.Equal(t, "F2", h.FaultID)
}

func TestGenerateHypothesisDeclarationOrderBreaksFullTie(t *testing.T) {
	matched := []knowledge.FaultDefinition{
		fault("F-FIRST", knowledge.FaultHypothesis{Rank: 1, Cause: "first declared", Confidence: 0.8}),
		fault("F-SECOND", knowledge.FaultHypothesis{Rank: 1, Cause: "second declared", Confidence: 0.8}),
	}

	h := GenerateHypothesis(matched, nil, nil)

	assert.Equal(t, "F-FIRST", h.FaultID)
	assert.Equal(t, "first declared", h.Cause)
}

func TestGenerateHypothesisAcrossFaults(t *testing.T) {
	// F1 offers ranks 1 and 2, F2 offers ranks 1 and 3; the rank-1 pair is
	// adjudicated on confidence.
	matched := []knowledge.FaultDefinition{
		fault("F1",
			knowledge.FaultHypothesis{Rank: 1, Cause: "f1 primary", Confidence: 0.7},
			knowledge.FaultHypothesis{Rank: 2, Cause: "f1 secondary", Confidence: 0.9},
		),
		fault("F2",
			knowledge.FaultHypothesis{Rank: 1, Cause: "f2 primary", Confidence: 0.75},
			knowledge.FaultHypothesis{Rank: 3, Cause: "f2 tertiary", Confidence: 0.99},
		),
	}

	h := GenerateHypothesis(matched, nil, nil)

	assert.Equal(t, "f2 primary", h.Cause)
	assert.Equal(t, "F2", h.FaultID)
	assert.Equal(t, 0.75, h.Confidence)
}

func TestGenerateHypothesisEvidenceAssembly(t *testing.T) {
	states := []SignalState{
		{
			Measurement: Measurement{TestPoint: "TP2", Value: 14.0, Unit: "V", Nominal: f(12.0)},
			State:       "over_voltage",
			Confidence:  1.0,
		},
		{
			Measurement: Measurement{TestPoint: "TP1", Value: 5.0, Unit: "V"},
			State:       "normal",
			Confidence:  1.0,
		},
		{
			Measurement: Measurement{TestPoint: "TP9", Value: 1.0, Unit: "V"},
			State:       StateUnknown,
		},
	}
	states[0].DeviationPercent = f(16.7)

	external := []string{"manual: PSU-X Service Manual: regulator section"}

	h := GenerateHypothesis(nil, states, external)

	// Only the anomalous state contributes, then the external strings,
	// in that order.
	require.Len(t, h.SupportingEvidence, 2)
	assert.Contains(t, h.SupportingEvidence[0], "TP2: over_voltage")
	assert.Contains(t, h.SupportingEvidence[0], "+16.7%")
	assert.Equal(t, external[0], h.SupportingEvidence[1])
}
