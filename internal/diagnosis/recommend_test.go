package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRecommendationsMapsRecoverySteps(t *testing.T) {
	k := testKnowledge(t)

	recs := GenerateRecommendations("F-OV", k)

	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].Step)
	assert.Equal(t, "measure", recs[0].Action)
	assert.Equal(t, "R12", recs[0].Target)
	assert.Equal(t, "Disconnect mains power", recs[0].SafetyWarning)
	assert.Equal(t, 2, recs[1].Step)
	assert.Equal(t, "replace", recs[1].Action)
}

func TestGenerateRecommendationsFallback(t *testing.T) {
	k := testKnowledge(t)

	cases := map[string]func() []Recommendation{
		"no fault identified": func() []Recommendation { return GenerateRecommendations("", k) },
		"nil knowledge":       func() []Recommendation { return GenerateRecommendations("F-OV", nil) },
		"unknown fault id":    func() []Recommendation { return GenerateRecommendations("F-NOPE", k) },
		"fault without steps": func() []Recommendation { return GenerateRecommendations("F-DEAD", k) },
	}

	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			recs := gen()

			require.Len(t, recs, 1, "exactly one generic recommendation")
			assert.Equal(t, "inspect", recs[0].Action)
			assert.Equal(t, "equipment", recs[0].Target)
			assert.Contains(t, recs[0].SafetyWarning, "Disconnect mains power")
		})
	}
}
