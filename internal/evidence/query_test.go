package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQueryKeepsContentWords(t *testing.T) {
	q := BuildQuery("The output voltage is too high", "PSU-X")

	assert.Contains(t, q, "voltage")
	assert.Contains(t, q, "high")
	assert.NotContains(t, q, "the", "determiners are dropped")
	assert.Contains(t, q, "PSU-X", "equipment model is appended")
}

func TestBuildQueryEmptyTrigger(t *testing.T) {
	assert.Equal(t, "PSU-X", BuildQuery("", "PSU-X"))
	assert.Equal(t, "PSU-X", BuildQuery("   ", "PSU-X"))
}

func TestBuildQueryWithoutEquipmentModel(t *testing.T) {
	q := BuildQuery("regulator overheating", "")

	assert.Contains(t, q, "regulator")
	assert.NotContains(t, q, "  ", "no trailing separator without a model")
}

func TestIsContentTag(t *testing.T) {
	for _, tag := range []string{"NN", "NNS", "NNP", "VB", "VBD", "JJ", "JJR"} {
		assert.True(t, isContentTag(tag), tag)
	}
	for _, tag := range []string{"DT", "IN", "RB", "CC", "PRP"} {
		assert.False(t, isContentTag(tag), tag)
	}
}
