package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomed-agent/backend/internal/knowledge"
)

func TestMatchFaultsConjunctive(t *testing.T) {
	k := testKnowledge(t)

	matched := MatchFaults(map[string]string{
		"TP1": "normal",
		"TP2": "over_voltage",
	}, k)

	require.Len(t, matched, 1)
	assert.Equal(t, "F-OV", matched[0].FaultID)

	// One assertion unsatisfied: no match.
	matched = MatchFaults(map[string]string{
		"TP1": "normal",
		"TP2": "normal",
	}, k)
	assert.Empty(t, matched)
}

func TestMatchFaultsNilKnowledge(t *testing.T) {
	assert.Nil(t, MatchFaults(map[string]string{"TP1": "normal"}, nil))
}

func TestMatchFaultsEmptyObservation(t *testing.T) {
	k := testKnowledge(t)
	assert.Nil(t, MatchFaults(map[string]string{}, k))
}

func TestMatchFaultsDeclarationOrder(t *testing.T) {
	doc := `
metadata:
  equipment_id: X
  name: X
faults:
  - fault_id: F-B
    signature:
      - signal_id: TP1
        state: hot
  - fault_id: F-A
    signature:
      - signal_id: TP1
        state: hot
`
	k, err := knowledge.Parse("X", []byte(doc))
	require.NoError(t, err)

	matched := MatchFaults(map[string]string{"TP1": "hot"}, k)
	require.Len(t, matched, 2)

	// Document order, not lexical order.
	assert.Equal(t, "F-B", matched[0].FaultID)
	assert.Equal(t, "F-A", matched[1].FaultID)
}
