package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDoc = `
metadata:
  equipment_id: PSU-X
  name: Bench Power Supply
signals:
  - signal_id: TP1
    name: 5V rail
    test_point: TP1
    parameter: voltage
    unit: V
  - signal_id: TP2
    name: 12V rail
    test_point: TP2
    parameter: voltage
    unit: V
thresholds:
  - signal_id: TP2
    states:
      - name: over_voltage
        min: 13.0
      - name: normal
        min: 11.0
        max: 13.0
      - name: under_voltage
        max: 11.0
faults:
  - fault_id: F-OV
    name: Over-voltage
    signature:
      - signal_id: TP2
        state: over_voltage
    hypotheses:
      - rank: 1
        cause: regulator failure
        confidence: 0.85
    recovery:
      - step: 1
        action: replace
        target: U3
        instruction: Replace the regulator
  - fault_id: F-UV
    name: Under-voltage
    signature:
      - signal_id: TP2
        state: under_voltage
    hypotheses:
      - rank: 1
        cause: load short
        confidence: 0.7
`

func TestParseValidDocument(t *testing.T) {
	k, err := Parse("PSU-X", []byte(validDoc))
	require.NoError(t, err)

	assert.Equal(t, "PSU-X", k.Metadata.EquipmentID)
	assert.Len(t, k.Signals, 2)
	assert.Len(t, k.Thresholds, 1)
	assert.Len(t, k.Faults, 2)
	assert.Empty(t, k.Warnings)
}

func TestParsePreservesDeclarationOrder(t *testing.T) {
	k, err := Parse("PSU-X", []byte(validDoc))
	require.NoError(t, err)

	assert.Equal(t, []string{"TP1", "TP2"}, k.SignalOrder)
	assert.Equal(t, []string{"F-OV", "F-UV"}, k.FaultOrder)
}

func TestParseRejectsMalformedDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "invalid yaml",
			doc:  "metadata: [",
		},
		{
			name: "missing equipment id",
			doc: `
metadata:
  name: Something
`,
		},
		{
			name: "missing name",
			doc: `
metadata:
  equipment_id: X
`,
		},
		{
			name: "invalid signal id",
			doc: `
metadata:
  equipment_id: X
  name: X
signals:
  - signal_id: "bad id!"
`,
		},
		{
			name: "duplicate signal",
			doc: `
metadata:
  equipment_id: X
  name: X
signals:
  - signal_id: TP1
  - signal_id: TP1
`,
		},
		{
			name: "threshold without states",
			doc: `
metadata:
  equipment_id: X
  name: X
thresholds:
  - signal_id: TP1
    states: []
`,
		},
		{
			name: "unnamed threshold state",
			doc: `
metadata:
  equipment_id: X
  name: X
thresholds:
  - signal_id: TP1
    states:
      - min: 1.0
`,
		},
		{
			name: "duplicate fault",
			doc: `
metadata:
  equipment_id: X
  name: X
faults:
  - fault_id: F1
    signature:
      - signal_id: TP1
        state: normal
  - fault_id: F1
    signature:
      - signal_id: TP1
        state: normal
`,
		},
		{
			name: "incomplete signature assertion",
			doc: `
metadata:
  equipment_id: X
  name: X
faults:
  - fault_id: F1
    signature:
      - signal_id: TP1
`,
		},
		{
			name: "hypothesis rank below one",
			doc: `
metadata:
  equipment_id: X
  name: X
faults:
  - fault_id: F1
    signature:
      - signal_id: TP1
        state: normal
    hypotheses:
      - rank: 0
        cause: something
        confidence: 0.5
`,
		},
		{
			name: "hypothesis confidence above one",
			doc: `
metadata:
  equipment_id: X
  name: X
faults:
  - fault_id: F1
    signature:
      - signal_id: TP1
        state: normal
    hypotheses:
      - rank: 1
        cause: something
        confidence: 1.5
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("X", []byte(tt.doc))
			require.Error(t, err)

			var malformed *MalformedError
			assert.ErrorAs(t, err, &malformed)
		})
	}
}

func TestParseEmptySignatureIsWarningNotError(t *testing.T) {
	doc := `
metadata:
  equipment_id: X
  name: X
faults:
  - fault_id: F-EMPTY
    signature: []
`

	k, err := Parse("X", []byte(doc))
	require.NoError(t, err)

	require.Len(t, k.Warnings, 1)
	assert.Contains(t, k.Warnings[0], "F-EMPTY")
}

func TestThresholdStateHalfOpenRange(t *testing.T) {
	min := 11.0
	max := 13.0
	state := ThresholdState{Name: "normal", Min: &min, Max: &max}

	assert.True(t, state.Contains(11.0), "min is inclusive")
	assert.True(t, state.Contains(12.999))
	assert.False(t, state.Contains(13.0), "max is exclusive")
	assert.False(t, state.Contains(10.999))
}

func TestThresholdStateUnboundedSides(t *testing.T) {
	min := 13.0
	over := ThresholdState{Name: "over_voltage", Min: &min}
	assert.True(t, over.Contains(13.0))
	assert.True(t, over.Contains(1000))
	assert.False(t, over.Contains(12.9))

	max := 1.0
	missing := ThresholdState{Name: "missing", Max: &max}
	assert.True(t, missing.Contains(0))
	assert.True(t, missing.Contains(-5))
	assert.False(t, missing.Contains(1.0))
}

func TestStateForFirstMatchWins(t *testing.T) {
	lo := 0.0
	hi := 20.0
	mid := 10.0
	cfg := ThresholdConfig{
		SignalID: "TP1",
		States: []ThresholdState{
			{Name: "wide", Min: &lo, Max: &hi},
			{Name: "narrow", Min: &mid, Max: &hi},
		},
	}

	// Both states contain 15; the first declared wins.
	assert.Equal(t, "wide", cfg.StateFor(15))
}

func TestStateForNoMatch(t *testing.T) {
	lo := 5.0
	hi := 10.0
	cfg := ThresholdConfig{
		SignalID: "TP1",
		States:   []ThresholdState{{Name: "normal", Min: &lo, Max: &hi}},
	}

	assert.Equal(t, "", cfg.StateFor(42))
}

func TestFaultMatches(t *testing.T) {
	fault := FaultDefinition{
		FaultID: "F1",
		Signature: []SignatureAssertion{
			{SignalID: "TP1", State: "normal"},
			{SignalID: "TP2", State: "over_voltage"},
		},
	}

	assert.True(t, fault.Matches(map[string]string{
		"TP1": "normal",
		"TP2": "over_voltage",
	}))

	assert.False(t, fault.Matches(map[string]string{
		"TP1": "normal",
		"TP2": "normal",
	}), "one assertion unsatisfied")

	assert.False(t, fault.Matches(map[string]string{
		"TP2": "over_voltage",
	}), "absent signal fails the assertion")
}

func TestFaultEmptySignatureNeverMatches(t *testing.T) {
	fault := FaultDefinition{FaultID: "F-EMPTY"}

	assert.False(t, fault.Matches(map[string]string{"TP1": "normal"}))
	assert.False(t, fault.Matches(map[string]string{}))
}
