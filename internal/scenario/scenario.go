package scenario

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/biomed-agent/backend/internal/diagnosis"
)

// Scenario pairs a canned diagnostic input with the outcome the
// knowledge document should produce for it. Scenarios double as bench
// demos and as regression fixtures for the evaluation runner.
type Scenario struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Input          diagnosis.Input `json:"input"`
	ExpectedStatus string          `json:"expected_status"`
	ExpectedCause  string          `json:"expected_cause"`
}

func f(v float64) *float64 { return &v }

// Builtin covers the common failure modes of a bench power supply:
// nominal operation, over-voltage on the regulator rail, a missing
// rail, and a model with no knowledge document.
func Builtin() []Scenario {
	return []Scenario{
		{
			Name:        "nominal_operation",
			Description: "All rails within normal range; no fault expected",
			Input: diagnosis.Input{
				EquipmentModel: "PSU-X",
				Trigger:        "routine verification",
				Measurements: []diagnosis.Measurement{
					{TestPoint: "TP1", Value: 5.02, Unit: "V", Nominal: f(5.0)},
					{TestPoint: "TP2", Value: 12.1, Unit: "V", Nominal: f(12.0)},
				},
			},
			ExpectedStatus: "normal",
			ExpectedCause:  "unknown",
		},
		{
			Name:        "regulator_over_voltage",
			Description: "TP2 reads well above the regulated rail",
			Input: diagnosis.Input{
				EquipmentModel: "PSU-X",
				Trigger:        "output voltage too high, load device shut down",
				Measurements: []diagnosis.Measurement{
					{TestPoint: "TP1", Value: 5.01, Unit: "V", Nominal: f(5.0)},
					{TestPoint: "TP2", Value: 14.0, Unit: "V", Nominal: f(12.0)},
				},
			},
			ExpectedStatus: "degraded",
			ExpectedCause:  "voltage regulator feedback loop failure",
		},
		{
			Name:        "missing_rail",
			Description: "TP1 reads zero; supply rail absent",
			Input: diagnosis.Input{
				EquipmentModel: "PSU-X",
				Trigger:        "no output, unit appears dead",
				Measurements: []diagnosis.Measurement{
					{TestPoint: "TP1", Value: 0.0, Unit: "V", Nominal: f(5.0)},
					{TestPoint: "TP2", Value: 0.0, Unit: "V", Nominal: f(12.0)},
				},
			},
			ExpectedStatus: "failed",
			ExpectedCause:  "blown input fuse or failed bridge rectifier",
		},
		{
			Name:        "unknown_equipment",
			Description: "No knowledge document for this model; diagnosis degrades",
			Input: diagnosis.Input{
				EquipmentModel: "UNKNOWN-9000",
				Trigger:        "erratic readings",
				Measurements: []diagnosis.Measurement{
					{TestPoint: "TP1", Value: 3.3, Unit: "V"},
				},
			},
			ExpectedStatus: "unknown",
			ExpectedCause:  "unknown",
		},
	}
}

// LoadFile reads additional scenarios from a JSON file.
func LoadFile(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenarios []Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}

	return scenarios, nil
}
