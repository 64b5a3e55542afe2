package evaluation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomed-agent/backend/internal/diagnosis"
	"github.com/biomed-agent/backend/internal/knowledge"
	"github.com/biomed-agent/backend/internal/scenario"
)

// The builtin scenarios are written against the shipped PSU-X document,
// so replaying them against it must be all green.
func TestBuiltinScenariosPass(t *testing.T) {
	store := knowledge.NewStore("../../data/equipment")
	interpreter := diagnosis.NewInterpreter(
		[]string{"missing", "shorted", "open_circuit"},
		[]string{"under_voltage", "over_voltage", "out_of_spec_low", "out_of_spec_high", "degraded", "noisy", "intermittent", "failed"},
	)
	pipeline := diagnosis.NewPipeline(store, interpreter)

	evaluator := NewEvaluator(pipeline)
	report := evaluator.Run(context.Background(), scenario.Builtin())

	for _, res := range report.Results {
		assert.True(t, res.Passed, "%s: %s", res.Name, res.Failure)
	}
	assert.Equal(t, report.Total, report.Passed)
	assert.Zero(t, report.Failed)
}

func TestEvaluatorReportsMismatch(t *testing.T) {
	store := knowledge.NewStore(t.TempDir())
	interpreter := diagnosis.NewInterpreter(nil, nil)
	pipeline := diagnosis.NewPipeline(store, interpreter)

	evaluator := NewEvaluator(pipeline)

	scenarios := []scenario.Scenario{
		{
			Name: "expects a cause no document can supply",
			Input: diagnosis.Input{
				EquipmentModel: "GHOST",
				Measurements:   []diagnosis.Measurement{{TestPoint: "TP1", Value: 1}},
			},
			ExpectedStatus: "failed",
			ExpectedCause:  "anything",
		},
	}

	report := evaluator.Run(context.Background(), scenarios)

	require.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Results[0].Failure, "status mismatch")
}

func TestReportSummary(t *testing.T) {
	report := &Report{
		Total:  2,
		Passed: 1,
		Failed: 1,
		Results: []ScenarioResult{
			{Name: "ok", Passed: true},
			{Name: "bad", Failure: "cause mismatch"},
		},
	}

	summary := report.Summary()

	assert.Contains(t, summary, "[PASS] ok")
	assert.Contains(t, summary, "[FAIL] bad")
	assert.Contains(t, summary, "cause mismatch")
}
