package evaluation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/biomed-agent/backend/internal/diagnosis"
	"github.com/biomed-agent/backend/internal/scenario"
	"github.com/biomed-agent/backend/pkg/logger"
)

// Evaluator replays scenarios through the pipeline and checks the
// deterministic outcome against each scenario's expectation. Because
// the diagnosis is deterministic, any mismatch is a real regression in
// the knowledge documents or the engine, not model noise.
type Evaluator struct {
	pipeline *diagnosis.Pipeline
}

type ScenarioResult struct {
	Name           string
	Passed         bool
	ExpectedStatus string
	ActualStatus   string
	ExpectedCause  string
	ActualCause    string
	ElapsedMS      int64
	Failure        string
}

type Report struct {
	Total   int
	Passed  int
	Failed  int
	Results []ScenarioResult
}

func NewEvaluator(pipeline *diagnosis.Pipeline) *Evaluator {
	return &Evaluator{pipeline: pipeline}
}

func (e *Evaluator) Run(ctx context.Context, scenarios []scenario.Scenario) *Report {
	logger.Info("Running scenario evaluation", zap.Int("scenarios", len(scenarios)))

	report := &Report{Total: len(scenarios)}

	for _, sc := range scenarios {
		result := e.runScenario(ctx, sc)
		if result.Passed {
			report.Passed++
		} else {
			report.Failed++
			logger.Warn("Scenario failed",
				zap.String("scenario", sc.Name),
				zap.String("failure", result.Failure),
			)
		}
		report.Results = append(report.Results, result)
	}

	logger.Info("Scenario evaluation completed",
		zap.Int("total", report.Total),
		zap.Int("passed", report.Passed),
		zap.Int("failed", report.Failed),
	)

	return report
}

func (e *Evaluator) runScenario(ctx context.Context, sc scenario.Scenario) ScenarioResult {
	result := ScenarioResult{
		Name:           sc.Name,
		ExpectedStatus: sc.ExpectedStatus,
		ExpectedCause:  sc.ExpectedCause,
	}

	run := e.pipeline.Run(ctx, sc.Input)
	result.ElapsedMS = run.ElapsedMS

	if run.Err != nil {
		result.Failure = fmt.Sprintf("pipeline error: %s", run.Err.Message)
		return result
	}

	result.ActualStatus = run.Report.OverallStatus
	result.ActualCause = run.Report.Hypothesis.Cause

	switch {
	case sc.ExpectedStatus != "" && result.ActualStatus != sc.ExpectedStatus:
		result.Failure = fmt.Sprintf("status mismatch: expected %q, got %q", sc.ExpectedStatus, result.ActualStatus)
	case sc.ExpectedCause != "" && result.ActualCause != sc.ExpectedCause:
		result.Failure = fmt.Sprintf("cause mismatch: expected %q, got %q", sc.ExpectedCause, result.ActualCause)
	default:
		result.Passed = true
	}

	return result
}

// Summary renders a plain-text report for operator consumption.
func (r *Report) Summary() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Scenario Evaluation\n")
	fmt.Fprintf(&sb, "===================\n\n")
	fmt.Fprintf(&sb, "Total: %d  Passed: %d  Failed: %d\n\n", r.Total, r.Passed, r.Failed)

	for _, res := range r.Results {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&sb, "[%s] %s (%dms)\n", status, res.Name, res.ElapsedMS)
		if res.Failure != "" {
			fmt.Fprintf(&sb, "       %s\n", res.Failure)
		}
	}

	return sb.String()
}
