package diagnosis

import (
	"fmt"

	"github.com/biomed-agent/backend/internal/knowledge"
)

// UnknownCause is the cause reported when no fault signature matches. This
// is an expected outcome, never an error.
const UnknownCause = "unknown"

// GenerateHypothesis selects the best hypothesis across all matched faults.
//
// Selection policy: lowest rank number wins; ties break to the higher
// confidence; remaining ties break to the fault that appears first in
// matchedFaults, which MatchFaults keeps in document declaration order.
// Declaration order is therefore an explicit part of the contract, not an
// accident of map iteration.
//
// Supporting evidence is the description of every anomalous signal state
// followed by the externally supplied evidence strings, without
// deduplication.
func GenerateHypothesis(matchedFaults []knowledge.FaultDefinition, states []SignalState, externalEvidence []string) Hypothesis {
	evidence := make([]string, 0, len(states)+len(externalEvidence))
	for _, s := range states {
		if s.IsAnomaly() {
			evidence = append(evidence, describeSignal(s))
		}
	}
	evidence = append(evidence, externalEvidence...)

	best := Hypothesis{
		Cause:                 UnknownCause,
		Confidence:            0.0,
		SupportingEvidence:    evidence,
		ContradictingEvidence: []string{},
	}

	found := false
	bestRank := 0
	for _, fault := range matchedFaults {
		for _, h := range fault.Hypotheses {
			if found && (h.Rank > bestRank || (h.Rank == bestRank && h.Confidence <= best.Confidence)) {
				continue
			}
			found = true
			bestRank = h.Rank
			best.FaultID = fault.FaultID
			best.FaultName = fault.Name
			best.Cause = h.Cause
			best.Confidence = h.Confidence
			best.Component = h.Component
			best.FailureMode = h.FailureMode
		}
	}

	return best
}

// describeSignal renders an anomalous signal state as an evidence string.
func describeSignal(s SignalState) string {
	if s.DeviationPercent != nil {
		return fmt.Sprintf("%s: %s (measured %g %s, deviation %+.1f%%)",
			s.Measurement.TestPoint, s.State, s.Measurement.Value, s.Measurement.Unit, *s.DeviationPercent)
	}
	return fmt.Sprintf("%s: %s (measured %g %s)",
		s.Measurement.TestPoint, s.State, s.Measurement.Value, s.Measurement.Unit)
}
