package diagnosis

import (
	"fmt"
)

// buildReport assembles the final response from a fully advanced session.
// Everything except the timestamp and session id is a deterministic
// function of the input and the knowledge snapshot, which is what makes
// two identical runs byte-identical apart from those fields.
func (p *Pipeline) buildReport(s Session) *Report {
	readings := make([]SignalReading, 0, len(s.SignalStates))
	for _, st := range s.SignalStates {
		readings = append(readings, SignalReading{
			TestPoint:        st.Measurement.TestPoint,
			Value:            st.Measurement.Value,
			Unit:             st.Measurement.Unit,
			State:            st.State,
			Confidence:       st.Confidence,
			DeviationPercent: st.DeviationPercent,
		})
	}

	citations := make([]Citation, 0, len(s.Citations))
	for _, sn := range s.Citations {
		citations = append(citations, Citation{
			DocID:     sn.DocID,
			Title:     sn.Title,
			Section:   sn.Section,
			Snippet:   truncate(sn.Content, 500),
			Relevance: sn.Relevance,
		})
	}

	return &Report{
		Version:   "1.0",
		SessionID: s.ID,
		Timestamp: s.StartedAt,
		EquipmentContext: EquipmentContext{
			Model:  s.Input.EquipmentModel,
			Serial: s.Input.EquipmentSerial,
		},
		SignalStates:    readings,
		OverallStatus:   s.OverallStatus,
		Hypothesis:      s.Hypothesis,
		Recommendations: s.Recommendations,
		Citations:       citations,
		ReasoningChain:  buildReasoningChain(s),
		Limitations:     p.buildLimitations(s),
		Metadata: ExecutionMetadata{
			StageHistory: s.History,
		},
	}
}

func buildReasoningChain(s Session) []ReasoningStep {
	chain := []ReasoningStep{
		{
			Step:        1,
			Observation: fmt.Sprintf("Received %d measurements for %s", len(s.Input.Measurements), s.Input.EquipmentModel),
			Inference:   fmt.Sprintf("Overall status: %s", s.OverallStatus),
			Source:      "signal",
		},
	}

	if s.Knowledge == nil {
		chain = append(chain, ReasoningStep{
			Step:        2,
			Observation: "No equipment knowledge document available",
			Inference:   "Signals could not be classified against thresholds",
			Source:      "config",
		})
	} else {
		inference := "No fault signature matched the observed states"
		if s.Hypothesis.FaultID != "" {
			inference = fmt.Sprintf("Matched fault %s: %s", s.Hypothesis.FaultID, s.Hypothesis.Cause)
		}
		chain = append(chain, ReasoningStep{
			Step:        2,
			Observation: fmt.Sprintf("Evaluated %d fault definitions, %d matched", len(s.Knowledge.Faults), len(s.MatchedFaults)),
			Inference:   inference,
			Source:      "config",
		})
	}

	if len(s.Citations) > 0 {
		chain = append(chain, ReasoningStep{
			Step:        len(chain) + 1,
			Observation: fmt.Sprintf("Retrieved %d supporting document snippets", len(s.Citations)),
			Inference:   "Snippets attached as citations; they do not alter the deterministic diagnosis",
			Source:      "documentation",
		})
	}

	return chain
}

func (p *Pipeline) buildLimitations(s Session) Limitations {
	factors := []string{"analysis based on deterministic equipment configuration"}

	if s.Knowledge == nil {
		factors = append(factors, "equipment knowledge unavailable; signal states degraded to unknown")
	}
	if s.Hypothesis.FaultID == "" {
		factors = append(factors, "no fault signature matched the observed states")
	}

	return Limitations{
		UncertaintyFactors:      factors,
		RecommendedExpertReview: s.Hypothesis.Confidence < p.reviewThreshold,
	}
}
