package diagnosis

import (
	"github.com/biomed-agent/backend/internal/knowledge"
)

// GenerateRecommendations converts the winning fault's recovery steps into
// recommendations, 1:1 and order-preserving. When no fault was identified
// (or the fault has no recovery steps) it returns exactly one generic
// inspection recommendation, so the pipeline never surfaces zero
// actionable steps.
func GenerateRecommendations(faultID string, k *knowledge.EquipmentKnowledge) []Recommendation {
	if faultID == "" || k == nil {
		return []Recommendation{fallbackRecommendation()}
	}

	fault, ok := k.Faults[faultID]
	if !ok || len(fault.Recovery) == 0 {
		return []Recommendation{fallbackRecommendation()}
	}

	recs := make([]Recommendation, 0, len(fault.Recovery))
	for _, step := range fault.Recovery {
		recs = append(recs, Recommendation{
			Step:          step.Step,
			Action:        step.Action,
			Target:        step.Target,
			Instruction:   step.Instruction,
			Verification:  step.Verification,
			SafetyWarning: step.Safety,
			EstimatedTime: step.EstimatedTime,
			Difficulty:    step.Difficulty,
		})
	}
	return recs
}

func fallbackRecommendation() Recommendation {
	return Recommendation{
		Step:          1,
		Action:        "inspect",
		Target:        "equipment",
		Instruction:   "Perform a visual inspection for damaged components, discoloration, bulged capacitors, or loose connections",
		Verification:  "Note any visible damage found",
		SafetyWarning: "Disconnect mains power before opening the enclosure",
		EstimatedTime: "10m",
		Difficulty:    "easy",
	}
}
