package diagnosis

import (
	"github.com/biomed-agent/backend/internal/knowledge"
)

// MatchFaults returns every fault whose signature is fully satisfied by the
// observed signal_id -> state map, in document declaration order. No
// ranking happens here; the hypothesis generator adjudicates between
// matches. Faults with empty signatures were flagged at load time and are
// excluded by FaultDefinition.Matches.
func MatchFaults(observed map[string]string, k *knowledge.EquipmentKnowledge) []knowledge.FaultDefinition {
	if k == nil || len(observed) == 0 {
		return nil
	}

	var matched []knowledge.FaultDefinition
	for _, faultID := range k.FaultOrder {
		fault := k.Faults[faultID]
		if fault.Matches(observed) {
			matched = append(matched, fault)
		}
	}
	return matched
}
