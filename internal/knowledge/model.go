package knowledge

// EquipmentKnowledge is the parsed, immutable definition for one equipment
// model: signal declarations, per-signal threshold states, and fault
// definitions. It is built once at load time and never mutated afterwards,
// which is what makes the store cache safe to share across sessions.
type EquipmentKnowledge struct {
	Metadata   Metadata
	Signals    map[string]SignalConfig
	Thresholds map[string]ThresholdConfig
	Faults     map[string]FaultDefinition

	// SignalOrder and FaultOrder preserve document declaration order.
	// Matching, tie-breaking, and any listing of the document iterate in
	// this order, never over the maps.
	SignalOrder []string
	FaultOrder  []string

	// Warnings collects non-fatal structural findings from the parser,
	// e.g. faults with an empty signature.
	Warnings []string
}

type Metadata struct {
	EquipmentID  string `yaml:"equipment_id"`
	Name         string `yaml:"name"`
	Category     string `yaml:"category"`
	Manufacturer string `yaml:"manufacturer"`
	Version      string `yaml:"version"`
	Created      string `yaml:"created"`
}

type SignalConfig struct {
	SignalID  string `yaml:"signal_id"`
	Name      string `yaml:"name"`
	TestPoint string `yaml:"test_point"`
	Parameter string `yaml:"parameter"`
	Unit      string `yaml:"unit"`
}

// ThresholdState is one named semantic state with an optional half-open
// range [Min, Max). A nil bound is unbounded on that side.
type ThresholdState struct {
	Name        string   `yaml:"name"`
	Min         *float64 `yaml:"min"`
	Max         *float64 `yaml:"max"`
	Description string   `yaml:"description"`
}

// Contains reports whether value falls inside the state's range.
func (s ThresholdState) Contains(value float64) bool {
	if s.Min != nil && value < *s.Min {
		return false
	}
	if s.Max != nil && value >= *s.Max {
		return false
	}
	return true
}

// ThresholdConfig is the ordered state list for one signal. The list is an
// ordered partition of the value domain: the first state containing the
// value wins.
type ThresholdConfig struct {
	SignalID string           `yaml:"signal_id"`
	States   []ThresholdState `yaml:"states"`
}

// StateFor returns the first declared state containing value, or "" when
// no state does.
func (t ThresholdConfig) StateFor(value float64) string {
	for _, s := range t.States {
		if s.Contains(value) {
			return s.Name
		}
	}
	return ""
}

// SignatureAssertion is one conjunct of a fault signature: the named signal
// must have been observed in exactly the required state.
type SignatureAssertion struct {
	SignalID string `yaml:"signal_id"`
	State    string `yaml:"state"`
}

type FaultHypothesis struct {
	Rank        int     `yaml:"rank"`
	Component   string  `yaml:"component"`
	FailureMode string  `yaml:"failure_mode"`
	Cause       string  `yaml:"cause"`
	Confidence  float64 `yaml:"confidence"`
}

type RecoveryStep struct {
	Step          int    `yaml:"step"`
	Action        string `yaml:"action"`
	Target        string `yaml:"target"`
	Instruction   string `yaml:"instruction"`
	Verification  string `yaml:"verification"`
	Safety        string `yaml:"safety"`
	EstimatedTime string `yaml:"estimated_time"`
	Difficulty    string `yaml:"difficulty"`
}

type FaultDefinition struct {
	FaultID     string               `yaml:"fault_id"`
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	Signature   []SignatureAssertion `yaml:"signature"`
	Hypotheses  []FaultHypothesis    `yaml:"hypotheses"`
	Recovery    []RecoveryStep       `yaml:"recovery"`
}

// Matches reports whether every signature assertion is satisfied by the
// observed signal_id -> state map. Matching is exact string equality; a
// signal absent from the observation fails the assertion. Faults with an
// empty signature never match: an empty conjunction would be trivially
// true, which the parser flags as anomalous configuration.
func (f FaultDefinition) Matches(observed map[string]string) bool {
	if len(f.Signature) == 0 {
		return false
	}
	for _, assertion := range f.Signature {
		state, ok := observed[assertion.SignalID]
		if !ok || state != assertion.State {
			return false
		}
	}
	return true
}
