package diagnosis

import (
	"github.com/biomed-agent/backend/internal/knowledge"
)

// Interpreter classifies raw measurements into semantic states using the
// equipment's threshold configuration. It is a pure function of its inputs:
// identical measurements and knowledge always produce identical output.
type Interpreter struct {
	critical map[string]bool
	anomaly  map[string]bool
}

// NewInterpreter builds an interpreter with the configured status sets.
// criticalStates force the overall status to "failed"; anomalyStates
// degrade it.
func NewInterpreter(criticalStates, anomalyStates []string) *Interpreter {
	i := &Interpreter{
		critical: make(map[string]bool, len(criticalStates)),
		anomaly:  make(map[string]bool, len(anomalyStates)),
	}
	for _, s := range criticalStates {
		i.critical[s] = true
	}
	for _, s := range anomalyStates {
		i.anomaly[s] = true
	}
	return i
}

// Interpret resolves each measurement to a semantic state and aggregates
// the overall status. k may be nil (equipment document absent or
// malformed), in which case every state is "unknown".
//
// Threshold scan: states are tried in declared order and the first whose
// half-open range [min, max) contains the value wins; an absent bound is
// unbounded on that side. A measurement with no threshold config, or whose
// value no declared state contains, resolves to "unknown" with confidence 0.
func (i *Interpreter) Interpret(measurements []Measurement, k *knowledge.EquipmentKnowledge) ([]SignalState, string) {
	states := make([]SignalState, 0, len(measurements))

	hasCritical := false
	hasAnomaly := false
	hasResolved := false

	for _, m := range measurements {
		state := StateUnknown
		confidence := 0.0

		if k != nil {
			if cfg, ok := k.Thresholds[m.TestPoint]; ok {
				if name := cfg.StateFor(m.Value); name != "" {
					state = name
					confidence = 1.0
					hasResolved = true
				}
			}
		}

		states = append(states, SignalState{
			Measurement:      m,
			State:            state,
			Confidence:       confidence,
			DeviationPercent: deviationPercent(m),
		})

		if i.critical[state] {
			hasCritical = true
		} else if i.anomaly[state] {
			hasAnomaly = true
		}
	}

	switch {
	case hasCritical:
		return states, StatusFailed
	case hasAnomaly:
		return states, StatusDegraded
	case !hasResolved:
		// Nothing classified at all, typically because no equipment
		// document was available.
		return states, StatusUnknown
	default:
		return states, StatusNormal
	}
}

// deviationPercent is (value - nominal) / nominal * 100, undefined (nil)
// when the nominal is unknown or zero.
func deviationPercent(m Measurement) *float64 {
	if m.Nominal == nil || *m.Nominal == 0 {
		return nil
	}
	d := (m.Value - *m.Nominal) / *m.Nominal * 100
	return &d
}
