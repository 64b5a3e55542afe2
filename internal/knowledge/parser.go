package knowledge

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

var signalIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// MalformedError reports an equipment document that exists but fails
// structural validation. The pipeline absorbs it (degrading to unknown
// states) while the underlying detail stays available for diagnostics.
type MalformedError struct {
	EquipmentID string
	Reason      string
	Err         error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed equipment document %q: %s: %v", e.EquipmentID, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed equipment document %q: %s", e.EquipmentID, e.Reason)
}

func (e *MalformedError) Unwrap() error { return e.Err }

type document struct {
	Metadata   Metadata          `yaml:"metadata"`
	Signals    []SignalConfig    `yaml:"signals"`
	Thresholds []ThresholdConfig `yaml:"thresholds"`
	Faults     []FaultDefinition `yaml:"faults"`
}

// Parse validates an equipment definition document and builds the immutable
// in-memory model. All structural checks happen here, at the boundary;
// downstream matching logic can assume a well-formed model.
func Parse(equipmentID string, data []byte) (*EquipmentKnowledge, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &MalformedError{EquipmentID: equipmentID, Reason: "invalid yaml", Err: err}
	}

	if doc.Metadata.EquipmentID == "" {
		return nil, &MalformedError{EquipmentID: equipmentID, Reason: "metadata.equipment_id is required"}
	}
	if doc.Metadata.Name == "" {
		return nil, &MalformedError{EquipmentID: equipmentID, Reason: "metadata.name is required"}
	}

	k := &EquipmentKnowledge{
		Metadata:   doc.Metadata,
		Signals:    make(map[string]SignalConfig, len(doc.Signals)),
		Thresholds: make(map[string]ThresholdConfig, len(doc.Thresholds)),
		Faults:     make(map[string]FaultDefinition, len(doc.Faults)),
	}

	for _, sig := range doc.Signals {
		if sig.SignalID == "" || !signalIDPattern.MatchString(sig.SignalID) {
			return nil, &MalformedError{EquipmentID: equipmentID, Reason: fmt.Sprintf("invalid signal_id %q", sig.SignalID)}
		}
		if _, dup := k.Signals[sig.SignalID]; dup {
			return nil, &MalformedError{EquipmentID: equipmentID, Reason: fmt.Sprintf("duplicate signal %q", sig.SignalID)}
		}
		k.Signals[sig.SignalID] = sig
		k.SignalOrder = append(k.SignalOrder, sig.SignalID)
	}

	for _, th := range doc.Thresholds {
		if th.SignalID == "" {
			return nil, &MalformedError{EquipmentID: equipmentID, Reason: "threshold entry missing signal_id"}
		}
		if len(th.States) == 0 {
			return nil, &MalformedError{EquipmentID: equipmentID, Reason: fmt.Sprintf("threshold for %q declares no states", th.SignalID)}
		}
		for _, st := range th.States {
			if st.Name == "" {
				return nil, &MalformedError{EquipmentID: equipmentID, Reason: fmt.Sprintf("unnamed threshold state for %q", th.SignalID)}
			}
		}
		if _, dup := k.Thresholds[th.SignalID]; dup {
			return nil, &MalformedError{EquipmentID: equipmentID, Reason: fmt.Sprintf("duplicate threshold list for %q", th.SignalID)}
		}
		k.Thresholds[th.SignalID] = th
	}

	for _, fault := range doc.Faults {
		if fault.FaultID == "" {
			return nil, &MalformedError{EquipmentID: equipmentID, Reason: "fault entry missing fault_id"}
		}
		if _, dup := k.Faults[fault.FaultID]; dup {
			return nil, &MalformedError{EquipmentID: equipmentID, Reason: fmt.Sprintf("duplicate fault %q", fault.FaultID)}
		}
		if len(fault.Signature) == 0 {
			k.Warnings = append(k.Warnings,
				fmt.Sprintf("fault %q has an empty signature and will never match", fault.FaultID))
		}
		for _, assertion := range fault.Signature {
			if assertion.SignalID == "" || assertion.State == "" {
				return nil, &MalformedError{EquipmentID: equipmentID,
					Reason: fmt.Sprintf("fault %q has an incomplete signature assertion", fault.FaultID)}
			}
		}
		for _, h := range fault.Hypotheses {
			if h.Rank < 1 {
				return nil, &MalformedError{EquipmentID: equipmentID,
					Reason: fmt.Sprintf("fault %q hypothesis rank must be >= 1", fault.FaultID)}
			}
			if h.Confidence < 0 || h.Confidence > 1 {
				return nil, &MalformedError{EquipmentID: equipmentID,
					Reason: fmt.Sprintf("fault %q hypothesis confidence %v outside [0,1]", fault.FaultID, h.Confidence)}
			}
		}
		k.Faults[fault.FaultID] = fault
		k.FaultOrder = append(k.FaultOrder, fault.FaultID)
	}

	return k, nil
}
