package diagnosis

import (
	"time"

	"github.com/biomed-agent/backend/internal/evidence"
	"github.com/biomed-agent/backend/internal/knowledge"
)

// Stage names double as the entries of the session's execution history.
type Stage string

const (
	StageValidating                Stage = "Validating"
	StageInterpreting              Stage = "Interpreting"
	StageMatchingFaults            Stage = "MatchingFaults"
	StageGeneratingHypothesis      Stage = "GeneratingHypothesis"
	StageGeneratingRecommendations Stage = "GeneratingRecommendations"
	StageAssemblingResponse        Stage = "AssemblingResponse"
)

// Overall diagnostic status values.
const (
	StatusNormal   = "normal"
	StatusDegraded = "degraded"
	StatusFailed   = "failed"
	StatusUnknown  = "unknown"
)

// StateUnknown is the semantic state assigned when no threshold config
// covers a measurement.
const StateUnknown = "unknown"

// Measurement is one raw test-point reading as submitted by the caller.
type Measurement struct {
	TestPoint        string   `json:"test_point"`
	Value            float64  `json:"value"`
	Unit             string   `json:"unit"`
	Nominal          *float64 `json:"nominal,omitempty"`
	TolerancePercent *float64 `json:"tolerance,omitempty"`
}

// Input is the full pipeline input for one diagnostic session.
type Input struct {
	EquipmentModel  string        `json:"equipment_model"`
	EquipmentSerial string        `json:"equipment_serial,omitempty"`
	Trigger         string        `json:"trigger,omitempty"`
	Measurements    []Measurement `json:"measurements"`
}

// SignalState is a measurement resolved against the equipment's threshold
// configuration.
type SignalState struct {
	Measurement      Measurement `json:"measurement"`
	State            string      `json:"state"`
	Confidence       float64     `json:"confidence"`
	DeviationPercent *float64    `json:"deviation_percent,omitempty"`
}

// IsAnomaly reports whether the state represents something other than a
// healthy or unclassifiable signal.
func (s SignalState) IsAnomaly() bool {
	return s.State != "normal" && s.State != StateUnknown
}

// Hypothesis is the selected explanation for the observed fault signature.
type Hypothesis struct {
	FaultID               string   `json:"fault_id,omitempty"`
	FaultName             string   `json:"fault_name,omitempty"`
	Cause                 string   `json:"cause"`
	Confidence            float64  `json:"confidence"`
	Component             string   `json:"component,omitempty"`
	FailureMode           string   `json:"failure_mode,omitempty"`
	SupportingEvidence    []string `json:"supporting_evidence"`
	ContradictingEvidence []string `json:"contradicting_evidence"`
}

// Recommendation is one actionable remediation step.
type Recommendation struct {
	Step          int    `json:"step"`
	Action        string `json:"action"`
	Target        string `json:"target"`
	Instruction   string `json:"instruction"`
	Verification  string `json:"verification,omitempty"`
	SafetyWarning string `json:"safety_warning,omitempty"`
	EstimatedTime string `json:"estimated_time,omitempty"`
	Difficulty    string `json:"difficulty,omitempty"`
}

// Session is the per-diagnostic accumulator threaded through the stages.
// Each stage receives the session by value and returns an advanced copy;
// nothing mutates a session a previous stage still holds.
type Session struct {
	ID        string
	StartedAt time.Time

	Input Input

	Valid           bool
	ValidationError string

	// Knowledge is nil when the equipment document is absent or malformed;
	// KnowledgeIssue retains the detail for diagnostics.
	Knowledge      *knowledge.EquipmentKnowledge
	KnowledgeIssue string

	SignalStates   []SignalState
	ObservedStates map[string]string
	OverallStatus  string

	MatchedFaults []knowledge.FaultDefinition

	ExternalEvidence []string
	Citations        []evidence.Snippet

	Hypothesis      Hypothesis
	Recommendations []Recommendation

	History []Stage

	Report *Report
}

type EquipmentContext struct {
	Model  string `json:"model"`
	Serial string `json:"serial,omitempty"`
}

type SignalReading struct {
	TestPoint        string   `json:"test_point"`
	Value            float64  `json:"value"`
	Unit             string   `json:"unit"`
	State            string   `json:"state"`
	Confidence       float64  `json:"confidence"`
	DeviationPercent *float64 `json:"deviation_percent,omitempty"`
}

type ReasoningStep struct {
	Step        int    `json:"step"`
	Observation string `json:"observation"`
	Inference   string `json:"inference"`
	Source      string `json:"source"`
}

type Citation struct {
	DocID     string  `json:"doc_id"`
	Title     string  `json:"title"`
	Section   string  `json:"section,omitempty"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevance"`
}

type Limitations struct {
	UncertaintyFactors      []string `json:"uncertainty_factors"`
	RecommendedExpertReview bool     `json:"recommended_expert_review"`
}

type ExecutionMetadata struct {
	StageHistory     []Stage `json:"stage_history"`
	ProcessingTimeMS int64   `json:"processing_time_ms"`
}

// Report is the assembled diagnostic response.
type Report struct {
	Version          string            `json:"version"`
	SessionID        string            `json:"session_id"`
	Timestamp        time.Time         `json:"timestamp"`
	EquipmentContext EquipmentContext  `json:"equipment_context"`
	SignalStates     []SignalReading   `json:"signal_states"`
	OverallStatus    string            `json:"overall_status"`
	Hypothesis       Hypothesis        `json:"hypothesis"`
	Recommendations  []Recommendation  `json:"recommendations"`
	Citations        []Citation        `json:"citations"`
	ReasoningChain   []ReasoningStep   `json:"reasoning_chain"`
	Limitations      Limitations       `json:"limitations"`
	Narrative        string            `json:"narrative,omitempty"`
	Metadata         ExecutionMetadata `json:"metadata"`
}

// ErrorKind distinguishes the two terminal error outcomes.
type ErrorKind string

const (
	ErrKindValidation ErrorKind = "validation"
	ErrKindInternal   ErrorKind = "internal"
)

type DiagnosticError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Result is the resolved outcome of one session: exactly one of Report and
// Err is set.
type Result struct {
	SessionID string
	History   []Stage
	ElapsedMS int64
	Report    *Report
	Err       *DiagnosticError
}
