package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/biomed-agent/backend/internal/evidence"
	"github.com/biomed-agent/backend/internal/knowledge"
	"github.com/biomed-agent/backend/internal/metrics"
	"github.com/biomed-agent/backend/pkg/logger"
)

// Narrator produces optional supplementary free text for a finished report.
// It never influences the deterministic hypothesis or recommendations.
type Narrator interface {
	GenerateNarrative(ctx context.Context, cause, status string, steps []string) (string, error)
}

// Pipeline is the strictly sequential stage sequencer:
//
//	Validating -> Interpreting -> MatchingFaults -> GeneratingHypothesis ->
//	GeneratingRecommendations -> AssemblingResponse -> Done
//
// with a validation-failure branch to an error terminal. Every stage is a
// transformation over the session record; the only side effects are the
// append-only history log and the final response. Many sessions may run
// concurrently; they share nothing but the read-only knowledge store.
type Pipeline struct {
	store       *knowledge.Store
	interpreter *Interpreter

	// Collaborators; both optional, both absorbed on failure.
	retriever evidence.Retriever
	narrator  Narrator

	evidenceTopK    int
	evidenceTimeout time.Duration
	reviewThreshold float64
}

type PipelineOption func(*Pipeline)

func WithEvidence(r evidence.Retriever, topK int, timeout time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.retriever = r
		p.evidenceTopK = topK
		p.evidenceTimeout = timeout
	}
}

func WithNarrator(n Narrator) PipelineOption {
	return func(p *Pipeline) { p.narrator = n }
}

func WithReviewThreshold(t float64) PipelineOption {
	return func(p *Pipeline) { p.reviewThreshold = t }
}

func NewPipeline(store *knowledge.Store, interpreter *Interpreter, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store:           store,
		interpreter:     interpreter,
		evidenceTopK:    5,
		evidenceTimeout: 10 * time.Second,
		reviewThreshold: 0.7,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one diagnostic session to completion. The returned result
// resolves to exactly one of: full report, validation error, internal
// error.
func (p *Pipeline) Run(ctx context.Context, input Input) *Result {
	start := time.Now()

	s := Session{
		ID:            uuid.New().String(),
		StartedAt:     start.UTC(),
		Input:         input,
		Valid:         true,
		OverallStatus: StatusUnknown,
	}

	logger.Info("Diagnostic session started",
		zap.String("session_id", s.ID),
		zap.String("equipment_model", input.EquipmentModel),
		zap.Int("measurements", len(input.Measurements)),
	)

	s = validate(s)
	if !s.Valid {
		metrics.DiagnosisTotal.WithLabelValues("validation_error").Inc()
		logger.Warn("Diagnostic input rejected",
			zap.String("session_id", s.ID),
			zap.String("reason", s.ValidationError),
		)
		return &Result{
			SessionID: s.ID,
			History:   s.History,
			ElapsedMS: time.Since(start).Milliseconds(),
			Err:       &DiagnosticError{Kind: ErrKindValidation, Message: s.ValidationError},
		}
	}

	stages := []struct {
		name Stage
		fn   func(context.Context, Session) (Session, error)
	}{
		{StageInterpreting, p.interpret},
		{StageMatchingFaults, p.matchFaults},
		{StageGeneratingHypothesis, p.generateHypothesis},
		{StageGeneratingRecommendations, p.generateRecommendations},
		{StageAssemblingResponse, p.assembleResponse},
	}

	for _, stage := range stages {
		next, err := runStage(ctx, stage.name, s, stage.fn)
		if err != nil {
			metrics.StageFailures.WithLabelValues(string(stage.name)).Inc()
			metrics.DiagnosisTotal.WithLabelValues("internal_error").Inc()
			logger.Error("Diagnostic stage failed",
				zap.String("session_id", s.ID),
				zap.String("stage", string(stage.name)),
				zap.Error(err),
			)
			// Partial results are discarded; only a generic message is
			// surfaced.
			return &Result{
				SessionID: s.ID,
				History:   next.History,
				ElapsedMS: time.Since(start).Milliseconds(),
				Err:       &DiagnosticError{Kind: ErrKindInternal, Message: "internal error during diagnosis"},
			}
		}
		s = next
	}

	elapsed := time.Since(start).Milliseconds()
	s.Report.Metadata.ProcessingTimeMS = elapsed

	p.attachNarrative(ctx, &s)

	metrics.DiagnosisTotal.WithLabelValues("report").Inc()
	metrics.DiagnosisDuration.WithLabelValues(s.OverallStatus).Observe(time.Since(start).Seconds())
	if s.Hypothesis.FaultID != "" {
		metrics.FaultMatches.WithLabelValues(s.Input.EquipmentModel, s.Hypothesis.FaultID).Inc()
	}

	logger.Info("Diagnostic session complete",
		zap.String("session_id", s.ID),
		zap.String("status", s.OverallStatus),
		zap.String("cause", s.Hypothesis.Cause),
		zap.Float64("confidence", s.Hypothesis.Confidence),
		zap.Int64("elapsed_ms", elapsed),
	)

	return &Result{
		SessionID: s.ID,
		History:   s.History,
		ElapsedMS: elapsed,
		Report:    s.Report,
	}
}

// runStage executes one stage, converting panics into stage errors so a
// misbehaving stage aborts only its own session.
func runStage(ctx context.Context, name Stage, s Session, fn func(context.Context, Session) (Session, error)) (out Session, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = s
			out.History = append(out.History, name)
			err = fmt.Errorf("stage panicked: %v", r)
		}
	}()
	return fn(ctx, s)
}

// validate gates the pipeline: a session needs a non-empty equipment model
// and at least one measurement. Invalid input routes to the error terminal
// with history ["Validating"] and never reaches the interpreter.
func validate(s Session) Session {
	s.History = append(s.History, StageValidating)

	if s.Input.EquipmentModel == "" {
		s.Valid = false
		s.ValidationError = "equipment model is required"
		return s
	}
	if len(s.Input.Measurements) == 0 {
		s.Valid = false
		s.ValidationError = "at least one measurement is required"
		return s
	}
	return s
}

// interpret loads the equipment knowledge and resolves every measurement
// to a semantic state. A missing or malformed document is absorbed: the
// session degrades to unknown states instead of aborting.
func (p *Pipeline) interpret(_ context.Context, s Session) (Session, error) {
	s.History = append(s.History, StageInterpreting)

	k, err := p.store.Load(s.Input.EquipmentModel)
	switch {
	case err == nil:
		s.Knowledge = k
	case errors.Is(err, knowledge.ErrNotFound), isMalformed(err):
		s.KnowledgeIssue = err.Error()
		metrics.KnowledgeMisses.WithLabelValues(s.Input.EquipmentModel).Inc()
		logger.Warn("Equipment knowledge unavailable, degrading",
			zap.String("session_id", s.ID),
			zap.String("equipment_model", s.Input.EquipmentModel),
			zap.Error(err),
		)
	default:
		return s, err
	}

	states, status := p.interpreter.Interpret(s.Input.Measurements, s.Knowledge)
	s.SignalStates = states
	s.OverallStatus = status

	s.ObservedStates = make(map[string]string, len(states))
	for _, st := range states {
		s.ObservedStates[st.Measurement.TestPoint] = st.State
	}

	return s, nil
}

func (p *Pipeline) matchFaults(_ context.Context, s Session) (Session, error) {
	s.History = append(s.History, StageMatchingFaults)
	s.MatchedFaults = MatchFaults(s.ObservedStates, s.Knowledge)
	return s, nil
}

// generateHypothesis first gathers external evidence from the retrieval
// collaborator (absorbed on failure: "no additional evidence"), then runs
// the deterministic selection.
func (p *Pipeline) generateHypothesis(ctx context.Context, s Session) (Session, error) {
	s.History = append(s.History, StageGeneratingHypothesis)

	s.Citations, s.ExternalEvidence = p.fetchEvidence(ctx, s)
	s.Hypothesis = GenerateHypothesis(s.MatchedFaults, s.SignalStates, s.ExternalEvidence)
	return s, nil
}

func (p *Pipeline) generateRecommendations(_ context.Context, s Session) (Session, error) {
	s.History = append(s.History, StageGeneratingRecommendations)
	s.Recommendations = GenerateRecommendations(s.Hypothesis.FaultID, s.Knowledge)
	return s, nil
}

func (p *Pipeline) assembleResponse(_ context.Context, s Session) (Session, error) {
	s.History = append(s.History, StageAssemblingResponse)
	s.Report = p.buildReport(s)
	return s, nil
}

// fetchEvidence queries the retrieval collaborator with its own deadline.
// Any failure degrades to no additional evidence; it never fails the
// pipeline.
func (p *Pipeline) fetchEvidence(ctx context.Context, s Session) ([]evidence.Snippet, []string) {
	if p.retriever == nil || s.Input.Trigger == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.evidenceTimeout)
	defer cancel()

	snippets, err := p.retriever.Retrieve(ctx, s.Input.Trigger, s.Input.EquipmentModel, p.evidenceTopK)
	if err != nil {
		logger.Warn("Evidence retrieval failed, continuing without",
			zap.String("session_id", s.ID),
			zap.Error(err),
		)
		return nil, nil
	}

	metrics.EvidenceResults.Observe(float64(len(snippets)))

	lines := make([]string, 0, len(snippets))
	for _, sn := range snippets {
		lines = append(lines, fmt.Sprintf("manual: %s: %s", sn.Title, truncate(sn.Content, 160)))
	}
	return snippets, lines
}

func (p *Pipeline) attachNarrative(ctx context.Context, s *Session) {
	if p.narrator == nil || s.Report == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	steps := make([]string, 0, len(s.Recommendations))
	for _, r := range s.Recommendations {
		steps = append(steps, r.Instruction)
	}

	narrative, err := p.narrator.GenerateNarrative(ctx, s.Hypothesis.Cause, s.OverallStatus, steps)
	if err != nil {
		logger.Warn("Narrative generation failed, continuing without",
			zap.String("session_id", s.ID),
			zap.Error(err),
		)
		return
	}
	s.Report.Narrative = narrative
}

func isMalformed(err error) bool {
	var malformed *knowledge.MalformedError
	return errors.As(err, &malformed)
}

// truncate cuts text to at most max bytes on a rune boundary, so a cut
// never leaves invalid UTF-8 in the report.
func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	for max > 0 && !utf8.RuneStart(text[max]) {
		max--
	}
	return text[:max]
}
