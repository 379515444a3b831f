// Package pipeline runs a candidate application through extraction, scoring
// and notification.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/lumino/internal/candidate"
	"github.com/spigell/lumino/internal/failure"
	"github.com/spigell/lumino/internal/logger"
	"github.com/spigell/lumino/internal/notify"
)

// Mode decides what happens when extraction or scoring fails.
type Mode string

const (
	// ModeStrict aborts the run and returns the partial document.
	ModeStrict Mode = "strict"
	// ModeDegraded substitutes fallback values and continues.
	ModeDegraded Mode = "degraded"
)

const (
	DefaultFallbackScore  = 50
	DefaultFallbackReason = "Could not evaluate due to processing error"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeStrict, "":
		return ModeStrict, nil
	case ModeDegraded:
		return ModeDegraded, nil
	default:
		return "", fmt.Errorf("unknown pipeline mode %q", s)
	}
}

// Fallbacks build substitute stage outputs in degraded mode.
type Fallbacks struct {
	Profile    func(doc *Document) *candidate.Profile
	Evaluation func(doc *Document) *candidate.Evaluation
}

// DefaultFallbacks returns an evaluation of score with reason and a profile
// holding only the caller-supplied contact hints.
func DefaultFallbacks(score int, reason string) Fallbacks {
	if strings.TrimSpace(reason) == "" {
		reason = DefaultFallbackReason
	}
	return Fallbacks{
		Profile: func(doc *Document) *candidate.Profile {
			p := &candidate.Profile{
				FullName: candidate.Ptr(doc.HintName()),
				Email:    candidate.Ptr(doc.HintEmail()),
			}
			p.Normalize()
			return p
		},
		Evaluation: func(*Document) *candidate.Evaluation {
			return &candidate.Evaluation{SimilarityScore: score, Reason: reason}
		},
	}
}

// StageError aborts a strict-mode run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Substitution records a fallback used in place of a failed stage output.
type Substitution struct {
	Stage  Stage  `json:"stage" yaml:"stage"`
	Reason string `json:"reason" yaml:"reason"`
}

// Transition records one state change.
type Transition struct {
	From State `json:"from" yaml:"from"`
	To   State `json:"to" yaml:"to"`
}

// Result is the final view of a run.
type Result struct {
	Document        *Document       `json:"document" yaml:"document"`
	Tier            notify.Tier     `json:"tier,omitempty" yaml:"tier,omitempty"`
	MessageFallback bool            `json:"message_fallback" yaml:"message_fallback"`
	Delivery        notify.Delivery `json:"delivery" yaml:"delivery"`
	Substitutions   []Substitution  `json:"substitutions" yaml:"substitutions"`
	Transitions     []Transition    `json:"transitions" yaml:"transitions"`
}

// Options configure an Orchestrator.
type Options struct {
	Mode      Mode
	Fallbacks Fallbacks
	Logger    *zap.Logger
}

// Orchestrator holds the stage capabilities. It keeps no per-run state and is
// safe for concurrent Run calls.
type Orchestrator struct {
	extractor Extractor
	scorer    Scorer
	notifier  Notifier
	mode      Mode
	fallbacks Fallbacks
	logger    *zap.Logger
}

func New(extractor Extractor, scorer Scorer, notifier Notifier, opts Options) (*Orchestrator, error) {
	if extractor == nil || scorer == nil || notifier == nil {
		return nil, errors.New("extractor, scorer and notifier are required")
	}

	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}

	defaults := DefaultFallbacks(DefaultFallbackScore, DefaultFallbackReason)
	if opts.Fallbacks.Profile == nil {
		opts.Fallbacks.Profile = defaults.Profile
	}
	if opts.Fallbacks.Evaluation == nil {
		opts.Fallbacks.Evaluation = defaults.Evaluation
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Orchestrator{
		extractor: extractor,
		scorer:    scorer,
		notifier:  notifier,
		mode:      mode,
		fallbacks: opts.Fallbacks,
		logger:    log,
	}, nil
}

func (o *Orchestrator) Mode() Mode {
	return o.mode
}

type runState struct {
	doc    *Document
	result *Result
	logger *zap.Logger
}

// Run executes one application. In strict mode an extraction or scoring
// failure returns a *StageError together with the partial result. Notification
// problems never fail a run.
func (o *Orchestrator) Run(ctx context.Context, app Application) (*Result, error) {
	if err := app.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(app.CorrelationID) == "" {
		app.CorrelationID = NewCorrelationID()
	}

	doc := newDocument(app)
	run := &runState{
		doc: doc,
		result: &Result{
			Document:      doc,
			Substitutions: []Substitution{},
			Transitions:   []Transition{},
		},
		logger: logger.WithRun(o.logger, app.CorrelationID),
	}

	run.logger.Info("pipeline started", zap.String("mode", string(o.mode)), zap.String("job_role", doc.JobRole))

	for _, s := range o.steps() {
		doc.State = s.state
		stepLogger := logger.WithStage(run.logger, string(s.stage)).With(zap.String(logger.FieldState, string(s.state)))

		if err := s.apply(ctx, run); err != nil {
			o.transition(run, StateFailed)
			stepLogger.Error("pipeline step failed", zap.Error(err))
			return run.result, &StageError{Stage: s.stage, Err: err}
		}

		stepLogger.Info("pipeline step")
		o.transition(run, s.next)
	}

	run.logger.Info("pipeline finished",
		zap.Int("similarity_score", doc.Evaluation.SimilarityScore),
		zap.String("tier", string(run.result.Tier)),
		zap.Int("substitutions", len(run.result.Substitutions)),
		zap.String("delivery", run.result.Delivery.Status),
	)
	return run.result, nil
}

func (o *Orchestrator) transition(run *runState, to State) {
	run.result.Transitions = append(run.result.Transitions, Transition{From: run.doc.State, To: to})
	run.doc.State = to
}

func (o *Orchestrator) runExtraction(ctx context.Context, run *runState) error {
	profile, err := o.extractor.Extract(ctx, run.doc.ResumeText)
	if err != nil {
		if !o.substitutable(err, failure.ErrExtraction) {
			return err
		}
		o.substitute(run, StageExtraction, err)
		profile = o.fallbacks.Profile(run.doc)
	}
	return run.doc.setProfile(profile)
}

func (o *Orchestrator) runScoring(ctx context.Context, run *runState) error {
	eval, err := o.scorer.Evaluate(ctx, run.doc.JobDescription, run.doc.ResumeText)
	switch {
	case err != nil:
	case eval == nil:
		err = fmt.Errorf("%w: scorer returned no evaluation", failure.ErrEvaluation)
	default:
		err = eval.Validate()
	}
	if err != nil {
		if !o.substitutable(err, failure.ErrEvaluation) {
			return err
		}
		o.substitute(run, StageScoring, err)
		eval = o.fallbacks.Evaluation(run.doc)
		if verr := eval.Validate(); verr != nil {
			return fmt.Errorf("fallback evaluation: %w", verr)
		}
	}
	return run.doc.setEvaluation(eval)
}

func (o *Orchestrator) runNotification(ctx context.Context, run *runState) error {
	doc := run.doc
	outcome := o.notifier.Notify(ctx, notify.Input{
		CandidateName:  doc.CandidateName,
		CandidateEmail: doc.CandidateEmail,
		JobTitle:       doc.JobRole,
		Evaluation:     *doc.Evaluation,
		Profile:        doc.ParsedResume,
	})

	run.result.Tier = outcome.Tier
	run.result.MessageFallback = outcome.Fallback
	run.result.Delivery = outcome.Delivery
	return doc.setEmail(outcome.Message)
}

// substitutable reports whether err is the stage's own failure and degraded
// mode allows replacing it.
func (o *Orchestrator) substitutable(err, kind error) bool {
	return o.mode == ModeDegraded && errors.Is(err, kind)
}

func (o *Orchestrator) substitute(run *runState, stage Stage, err error) {
	run.result.Substitutions = append(run.result.Substitutions, Substitution{Stage: stage, Reason: err.Error()})
	logger.WithStage(run.logger, string(stage)).Warn("stage failed, substituting fallback", zap.Error(err))
}
