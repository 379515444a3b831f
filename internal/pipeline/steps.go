package pipeline

import (
	"context"

	"github.com/spigell/lumino/internal/candidate"
	"github.com/spigell/lumino/internal/notify"
)

// State is a position of the run state machine.
type State string

const (
	StateExtracting State = "extracting"
	StateEvaluating State = "evaluating"
	StateNotifying  State = "notifying"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Stage names a unit of work.
type Stage string

const (
	StageExtraction   Stage = "extraction"
	StageScoring      Stage = "scoring"
	StageNotification Stage = "notification"
)

// Extractor produces a profile from resume text.
type Extractor interface {
	Extract(ctx context.Context, resumeText string) (*candidate.Profile, error)
}

// Scorer rates resume text against a job description.
type Scorer interface {
	Evaluate(ctx context.Context, jobDescription, resumeText string) (*candidate.Evaluation, error)
}

// Notifier composes and dispatches the outcome message. It never fails.
type Notifier interface {
	Notify(ctx context.Context, in notify.Input) notify.Outcome
}

// step is one transition of the state machine: it runs in state and, once
// its output is merged, the run advances to next.
type step struct {
	stage Stage
	state State
	next  State
	apply func(ctx context.Context, run *runState) error
}

func (o *Orchestrator) steps() []step {
	return []step{
		{stage: StageExtraction, state: StateExtracting, next: StateEvaluating, apply: o.runExtraction},
		{stage: StageScoring, state: StateEvaluating, next: StateNotifying, apply: o.runScoring},
		{stage: StageNotification, state: StateNotifying, next: StateDone, apply: o.runNotification},
	}
}
