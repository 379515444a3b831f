// Package intake runs many applications through the pipeline with a bounded
// number of runs in flight.
package intake

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/lumino/internal/pipeline"
)

const DefaultConcurrency = 4

// Runner executes one application.
type Runner interface {
	Run(ctx context.Context, app pipeline.Application) (*pipeline.Result, error)
}

// Outcome pairs an application with its result.
type Outcome struct {
	Index  int
	Source string
	Result *pipeline.Result
	Err    error
}

// Submission is an application with a label for reporting, usually the resume file name.
type Submission struct {
	Source      string
	Application pipeline.Application
}

type Pool struct {
	limit  int
	logger *zap.Logger
}

func NewPool(limit int, logger *zap.Logger) *Pool {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{limit: limit, logger: logger}
}

func (p *Pool) Limit() int {
	return p.limit
}

// Process runs every submission with at most Limit runs at once. Outcomes are
// in input order and a failed run does not cancel the others.
func (p *Pool) Process(ctx context.Context, runner Runner, subs []Submission) []Outcome {
	outcomes := make([]Outcome, len(subs))

	var g errgroup.Group
	g.SetLimit(p.limit)

	for i, sub := range subs {
		g.Go(func() error {
			res, err := runner.Run(ctx, sub.Application)
			outcomes[i] = Outcome{Index: i, Source: sub.Source, Result: res, Err: err}
			if err != nil {
				p.logger.Warn("application failed", zap.String("source", sub.Source), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
