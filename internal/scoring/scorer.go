// Package scoring rates how well a resume fits a job role.
package scoring

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/lumino/internal/ai"
	"github.com/spigell/lumino/internal/candidate"
	"github.com/spigell/lumino/internal/failure"
	"github.com/spigell/lumino/internal/schema"
	"github.com/spigell/lumino/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

type Scorer struct {
	generator ai.Generator
	logger    *zap.Logger
	maxLogLen int
}

func New(generator ai.Generator, logger *zap.Logger, maxLogLength int) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Scorer{generator: generator, logger: logger, maxLogLen: maxLogLength}
}

// Evaluate scores resumeText against jobRole. Every failure wraps failure.ErrEvaluation.
func (s *Scorer) Evaluate(ctx context.Context, jobRole, resumeText string) (*candidate.Evaluation, error) {
	if s == nil || s.generator == nil {
		return nil, fmt.Errorf("%w: scorer is not initialized", failure.ErrEvaluation)
	}

	jobRole = strings.TrimSpace(jobRole)
	resumeText = strings.TrimSpace(resumeText)
	if jobRole == "" {
		return nil, fmt.Errorf("%w: job role is empty", failure.ErrEvaluation)
	}
	if resumeText == "" {
		return nil, fmt.Errorf("%w: resume text is empty", failure.ErrEvaluation)
	}

	instruction, err := Instruction()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", failure.ErrEvaluation, err)
	}

	raw, err := s.generator.GenerateJSON(ctx, instruction, Payload(jobRole, resumeText))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", failure.ErrEvaluation, err)
	}

	var eval candidate.Evaluation
	if _, err := schema.Decode(schema.Evaluation, raw, &eval); err != nil {
		return nil, fmt.Errorf("%w: %w", failure.ErrEvaluation, err)
	}
	eval.Reason = strings.TrimSpace(eval.Reason)
	if err := eval.Validate(); err != nil {
		return nil, err
	}

	s.logger.Debug("resume evaluated",
		zap.Int("similarity_score", eval.SimilarityScore),
		zap.String("reason_preview", utils.TruncateForLog(eval.Reason, s.maxLogLen)),
	)

	return &eval, nil
}

// Payload is the user content of an evaluation request.
func Payload(jobRole, resumeText string) string {
	return "Job description:\n" + jobRole + "\n\nCandidate resume:\n" + resumeText
}

// Instruction returns the system instruction sent with every evaluation request.
func Instruction() (string, error) {
	contract, err := schema.Instruction(schema.Evaluation)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(promptTemplate) + "\n\n" + contract, nil
}
