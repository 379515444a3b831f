// Package extraction turns raw resume text into a structured candidate profile.
package extraction

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/lumino/internal/ai"
	"github.com/spigell/lumino/internal/candidate"
	"github.com/spigell/lumino/internal/failure"
	"github.com/spigell/lumino/internal/schema"
)

//go:embed prompt.md
var promptTemplate string

type Extractor struct {
	generator ai.Generator
	logger    *zap.Logger
}

func New(generator ai.Generator, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{generator: generator, logger: logger}
}

// Extract asks the generator for a profile of resumeText. Every failure wraps
// failure.ErrExtraction.
func (e *Extractor) Extract(ctx context.Context, resumeText string) (*candidate.Profile, error) {
	if e == nil || e.generator == nil {
		return nil, fmt.Errorf("%w: extractor is not initialized", failure.ErrExtraction)
	}

	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return nil, fmt.Errorf("%w: resume text is empty", failure.ErrExtraction)
	}

	instruction, err := Instruction()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", failure.ErrExtraction, err)
	}

	raw, err := e.generator.GenerateJSON(ctx, instruction, resumeText)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", failure.ErrExtraction, err)
	}

	var profile candidate.Profile
	unused, err := schema.Decode(schema.Profile, raw, &profile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", failure.ErrExtraction, err)
	}
	if len(unused) > 0 {
		e.logger.Debug("ignoring unknown profile fields", zap.Strings("fields", unused))
	}

	profile.Normalize()

	e.logger.Debug("profile extracted",
		zap.Int("resume_length", utf8.RuneCountInString(resumeText)),
		zap.Int("skills", len(profile.Skills)),
		zap.Int("work_experience", len(profile.WorkExperience)),
	)

	return &profile, nil
}

// Instruction returns the system instruction sent with every extraction request.
func Instruction() (string, error) {
	contract, err := schema.Instruction(schema.Profile)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(promptTemplate) + "\n\n" + contract, nil
}
