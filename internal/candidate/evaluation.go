package candidate

import (
	"fmt"
	"strings"

	"github.com/spigell/lumino/internal/failure"
)

const (
	MinScore = 0
	MaxScore = 100
)

// Evaluation is the fit assessment of a profile against a job role.
type Evaluation struct {
	SimilarityScore int    `json:"similarity_score" yaml:"similarity_score"`
	Reason          string `json:"reason" yaml:"reason"`
}

// Validate checks the score range and that a rationale is present.
func (e Evaluation) Validate() error {
	if e.SimilarityScore < MinScore || e.SimilarityScore > MaxScore {
		return fmt.Errorf("%w: similarity score %d is outside [%d, %d]", failure.ErrEvaluation, e.SimilarityScore, MinScore, MaxScore)
	}
	if strings.TrimSpace(e.Reason) == "" {
		return fmt.Errorf("%w: reason is empty", failure.ErrEvaluation)
	}
	return nil
}
