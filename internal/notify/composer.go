package notify

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/lumino/internal/ai"
	"github.com/spigell/lumino/internal/candidate"
	"github.com/spigell/lumino/internal/failure"
	"github.com/spigell/lumino/internal/schema"
)

//go:embed prompt.md
var promptTemplate string

const (
	DefaultCompany  = "Lumino AI"
	FallbackSubject = "Application Update"
)

// Input is everything the notification stage knows about a run. The score
// and rationale drive the tier and the leak check; they are never sent to the generator.
type Input struct {
	CandidateName  string
	CandidateEmail string
	JobTitle       string
	Evaluation     candidate.Evaluation
	Profile        *candidate.Profile
}

type payload struct {
	CandidateName  string             `json:"candidate_name"`
	CandidateEmail string             `json:"candidate_email"`
	JobTitle       string             `json:"job_title"`
	Company        string             `json:"company"`
	Tone           Tier               `json:"tone"`
	ToneGuidance   string             `json:"tone_guidance"`
	Profile        *candidate.Profile `json:"profile"`
}

// Composer generates message content for a tier.
type Composer struct {
	generator ai.Generator
	policy    Policy
	company   string
	logger    *zap.Logger
}

func NewComposer(generator ai.Generator, policy Policy, company string, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if company = strings.TrimSpace(company); company == "" {
		company = DefaultCompany
	}
	return &Composer{generator: generator, policy: policy, company: company, logger: logger}
}

func (c *Composer) Policy() Policy {
	return c.policy
}

// Compose generates the message for in. The recipient is always in.CandidateEmail.
// Every failure wraps failure.ErrNotificationGeneration.
func (c *Composer) Compose(ctx context.Context, in Input) (*candidate.EmailMessage, error) {
	if c == nil || c.generator == nil {
		return nil, fmt.Errorf("%w: composer is not initialized", failure.ErrNotificationGeneration)
	}

	tier := c.policy.Tier(in.Evaluation.SimilarityScore)
	body, err := json.Marshal(payload{
		CandidateName:  in.CandidateName,
		CandidateEmail: in.CandidateEmail,
		JobTitle:       in.JobTitle,
		Company:        c.company,
		Tone:           tier,
		ToneGuidance:   tier.Guidance(),
		Profile:        in.Profile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal payload: %w", failure.ErrNotificationGeneration, err)
	}

	instruction, err := Instruction()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", failure.ErrNotificationGeneration, err)
	}

	raw, err := c.generator.GenerateJSON(ctx, instruction, string(body))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", failure.ErrNotificationGeneration, err)
	}

	var msg candidate.EmailMessage
	if _, err := schema.Decode(schema.Email, raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", failure.ErrNotificationGeneration, err)
	}

	if generated := strings.TrimSpace(msg.ToEmail); generated != "" && !strings.EqualFold(generated, in.CandidateEmail) {
		c.logger.Warn("ignoring generated recipient", zap.String("generated", generated), zap.String("recipient", in.CandidateEmail))
	}
	msg.ToEmail = in.CandidateEmail
	msg.Subject = strings.TrimSpace(msg.Subject)
	msg.Body = strings.TrimSpace(msg.Body)

	if msg.Subject == "" || msg.Body == "" {
		return nil, fmt.Errorf("%w: subject and body must not be blank", failure.ErrNotificationGeneration)
	}
	if err := CheckLeak(msg, in.Evaluation); err != nil {
		return nil, err
	}

	return &msg, nil
}

// CheckLeak rejects content that reveals the score as a standalone number or
// quotes the evaluation rationale.
func CheckLeak(msg candidate.EmailMessage, eval candidate.Evaluation) error {
	score := regexp.MustCompile(`(^|[^0-9])` + strconv.Itoa(eval.SimilarityScore) + `([^0-9]|$)`)
	reason := strings.ToLower(strings.TrimSpace(eval.Reason))

	fields := []struct{ name, text string }{{"subject", msg.Subject}, {"body", msg.Body}}
	for _, f := range fields {
		field, text := f.name, f.text
		if score.MatchString(text) {
			return fmt.Errorf("%w: %s reveals the similarity score", failure.ErrNotificationGeneration, field)
		}
		if reason != "" && strings.Contains(strings.ToLower(text), reason) {
			return fmt.Errorf("%w: %s quotes the evaluation rationale", failure.ErrNotificationGeneration, field)
		}
	}
	return nil
}

// Fallback is the templated message used when generation fails.
func Fallback(name, email string) candidate.EmailMessage {
	if name = strings.TrimSpace(name); name == "" {
		name = candidate.PlaceholderName
	}
	return candidate.EmailMessage{
		ToEmail: email,
		Subject: FallbackSubject,
		Body: fmt.Sprintf("Dear %s,\n\nThank you for your application. "+
			"We have received it and will be in touch regarding next steps.\n\nBest regards,\nRecruiting Team", name),
	}
}

// Instruction returns the system instruction sent with every composition request.
func Instruction() (string, error) {
	contract, err := schema.Instruction(schema.Email)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(promptTemplate) + "\n\n" + contract, nil
}
