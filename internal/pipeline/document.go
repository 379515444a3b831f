package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/spigell/lumino/internal/candidate"
)

// ErrFieldWritten is returned when a stage output is merged twice.
var ErrFieldWritten = errors.New("document field already written")

// Application is the caller's input for one run.
type Application struct {
	CorrelationID  string `json:"correlation_id" yaml:"correlation_id"`
	JobRole        string `json:"job_role" yaml:"job_role"`
	JobDescription string `json:"job_description" yaml:"job_description"`
	ResumeText     string `json:"resume_text" yaml:"resume_text"`

	// Optional contact details supplied with the application. They are used
	// when extraction does not find a name or a valid address.
	CandidateName  string `json:"candidate_name,omitempty" yaml:"candidate_name,omitempty"`
	CandidateEmail string `json:"candidate_email,omitempty" yaml:"candidate_email,omitempty"`
}

func (a Application) validate() error {
	var problems []string
	if strings.TrimSpace(a.JobDescription) == "" {
		problems = append(problems, "job description is empty")
	}
	if strings.TrimSpace(a.ResumeText) == "" {
		problems = append(problems, "resume text is empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid application: %s", strings.Join(problems, "; "))
	}
	return nil
}

// NewCorrelationID returns a fresh opaque run token.
func NewCorrelationID() string {
	return uuid.NewString()
}

// Document is the state threaded through one run. Inputs never change after
// creation and every stage output is written at most once, in stage order.
type Document struct {
	CorrelationID  string `json:"correlation_id" yaml:"correlation_id"`
	State          State  `json:"state" yaml:"state"`
	JobRole        string `json:"job_role" yaml:"job_role"`
	JobDescription string `json:"job_description" yaml:"job_description"`
	ResumeText     string `json:"resume_text" yaml:"resume_text"`

	ParsedResume   *candidate.Profile      `json:"parsed_resume" yaml:"parsed_resume"`
	CandidateName  string                  `json:"candidate_name" yaml:"candidate_name"`
	CandidateEmail string                  `json:"candidate_email" yaml:"candidate_email"`
	Evaluation     *candidate.Evaluation   `json:"evaluation" yaml:"evaluation"`
	Email          *candidate.EmailMessage `json:"email" yaml:"email"`

	hintName  string
	hintEmail string
}

func newDocument(app Application) *Document {
	return &Document{
		CorrelationID:  app.CorrelationID,
		JobRole:        strings.TrimSpace(app.JobRole),
		JobDescription: strings.TrimSpace(app.JobDescription),
		ResumeText:     app.ResumeText,
		hintName:       strings.TrimSpace(app.CandidateName),
		hintEmail:      strings.TrimSpace(app.CandidateEmail),
	}
}

// HintName returns the caller-supplied candidate name, if any.
func (d *Document) HintName() string {
	return d.hintName
}

// HintEmail returns the caller-supplied candidate email, if any.
func (d *Document) HintEmail() string {
	return d.hintEmail
}

// setProfile merges the extraction output and derives the candidate contact fields.
func (d *Document) setProfile(p *candidate.Profile) error {
	if p == nil {
		return errors.New("parsed resume is nil")
	}
	if d.ParsedResume != nil {
		return fmt.Errorf("%w: parsed_resume", ErrFieldWritten)
	}
	d.ParsedResume = p

	d.CandidateName = firstNonBlank(p.Name(), d.hintName, candidate.PlaceholderName)
	d.CandidateEmail = candidate.PlaceholderEmail
	for _, addr := range []string{p.ContactEmail(), d.hintEmail} {
		if candidate.ValidEmail(addr) {
			d.CandidateEmail = strings.TrimSpace(addr)
			break
		}
	}
	return nil
}

func (d *Document) setEvaluation(e *candidate.Evaluation) error {
	if e == nil {
		return errors.New("evaluation is nil")
	}
	if d.ParsedResume == nil {
		return errors.New("evaluation merged before parsed_resume")
	}
	if d.Evaluation != nil {
		return fmt.Errorf("%w: evaluation", ErrFieldWritten)
	}
	d.Evaluation = e
	return nil
}

func (d *Document) setEmail(m candidate.EmailMessage) error {
	if d.Evaluation == nil {
		return errors.New("email merged before evaluation")
	}
	if d.Email != nil {
		return fmt.Errorf("%w: email", ErrFieldWritten)
	}
	d.Email = &m
	return nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
