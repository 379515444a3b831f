package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/lumino/internal/ai/aitest"
	"github.com/spigell/lumino/internal/candidate"
	"github.com/spigell/lumino/internal/extraction"
	"github.com/spigell/lumino/internal/failure"
	"github.com/spigell/lumino/internal/notify"
	"github.com/spigell/lumino/internal/scoring"
)

const (
	janeResume = "Jane Doe, 5 years Python, built fraud-detection system at BankCo. Contact: jane@x.com"
	janeJob    = "Senior Python Engineer, fraud detection experience required"
)

type recordingTransport struct {
	mu   sync.Mutex
	sent []candidate.EmailMessage
	err  error
}

func (r *recordingTransport) Send(_ context.Context, msg candidate.EmailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

// stubModel answers each stage by recognizing the schema named in its instruction.
type stubModel struct {
	profile    string
	evaluation string
	email      func(payload string) string
}

func (s stubModel) respond(instruction, payload string) (string, error) {
	switch {
	case strings.Contains(instruction, `"title": "profile"`):
		return s.profile, nil
	case strings.Contains(instruction, `"title": "evaluation"`):
		return s.evaluation, nil
	case strings.Contains(instruction, `"title": "email"`):
		return s.email(payload), nil
	default:
		return "", errors.New("unknown stage")
	}
}

func janeModel(score int) stubModel {
	return stubModel{
		profile: `{"full_name": "Jane Doe", "email": "jane@x.com", "phone": null, "location": null,
			"linkedin": null, "years_experience": 5, "skills": ["python", "Fraud Detection"],
			"highest_education": null, "work_experience": [{"company": "BankCo", "role": null,
			"start_date": null, "end_date": null, "description": "Built fraud-detection system"}],
			"certifications": [], "languages": [], "summary": null}`,
		evaluation: fmt.Sprintf(`{"similarity_score": %d, "reason": "Direct fraud detection and Python match"}`, score),
		email: func(payload string) string {
			var in struct {
				Name string `json:"candidate_name"`
				Tone string `json:"tone"`
			}
			_ = json.Unmarshal([]byte(payload), &in)
			subjects := map[string]string{"invite": "Interview invitation", "review": "Application received", "decline": "Your application"}
			return fmt.Sprintf(`{"to_email": "jane@x.com", "subject": %q, "body": "Dear %s, thank you for applying."}`, subjects[in.Tone], in.Name)
		},
	}
}

func newOrchestrator(t *testing.T, model stubModel, transport notify.Transport, mode Mode) *Orchestrator {
	t.Helper()
	gen := &aitest.Generator{Respond: model.respond}
	n, err := notify.NewNotifier(notify.NewComposer(gen, notify.DefaultPolicy(), "", nil), transport, nil)
	require.NoError(t, err)
	o, err := New(extraction.New(gen, nil), scoring.New(gen, nil, 0), n, Options{Mode: mode})
	require.NoError(t, err)
	return o
}

func janeApplication() Application {
	return Application{JobRole: "Senior Python Engineer", JobDescription: janeJob, ResumeText: janeResume}
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	transport := &recordingTransport{}
	o := newOrchestrator(t, janeModel(92), transport, ModeStrict)

	res, err := o.Run(context.Background(), janeApplication())
	require.NoError(t, err)

	doc := res.Document
	assert.NotEmpty(t, doc.CorrelationID)
	assert.Equal(t, StateDone, doc.State)
	assert.Equal(t, "Jane Doe", candidate.Value(doc.ParsedResume.FullName))
	assert.Contains(t, doc.ParsedResume.Skills, "Python")
	assert.Greater(t, doc.Evaluation.SimilarityScore, 70)
	assert.Equal(t, "Jane Doe", doc.CandidateName)
	assert.Equal(t, "jane@x.com", doc.CandidateEmail)

	require.NotNil(t, doc.Email)
	assert.Equal(t, "jane@x.com", doc.Email.ToEmail)
	assert.Equal(t, "Interview invitation", doc.Email.Subject)
	assert.Equal(t, notify.TierInvite, res.Tier)
	assert.True(t, res.Delivery.Delivered)
	assert.Equal(t, 1, transport.count())
	assert.Empty(t, res.Substitutions)
	assert.Equal(t, []Transition{
		{From: StateExtracting, To: StateEvaluating},
		{From: StateEvaluating, To: StateNotifying},
		{From: StateNotifying, To: StateDone},
	}, res.Transitions)
}

func TestRunTierBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score   int
		tier    notify.Tier
		subject string
	}{
		{score: 95, tier: notify.TierInvite, subject: "Interview invitation"},
		{score: 90, tier: notify.TierInvite, subject: "Interview invitation"},
		{score: 89, tier: notify.TierReview, subject: "Application received"},
		{score: 50, tier: notify.TierReview, subject: "Application received"},
		{score: 40, tier: notify.TierDecline, subject: "Your application"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.score), func(t *testing.T) {
			t.Parallel()
			res, err := newOrchestrator(t, janeModel(tt.score), &recordingTransport{}, ModeStrict).Run(context.Background(), janeApplication())
			require.NoError(t, err)
			assert.Equal(t, tt.tier, res.Tier)
			assert.Equal(t, tt.subject, res.Document.Email.Subject)
			assert.NotContains(t, res.Document.Email.Body, fmt.Sprint(tt.score))
		})
	}
}

func TestRunStrictExtractionFailure(t *testing.T) {
	t.Parallel()

	model := janeModel(92)
	model.profile = `{"full_name": "Jane Doe"}`
	transport := &recordingTransport{}

	res, err := newOrchestrator(t, model, transport, ModeStrict).Run(context.Background(), janeApplication())

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageExtraction, stageErr.Stage)
	assert.ErrorIs(t, err, failure.ErrExtraction)

	require.NotNil(t, res)
	assert.Equal(t, StateFailed, res.Document.State)
	assert.Nil(t, res.Document.ParsedResume)
	assert.Nil(t, res.Document.Evaluation)
	assert.Nil(t, res.Document.Email)
	assert.Equal(t, []Transition{{From: StateExtracting, To: StateFailed}}, res.Transitions)
	assert.Zero(t, transport.count())
}

func TestRunStrictEvaluationFailure(t *testing.T) {
	t.Parallel()

	model := janeModel(92)
	model.evaluation = `{"similarity_score": 140, "reason": "x"}`

	res, err := newOrchestrator(t, model, &recordingTransport{}, ModeStrict).Run(context.Background(), janeApplication())

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageScoring, stageErr.Stage)
	assert.ErrorIs(t, err, failure.ErrEvaluation)
	assert.NotNil(t, res.Document.ParsedResume)
	assert.Nil(t, res.Document.Evaluation)
	assert.Nil(t, res.Document.Email)
}

func TestRunDegradedSubstitutesFallbacks(t *testing.T) {
	t.Parallel()

	model := janeModel(92)
	model.profile = "not json"
	model.evaluation = `{"similarity_score": "high"}`
	transport := &recordingTransport{}

	app := janeApplication()
	app.CandidateName = "Jane D."
	res, err := newOrchestrator(t, model, transport, ModeDegraded).Run(context.Background(), app)
	require.NoError(t, err)

	doc := res.Document
	assert.Equal(t, StateDone, doc.State)
	require.Len(t, res.Substitutions, 2)
	assert.Equal(t, StageExtraction, res.Substitutions[0].Stage)
	assert.Equal(t, StageScoring, res.Substitutions[1].Stage)

	assert.Equal(t, "Jane D.", doc.CandidateName)
	assert.Equal(t, candidate.PlaceholderEmail, doc.CandidateEmail)
	assert.NotNil(t, doc.ParsedResume.Skills)
	assert.Equal(t, candidate.Evaluation{SimilarityScore: DefaultFallbackScore, Reason: DefaultFallbackReason}, *doc.Evaluation)

	require.NotNil(t, doc.Email)
	assert.NotEmpty(t, doc.Email.Subject)
	assert.False(t, res.Delivery.Attempted)
	assert.Contains(t, res.Delivery.Status, "Error")
	assert.Zero(t, transport.count())
}

func TestRunDegradedPlaceholders(t *testing.T) {
	t.Parallel()

	model := janeModel(92)
	model.profile = "not json"

	res, err := newOrchestrator(t, model, &recordingTransport{}, ModeDegraded).Run(context.Background(), janeApplication())
	require.NoError(t, err)
	assert.Equal(t, candidate.PlaceholderName, res.Document.CandidateName)
	assert.Equal(t, candidate.PlaceholderEmail, res.Document.CandidateEmail)
}

func TestRunTransportFailureKeepsContent(t *testing.T) {
	t.Parallel()

	transport := &recordingTransport{err: &failure.ConfigurationError{Problems: []string{"SENDER_EMAIL and SENDER_PASSWORD must be set"}}}

	res, err := newOrchestrator(t, janeModel(95), transport, ModeStrict).Run(context.Background(), janeApplication())
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.Document.State)
	assert.NotEmpty(t, res.Document.Email.Subject)
	assert.NotEmpty(t, res.Document.Email.Body)
	assert.False(t, res.Delivery.Delivered)
	assert.Contains(t, res.Delivery.Status, "Error")
	assert.ErrorIs(t, res.Delivery.Err, failure.ErrConfiguration)
}

func TestRunTwiceSendsTwice(t *testing.T) {
	t.Parallel()

	transport := &recordingTransport{}
	o := newOrchestrator(t, janeModel(92), transport, ModeStrict)

	first, err := o.Run(context.Background(), janeApplication())
	require.NoError(t, err)
	second, err := o.Run(context.Background(), janeApplication())
	require.NoError(t, err)

	assert.Equal(t, first.Document.ParsedResume, second.Document.ParsedResume)
	assert.Equal(t, first.Document.Evaluation, second.Document.Evaluation)
	assert.NotEqual(t, first.Document.CorrelationID, second.Document.CorrelationID)
	assert.Equal(t, 2, transport.count())
	assert.True(t, first.Delivery.Delivered)
	assert.True(t, second.Delivery.Delivered)
}

func TestRunConcurrently(t *testing.T) {
	t.Parallel()

	transport := &recordingTransport{}
	o := newOrchestrator(t, janeModel(92), transport, ModeStrict)

	const runs = 8
	var wg sync.WaitGroup
	errs := make([]error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = o.Run(context.Background(), janeApplication())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, runs, transport.count())
}

func TestRunCancellationIsNotSubstituted(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newOrchestrator(t, janeModel(92), &recordingTransport{}, ModeDegraded).Run(ctx, janeApplication())

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Substitutions)
}

func TestRunRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, janeModel(92), &recordingTransport{}, ModeStrict)
	_, err := o.Run(context.Background(), Application{JobDescription: janeJob})
	assert.Error(t, err)
}

func TestDocumentFieldsAreWriteOnce(t *testing.T) {
	t.Parallel()

	doc := newDocument(janeApplication())
	profile := &candidate.Profile{FullName: candidate.Ptr("Jane Doe")}

	assert.Error(t, doc.setEvaluation(&candidate.Evaluation{SimilarityScore: 10, Reason: "x"}))
	require.NoError(t, doc.setProfile(profile))
	assert.ErrorIs(t, doc.setProfile(profile), ErrFieldWritten)

	require.NoError(t, doc.setEvaluation(&candidate.Evaluation{SimilarityScore: 10, Reason: "x"}))
	assert.ErrorIs(t, doc.setEvaluation(&candidate.Evaluation{SimilarityScore: 20, Reason: "y"}), ErrFieldWritten)

	require.NoError(t, doc.setEmail(candidate.EmailMessage{Subject: "a"}))
	assert.ErrorIs(t, doc.setEmail(candidate.EmailMessage{Subject: "b"}), ErrFieldWritten)
	assert.Equal(t, "a", doc.Email.Subject)
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeStrict, mode)

	mode, err = ParseMode(" Degraded ")
	require.NoError(t, err)
	assert.Equal(t, ModeDegraded, mode)

	_, err = ParseMode("lenient")
	assert.Error(t, err)
}
