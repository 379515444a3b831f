package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/lumino/internal/candidate"
)

const janeProfile = `{
  "full_name": "Jane Doe",
  "email": "jane@x.com",
  "phone": null,
  "location": null,
  "linkedin": null,
  "years_experience": 6,
  "skills": ["golang", "Python"],
  "highest_education": null,
  "work_experience": [
    {"company": "Acme", "role": "Backend Engineer", "start_date": "2019", "end_date": null, "description": null}
  ],
  "certifications": [],
  "languages": null,
  "summary": null,
  "hobbies": "chess"
}`

func TestDecodeProfile(t *testing.T) {
	t.Parallel()

	var p candidate.Profile
	unused, err := Decode(Profile, janeProfile, &p)
	require.NoError(t, err)

	assert.Equal(t, []string{"hobbies"}, unused)
	assert.Equal(t, "Jane Doe", p.Name())
	require.NotNil(t, p.YearsExperience)
	assert.Equal(t, 6, *p.YearsExperience)
	assert.Equal(t, []string{"golang", "Python"}, p.Skills)
	require.Len(t, p.WorkExperience, 1)
	assert.Equal(t, "Acme", candidate.Value(p.WorkExperience[0].Company))
	assert.Nil(t, p.WorkExperience[0].EndDate)
	assert.Nil(t, p.Phone)
}

func TestDecodeProfileRequiresEveryKey(t *testing.T) {
	t.Parallel()

	var p candidate.Profile
	_, err := Decode(Profile, `{"full_name": "Jane Doe"}`, &p)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, Profile, verr.Schema)
	assert.GreaterOrEqual(t, len(verr.Errors), 11)
}

func TestDecodeValidatesEvaluation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "valid", raw: `{"similarity_score": 92, "reason": "Strong Go background"}`},
		{name: "zero", raw: `{"similarity_score": 0, "reason": "No overlap"}`},
		{name: "fractional", raw: `{"similarity_score": 72.5, "reason": "x"}`, wantErr: true},
		{name: "out of range", raw: `{"similarity_score": 140, "reason": "x"}`, wantErr: true},
		{name: "string score", raw: `{"similarity_score": "90", "reason": "x"}`, wantErr: true},
		{name: "missing reason", raw: `{"similarity_score": 90}`, wantErr: true},
		{name: "empty reason", raw: `{"similarity_score": 90, "reason": ""}`, wantErr: true},
		{name: "not json", raw: `score: 90`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var e candidate.Evaluation
			_, err := Decode(Evaluation, tt.raw, &e)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr), "got %v", err)
		})
	}
}

func TestDecodeEvaluation(t *testing.T) {
	t.Parallel()

	var e candidate.Evaluation
	_, err := Decode(Evaluation, `{"similarity_score": 92, "reason": "Strong Go background"}`, &e)
	require.NoError(t, err)
	assert.Equal(t, candidate.Evaluation{SimilarityScore: 92, Reason: "Strong Go background"}, e)
}

func TestDecodeEmailAllowsNullRecipient(t *testing.T) {
	t.Parallel()

	var m candidate.EmailMessage
	_, err := Decode(Email, `{"to_email": null, "subject": "Interview", "body": "Hello"}`, &m)
	require.NoError(t, err)
	assert.Empty(t, m.ToEmail)
	assert.Equal(t, "Interview", m.Subject)
}

func TestInstructionEmbedsSchema(t *testing.T) {
	t.Parallel()

	for _, name := range []Name{Profile, Evaluation, Email} {
		text, err := Instruction(name)
		require.NoError(t, err)
		assert.Contains(t, text, `"title": "`+string(name)+`"`)
	}

	_, err := Instruction(Name("resume"))
	var lerr *LoadError
	assert.True(t, errors.As(err, &lerr))
}
