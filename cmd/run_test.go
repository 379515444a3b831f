package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/spigell/lumino/internal/candidate"
	"github.com/spigell/lumino/internal/intake"
	"github.com/spigell/lumino/internal/pipeline"
)

const sampleResume = "Jane Doe, 5 years Python, built fraud-detection system at BankCo. Contact: jane@x.com"

func newRunCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "run"}
	addRunFlags(c)
	if err := c.Flags().Parse(args); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}
	return c
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestSubmissions(t *testing.T) {
	t.Parallel()

	job := writeTemp(t, "job.txt", "Senior Python Engineer\nFraud detection experience required")
	first := writeTemp(t, "jane.txt", sampleResume)
	second := writeTemp(t, "john.md", strings.ReplaceAll(sampleResume, "Jane", "John"))

	subs, err := submissions(context.Background(), newRunCommand(t, "--job-file", job, "-r", first, "-r", second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(subs))
	}
	if subs[0].Source != first || subs[1].Source != second {
		t.Fatalf("unexpected order: %s, %s", subs[0].Source, subs[1].Source)
	}
	if subs[0].Application.JobRole != "Senior Python Engineer" {
		t.Fatalf("expected role from the first job line, got %q", subs[0].Application.JobRole)
	}
	if subs[0].Application.CorrelationID == subs[1].Application.CorrelationID {
		t.Fatalf("expected distinct correlation ids")
	}
}

func TestSubmissionsErrors(t *testing.T) {
	t.Parallel()

	resume := writeTemp(t, "jane.txt", sampleResume)
	short := writeTemp(t, "short.txt", "Jane Doe")

	cases := []struct {
		name string
		args []string
	}{
		{name: "no job", args: []string{"-r", resume}},
		{name: "no resume", args: []string{"--job-description", "Go engineer"}},
		{name: "short resume", args: []string{"--job-description", "Go engineer", "-r", short}},
		{name: "hints with many resumes", args: []string{"--job-description", "Go engineer", "-r", resume, "-r", resume, "--candidate-name", "Jane"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := submissions(context.Background(), newRunCommand(t, tc.args...)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestWriteReport(t *testing.T) {
	t.Parallel()

	outcomes := []intake.Outcome{
		{
			Source: "jane.txt",
			Result: &pipeline.Result{Document: &pipeline.Document{
				CorrelationID: "run-1",
				State:         pipeline.StateDone,
				Evaluation:    &candidate.Evaluation{SimilarityScore: 92, Reason: "Direct match"},
			}},
		},
		{Source: "john.txt", Err: errors.New("extraction stage: extraction failure")},
	}

	for _, format := range []string{formatJSON, formatYAML} {
		var buf bytes.Buffer
		if err := writeReport(&buf, format, outcomes); err != nil {
			t.Fatalf("%s: unexpected error: %v", format, err)
		}
		out := buf.String()
		for _, want := range []string{"jane.txt", "run-1", "similarity_score", "extraction failure"} {
			if !strings.Contains(out, want) {
				t.Fatalf("%s report misses %q:\n%s", format, want, out)
			}
		}
	}
}

func TestFirstLine(t *testing.T) {
	t.Parallel()

	if got := firstLine("\n  Go Engineer  \nDetails"); got != "Go Engineer" {
		t.Fatalf("unexpected first line: %q", got)
	}
	if got := firstLine(strings.Repeat("a", 100)); len(got) != 80 {
		t.Fatalf("expected truncation to 80 runes, got %d", len(got))
	}
}
