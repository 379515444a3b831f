package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/spigell/lumino/internal/ai/gemini"
	"github.com/spigell/lumino/internal/config"
	"github.com/spigell/lumino/internal/extraction"
	"github.com/spigell/lumino/internal/failure"
	"github.com/spigell/lumino/internal/ingestion"
	"github.com/spigell/lumino/internal/intake"
	"github.com/spigell/lumino/internal/logger"
	"github.com/spigell/lumino/internal/mailer"
	"github.com/spigell/lumino/internal/notify"
	"github.com/spigell/lumino/internal/pipeline"
	"github.com/spigell/lumino/internal/scoring"
	"github.com/spigell/lumino/internal/store"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// Sample application used by --self-test. It carries no email address, so nothing is sent.
var selfTestApplication = pipeline.Application{
	JobRole:        "Software Engineer",
	JobDescription: "We need a Python developer with 2+ years experience building production web services.",
	ResumeText: "John Doe, Software Engineer with 3 years Python experience. " +
		"Built and operated a FastAPI payments service on AWS and a React dashboard for internal reporting.",
	CandidateName: "John Doe",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Screen resumes against a job and notify the candidates",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)

	viper.BindPFlag("pipeline.mode", runCmd.Flags().Lookup("mode"))
	viper.BindPFlag("store.path", runCmd.Flags().Lookup("store"))
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("job-role", "", "job title used in candidate emails")
	cmd.Flags().String("job-description", "", "job description text")
	cmd.Flags().String("job-file", "", "file with the job description")
	cmd.Flags().StringSliceP("resume-file", "r", nil, "resume file (.txt, .md or .pdf); repeat for several candidates")
	cmd.Flags().String("candidate-name", "", "candidate name used when the resume has none (single resume only)")
	cmd.Flags().String("candidate-email", "", "candidate email used when the resume has none (single resume only)")
	cmd.Flags().StringP("format", "o", formatJSON, "output format: json or yaml")
	cmd.Flags().Bool("self-test", false, "run the built-in sample application and print a summary")
	cmd.Flags().String("mode", "", "pipeline mode: strict or degraded (overrides pipeline.mode)")
	cmd.Flags().String("store", "", "sqlite database for results (overrides store.path)")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync() //nolint:errcheck

	format, _ := cmd.Flags().GetString("format")
	if format != formatJSON && format != formatYAML {
		logger.Fatal("unsupported output format", zap.String("format", format))
	}

	config, err := getConfig()
	if err != nil {
		var cerr *failure.ConfigurationError
		if errors.As(err, &cerr) {
			logger.Fatal("invalid configuration", zap.Strings("problems", cerr.Problems))
		}
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting lumino", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	orchestrator, err := buildOrchestrator(ctx, config, logger)
	if err != nil {
		logger.Fatal("creating the pipeline", zap.Error(err))
	}

	selfTest, _ := cmd.Flags().GetBool("self-test")

	var subs []intake.Submission
	if selfTest {
		subs = []intake.Submission{{Source: "self-test", Application: selfTestApplication}}
	} else {
		subs, err = submissions(ctx, cmd)
		if err != nil {
			logger.Fatal("reading applications", zap.Error(err))
		}
	}

	logger.Info("pipeline ready", zap.String("mode", string(orchestrator.Mode())), zap.Int("applications", len(subs)))

	var db *store.Store
	if path := strings.TrimSpace(config.Store.Path); path != "" && !selfTest {
		db, err = store.Open(path)
		if err != nil {
			logger.Fatal("opening the store", zap.String("path", path), zap.Error(err))
		}
		defer db.Close()
	}

	pool := intake.NewPool(config.Intake.Concurrency, logger)
	outcomes := pool.Process(ctx, orchestrator, subs)

	failed := 0
	for _, out := range outcomes {
		if out.Err != nil {
			failed++
			continue
		}
		if db == nil {
			continue
		}
		// Persisting is best effort; the run itself already finished.
		if err := db.Save(ctx, out.Result); err != nil {
			logger.Error("saving result", zap.String("source", out.Source), zap.Error(err))
		}
	}

	if selfTest {
		printSummary(cmd.OutOrStdout(), outcomes[0])
	} else if err := writeReport(cmd.OutOrStdout(), format, outcomes); err != nil {
		logger.Fatal("writing the report", zap.Error(err))
	}

	if failed > 0 {
		logger.Fatal("some applications failed", zap.Int("failed", failed), zap.Int("total", len(outcomes)))
	}
}

func buildOrchestrator(ctx context.Context, cfg *config.Config, log *zap.Logger) (*pipeline.Orchestrator, error) {
	if err := cfg.Notification.Policy().Validate(); err != nil {
		return nil, err
	}

	generator, err := gemini.NewGenerator(ctx, cfg.AI.Gemini.APIKey, gemini.Options{
		Model:        cfg.AI.Gemini.Model,
		MaxRetries:   cfg.AI.Gemini.MaxRetries,
		MaxLogLength: cfg.AI.Gemini.MaxLogLength,
		Temperature:  cfg.AI.Gemini.Temperature,
	}, log)
	if err != nil {
		return nil, err
	}
	aiLogger := logger.WithAI(log, cfg.AI.Provider, generator.Model())

	transportCfg, err := cfg.Mail.Transport()
	if err != nil {
		log.Warn("emails will not be delivered", zap.Error(err),
			zap.String("hint", "set SENDER_EMAIL and SENDER_PASSWORD in the environment or the .env file"))
	}
	transport := mailer.New(transportCfg, log)

	composer := notify.NewComposer(generator, cfg.Notification.Policy(), cfg.Notification.Company, aiLogger)
	notifier, err := notify.NewNotifier(composer, transport, log)
	if err != nil {
		return nil, err
	}

	return pipeline.New(
		extraction.New(generator, aiLogger),
		scoring.New(generator, aiLogger, cfg.AI.Gemini.MaxLogLength),
		notifier,
		pipeline.Options{
			Mode:      pipeline.Mode(cfg.Pipeline.Mode),
			Fallbacks: cfg.Pipeline.Fallbacks(),
			Logger:    log,
		},
	)
}

func submissions(ctx context.Context, cmd *cobra.Command) ([]intake.Submission, error) {
	role, _ := cmd.Flags().GetString("job-role")
	description, _ := cmd.Flags().GetString("job-description")
	jobFile, _ := cmd.Flags().GetString("job-file")
	resumes, _ := cmd.Flags().GetStringSlice("resume-file")
	name, _ := cmd.Flags().GetString("candidate-name")
	email, _ := cmd.Flags().GetString("candidate-email")

	if jobFile != "" {
		data, err := os.ReadFile(jobFile)
		if err != nil {
			return nil, fmt.Errorf("reading job file: %w", err)
		}
		description = string(data)
	}
	if strings.TrimSpace(description) == "" {
		return nil, errors.New("a job description is required (--job-description or --job-file)")
	}
	if strings.TrimSpace(role) == "" {
		role = firstLine(description)
	}
	if len(resumes) == 0 {
		return nil, errors.New("at least one --resume-file is required")
	}
	if len(resumes) > 1 && (name != "" || email != "") {
		return nil, errors.New("--candidate-name and --candidate-email need exactly one --resume-file")
	}

	subs := make([]intake.Submission, 0, len(resumes))
	for _, path := range resumes {
		text, err := ingestion.ReadResume(ctx, path)
		if err != nil {
			return nil, err
		}
		subs = append(subs, intake.Submission{
			Source: path,
			Application: pipeline.Application{
				CorrelationID:  pipeline.NewCorrelationID(),
				JobRole:        role,
				JobDescription: description,
				ResumeText:     text,
				CandidateName:  name,
				CandidateEmail: email,
			},
		})
	}
	return subs, nil
}

type report struct {
	Source string           `json:"source" yaml:"source"`
	Result *pipeline.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string           `json:"error,omitempty" yaml:"error,omitempty"`
}

func writeReport(w io.Writer, format string, outcomes []intake.Outcome) error {
	reports := make([]report, 0, len(outcomes))
	for _, out := range outcomes {
		r := report{Source: out.Source, Result: out.Result}
		if out.Err != nil {
			r.Error = out.Err.Error()
		}
		reports = append(reports, r)
	}

	return encode(w, format, reports)
}

func encode(w io.Writer, format string, v any) error {
	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(w io.Writer, out intake.Outcome) {
	if out.Err != nil {
		fmt.Fprintf(w, "status: error\nmessage: %v\n", out.Err)
		return
	}
	doc := out.Result.Document
	fmt.Fprintf(w, "status: success\ncandidate: %s\nscore: %d\ntier: %s\nemail generated: %t\ndelivery: %s\n",
		doc.CandidateName,
		doc.Evaluation.SimilarityScore,
		out.Result.Tier,
		doc.Email != nil && doc.Email.Subject != "",
		out.Result.Delivery.Status,
	)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	line = strings.TrimSpace(line)
	if r := []rune(line); len(r) > 80 {
		line = string(r[:80])
	}
	return line
}
